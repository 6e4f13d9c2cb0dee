package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonotonicGapFreeSequence(t *testing.T) {
	q := New()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	seqs := make(chan uint64, producers*perProducer)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seqs <- q.Enqueue(i)
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[uint64]bool)
	for s := range seqs {
		require.False(t, seen[s], "duplicate sequence id %d", s)
		seen[s] = true
	}

	require.Len(t, seen, producers*perProducer)
	for i := uint64(1); i <= uint64(producers*perProducer); i++ {
		require.True(t, seen[i], "gap at sequence id %d", i)
	}
}

func TestDequeueOrderMatchesEnqueueOrderPerSource(t *testing.T) {
	q := New()

	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}

	for i := 0; i < 5; i++ {
		env, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, env.Item)
		require.Equal(t, uint64(i+1), env.Seq)
	}
}

func TestShutdownWakesBlockedDequeue(t *testing.T) {
	q := New()

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()

	q.Shutdown()

	err := <-done
	require.ErrorIs(t, err, ErrClosed)
}

func TestShutdownDrainsPendingBeforeClosing(t *testing.T) {
	q := New()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Shutdown()

	env, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", env.Item)

	env, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "b", env.Item)

	_, err = q.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
