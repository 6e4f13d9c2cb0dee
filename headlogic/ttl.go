package headlogic

// requeueReqTx decides what to do with a ReqTx whose tx is not yet
// applicable against seenUtxo (its inputs are produced by a transaction
// this party hasn't seen yet): requeue with a decremented TTL if any
// budget remains, otherwise drop it silently (spec.md §4.3.2, §8 property
// 9: "A ReqTx can be retried at most TTL_initial times; after that it is
// dropped").
//
// It returns the effect to append (a Delay that re-enqueues the same
// NetworkInput immediately, i.e. Until is the zero time so the node
// runtime treats it as ready-now) or nil if the retry budget is exhausted.
func requeueReqTx(from NetworkInput) Effect {
	if from.TTL == 0 {
		return nil
	}
	return Delay{
		Event: NetworkInput{Sender: from.Sender, Msg: from.Msg, TTL: from.TTL - 1},
	}
}
