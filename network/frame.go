package network

import (
	"bufio"
	"encoding/binary"
	"io"
)

// frame wire format: 1 byte kind, 4 bytes sender length + sender bytes, 4
// bytes body length + body bytes. Same type-byte-then-payload framing as
// net/net_transport.go's rpcType byte, generalized to carry the sender's
// party identity alongside the body since PeerTransport's messages are
// fire-and-forget broadcasts rather than request/response RPCs tied to a
// single known connection.
func writeFrame(w *bufio.Writer, kind uint8, sender string, body []byte) error {
	if err := w.WriteByte(kind); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, []byte(sender)); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, body); err != nil {
		return err
	}
	return w.Flush()
}

func readFrame(r *bufio.Reader) (kind uint8, sender string, body []byte, err error) {
	kind, err = r.ReadByte()
	if err != nil {
		return 0, "", nil, err
	}
	senderBytes, err := readLenPrefixed(r)
	if err != nil {
		return 0, "", nil, err
	}
	body, err = readLenPrefixed(r)
	if err != nil {
		return 0, "", nil, err
	}
	return kind, string(senderBytes), body, nil
}

func writeAck(w *bufio.Writer, errStr string) error {
	if err := writeLenPrefixed(w, []byte(errStr)); err != nil {
		return err
	}
	return w.Flush()
}

func readAck(r *bufio.Reader) (string, error) {
	b, err := readLenPrefixed(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeLenPrefixed(w *bufio.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r *bufio.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
