// Package network is the head protocol's peer transport layer: it carries
// headlogic.NetworkMessage values (ReqTx, ReqSn, AckSn) between parties and
// tracks peer liveness via heartbeats. It is grounded on net/transport.go's
// Transport abstraction, generalized from babble's gossip RPCs
// (Sync/EagerSync/FastForward/Join) to the head protocol's three message
// kinds plus a heartbeat.
package network

import (
	"fmt"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/wire"
)

// messageKind tags which headlogic.NetworkMessage variant a wireMessage
// carries, the same discriminator role babble's rpcJoin/rpcSync/
// rpcEagerSync/rpcFastForward byte plays in net/net_transport.go. It is
// carried inside the CBOR envelope in addition to PeerTransport's own
// framing byte, so the encoded message stays self-describing across
// transport backends.
type messageKind uint8

const (
	kindReqTx messageKind = iota
	kindReqSn
	kindAckSn
)

// wireMessage is the flat, CBOR-encodable envelope for a NetworkMessage.
// ledger.Tx is opaque, so tx payloads travel as Ledger.MarshalTx blobs,
// decoded with Ledger.UnmarshalTx, the same technique
// persistence/encoding.go uses for HeadState's opaque fields.
type wireMessage struct {
	Kind messageKind

	ReqTxBytes []byte

	ReqSnLeader string
	ReqSnNumber uint64
	ReqSnTxs    [][]byte

	AckSnParty  string
	AckSnSigEnc string
	AckSnNumber uint64
}

// EncodeMessage flattens msg into canonical CBOR bytes for transmission.
func EncodeMessage(l ledger.Ledger, msg headlogic.NetworkMessage) ([]byte, error) {
	var w wireMessage
	switch m := msg.(type) {
	case headlogic.ReqTx:
		w.Kind = kindReqTx
		txBytes, err := l.MarshalTx(m.Tx)
		if err != nil {
			return nil, err
		}
		w.ReqTxBytes = txBytes
	case headlogic.ReqSn:
		w.Kind = kindReqSn
		w.ReqSnLeader = m.Leader.VerificationKeyHex
		w.ReqSnNumber = m.Number
		for _, tx := range m.Txs {
			b, err := l.MarshalTx(tx)
			if err != nil {
				return nil, err
			}
			w.ReqSnTxs = append(w.ReqSnTxs, b)
		}
	case headlogic.AckSn:
		w.Kind = kindAckSn
		w.AckSnParty = m.Party.VerificationKeyHex
		w.AckSnSigEnc = m.Sig.Encode()
		w.AckSnNumber = m.Number
	default:
		return nil, fmt.Errorf("network: unknown NetworkMessage type %T", msg)
	}
	return wire.Marshal(w)
}

// DecodeMessage reverses EncodeMessage.
func DecodeMessage(l ledger.Ledger, data []byte) (headlogic.NetworkMessage, error) {
	var w wireMessage
	if err := wire.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	switch w.Kind {
	case kindReqTx:
		tx, err := l.UnmarshalTx(w.ReqTxBytes)
		if err != nil {
			return nil, err
		}
		return headlogic.ReqTx{Tx: tx}, nil
	case kindReqSn:
		txs := make([]ledger.Tx, 0, len(w.ReqSnTxs))
		for _, b := range w.ReqSnTxs {
			tx, err := l.UnmarshalTx(b)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
		return headlogic.ReqSn{
			Leader: party.Party{VerificationKeyHex: w.ReqSnLeader},
			Number: w.ReqSnNumber,
			Txs:    txs,
		}, nil
	case kindAckSn:
		sig, err := partycrypto.DecodeSignature(w.AckSnSigEnc)
		if err != nil {
			return nil, err
		}
		return headlogic.AckSn{
			Party:  party.Party{VerificationKeyHex: w.AckSnParty},
			Sig:    sig,
			Number: w.AckSnNumber,
		}, nil
	default:
		return nil, fmt.Errorf("network: unknown wire message kind %d", w.Kind)
	}
}
