package storage

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"

	"github.com/arnac-io/multisig/pkg/core"
)

func hashTxKey(seed maphash.Seed, k core.TxKey) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(k.Bytes())
	return h.Sum64()
}

// fingerprint identifies an event by all of its fields. Events with equal
// fingerprints are compared field by field before being treated as equal.
func fingerprint(e core.MultisigEvent) uint64 {
	d := xxhash.New()
	d.Write(e.Key().Bytes())
	d.Write(e.AccountID[:])
	d.WriteString(string(e.Status))
	if e.ExtrinsicHash != nil {
		d.Write(e.ExtrinsicHash[:])
	}
	var buf [8]byte
	if e.EventBlock != nil {
		binary.BigEndian.PutUint32(buf[:4], *e.EventBlock)
		d.Write(buf[:4])
	}
	if e.EventIndex != nil {
		binary.BigEndian.PutUint32(buf[:4], *e.EventIndex)
		d.Write(buf[:4])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(e.DateCreated.UnixNano()))
	d.Write(buf[:])
	return d.Sum64()
}

func sameEvent(a, b core.MultisigEvent) bool {
	return a.Key() == b.Key() &&
		a.AccountID == b.AccountID &&
		a.Status == b.Status &&
		equalPtr(a.ExtrinsicHash, b.ExtrinsicHash) &&
		equalPtr(a.EventBlock, b.EventBlock) &&
		equalPtr(a.EventIndex, b.EventIndex) &&
		a.DateCreated.Equal(b.DateCreated)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
