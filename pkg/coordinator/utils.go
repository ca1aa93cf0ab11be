package coordinator

import (
	"hash/maphash"

	"github.com/arnac-io/multisig/pkg/core"
)

func hashTxKey(seed maphash.Seed, k core.TxKey) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(k.Bytes())
	return h.Sum64()
}
