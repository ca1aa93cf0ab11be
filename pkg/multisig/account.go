package multisig

import (
	"bytes"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/core"
)

var accountSeed = []byte("modlpy/utilisuba")

// DeriveAccountID returns the multisig account of signatories with threshold:
// blake2b-256 of the seed, the sorted unique signatories and the threshold.
// The result does not depend on the order of signatories.
func DeriveAccountID(signatories []core.AccountID, threshold uint16) core.AccountID {
	who := slices.Clone(signatories)
	slices.SortFunc(who, func(a, b core.AccountID) int {
		return a.Compare(b)
	})
	who = slices.Compact(who)

	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	// writes to a bytes.Buffer do not fail
	_ = enc.Write(accountSeed)
	_ = enc.EncodeUintCompact(*big.NewInt(int64(len(who))))
	for _, id := range who {
		_ = enc.Write(id[:])
	}
	_ = enc.Encode(threshold)
	return blake2b.Sum256(buf.Bytes())
}
