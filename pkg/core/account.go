package core

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountID is the canonical 32-byte public key identifier of an account.
// Addresses are a prefix-dependent encoding of an AccountID, so two addresses
// must always be compared through their AccountID.
type AccountID [32]byte

// Address is an SS58-encoded AccountID.
type Address string

// ChainID identifies a chain by its genesis hash in hex form.
type ChainID string

// Hash is a 32-byte blake2b digest.
type Hash [32]byte

// Bytes is an opaque byte string rendered as 0x-prefixed hex.
type Bytes []byte

func (a AccountID) Hex() string {
	return hexutil.Encode(a[:])
}

func (a AccountID) String() string {
	return a.Hex()
}

func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Compare orders account ids by their raw bytes.
func (a AccountID) Compare(b AccountID) int {
	return bytes.Compare(a[:], b[:])
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// ParseAccountID parses a 0x-prefixed hex string.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid account id length %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MustParseAccountID panics if s is not a valid account id.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	v, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hexutil.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (b Bytes) String() string {
	return hexutil.Encode(b)
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(b)), nil
}

func (b *Bytes) UnmarshalText(text []byte) error {
	v, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Timepoint identifies the extrinsic that first initiated a multisig round.
type Timepoint struct {
	Height uint32 `json:"height" yaml:"height"`
	Index  uint32 `json:"index" yaml:"index"`
}

func (t Timepoint) String() string {
	return fmt.Sprintf("%d-%d", t.Height, t.Index)
}
