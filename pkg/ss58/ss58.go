// Package ss58 converts between account ids and SS58 addresses.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/arnac-io/multisig/pkg/core"
)

const (
	checksumLen = 2
	maxPrefix   = 16383
)

var checksumPrefix = []byte("SS58PRE")

var ErrInvalidAddress = errors.New("invalid ss58 address")

// Encode returns the address of id under the given network prefix.
func Encode(id core.AccountID, prefix uint16) core.Address {
	payload := append(prefixBytes(prefix), id[:]...)
	sum := checksum(payload)
	return core.Address(base58.Encode(append(payload, sum[:checksumLen]...)))
}

// Decode returns the account id and network prefix of an address.
func Decode(address core.Address) (core.AccountID, uint16, error) {
	var id core.AccountID
	raw := base58.Decode(string(address))
	if len(raw) < 1 {
		return id, 0, ErrInvalidAddress
	}
	var prefix uint16
	var prefixLen int
	switch {
	case raw[0] < 64:
		prefix, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128:
		if len(raw) < 2 {
			return id, 0, ErrInvalidAddress
		}
		lower := (raw[0]&0x3f)<<2 | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return id, 0, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, raw[0])
	}
	if len(raw) != prefixLen+len(id)+checksumLen {
		return id, 0, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(raw))
	}
	body := raw[:prefixLen+len(id)]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLen], raw[len(body):]) {
		return id, 0, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	copy(id[:], body[prefixLen:])
	return id, prefix, nil
}

// AccountID returns the account id of an address regardless of its prefix.
func AccountID(address core.Address) (core.AccountID, error) {
	id, _, err := Decode(address)
	return id, err
}

// Reencode changes the network prefix of an address.
func Reencode(address core.Address, prefix uint16) (core.Address, error) {
	id, _, err := Decode(address)
	if err != nil {
		return "", err
	}
	return Encode(id, prefix), nil
}

// Same reports whether two addresses encode the same account.
func Same(a, b core.Address) bool {
	if a == b {
		return true
	}
	ida, errA := AccountID(a)
	idb, errB := AccountID(b)
	return errA == nil && errB == nil && ida == idb
}

// Short truncates an address for display, keeping symbols characters on each side.
func Short(address core.Address, symbols int) string {
	s := string(address)
	if symbols <= 0 || len(s) <= 2*symbols+3 {
		return s
	}
	return s[:symbols] + "..." + s[len(s)-symbols:]
}

func prefixBytes(prefix uint16) []byte {
	if prefix > maxPrefix {
		prefix = maxPrefix
	}
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	first := byte((prefix&0xfc)>>2) | 0x40
	second := byte(prefix>>8) | byte(prefix&0x03)<<6
	return []byte{first, second}
}

func checksum(payload []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte{}, checksumPrefix...), payload...))
}
