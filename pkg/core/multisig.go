package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MultisigTxStatus string

const (
	StatusSigning     MultisigTxStatus = "SIGNING"
	StatusEstablished MultisigTxStatus = "ESTABLISHED"
	StatusExecuted    MultisigTxStatus = "EXECUTED"
	StatusCancelled   MultisigTxStatus = "CANCELLED"
	StatusError       MultisigTxStatus = "ERROR"
)

// IsTerminal reports whether no further event may change the status.
func (s MultisigTxStatus) IsTerminal() bool {
	switch s {
	case StatusExecuted, StatusCancelled, StatusError:
		return true
	}
	return false
}

// SigningStatus is the state a single signatory produced for a transaction.
type SigningStatus string

const (
	SigningSigned         SigningStatus = "SIGNED"
	SigningCancelled      SigningStatus = "CANCELLED"
	SigningPendingSigned  SigningStatus = "PENDING_SIGNED"
	SigningErrorSigned    SigningStatus = "ERROR_SIGNED"
	SigningErrorCancelled SigningStatus = "ERROR_CANCELLED"
)

// TxKey identifies one round of a multisig transaction. The same call hash
// may be resubmitted with a new timepoint after a previous round ended.
type TxKey struct {
	AccountID    AccountID
	ChainID      ChainID
	CallHash     Hash
	BlockCreated uint32
	IndexCreated uint32
}

func (k TxKey) Timepoint() Timepoint {
	return Timepoint{Height: k.BlockCreated, Index: k.IndexCreated}
}

// Bytes returns a stable binary form of the key.
func (k TxKey) Bytes() []byte {
	b := make([]byte, 0, 32+32+8+len(k.ChainID))
	b = append(b, k.AccountID[:]...)
	b = append(b, k.CallHash[:]...)
	b = binary.BigEndian.AppendUint32(b, k.BlockCreated)
	b = binary.BigEndian.AppendUint32(b, k.IndexCreated)
	return append(b, k.ChainID...)
}

func (k TxKey) String() string {
	return fmt.Sprintf("%s/%s/%s@%d-%d", k.ChainID, k.AccountID.Hex(), k.CallHash.Hex(), k.BlockCreated, k.IndexCreated)
}

// PartialKey selects transactions by the timepoint-independent part of TxKey.
// A zero CallHash matches every call of the account.
type PartialKey struct {
	AccountID AccountID
	ChainID   ChainID
	CallHash  Hash
}

func (p PartialKey) Matches(k TxKey) bool {
	if p.AccountID != k.AccountID || p.ChainID != k.ChainID {
		return false
	}
	return p.CallHash.IsZero() || p.CallHash == k.CallHash
}

// Signatory is a configured member of a multisig account. Name is captured
// when the transaction is created.
type Signatory struct {
	AccountID AccountID `json:"accountId" yaml:"account_id"`
	Name      string    `json:"name,omitempty" yaml:"name"`
}

// MultisigTransaction is a multisig round as known locally. Status, Deposit,
// CallData and Transaction are derived and recomputed from events.
type MultisigTransaction struct {
	AccountID         AccountID
	ChainID           ChainID
	CallHash          Hash
	CallData          Bytes
	BlockCreated      uint32
	IndexCreated      uint32
	Depositor         AccountID
	Deposit           *decimal.Decimal
	Threshold         uint16
	Signatories       []Signatory
	Status            MultisigTxStatus
	Description       string
	CancelDescription string
	DateCreated       time.Time
	Transaction       *CallTree
}

func (t MultisigTransaction) Key() TxKey {
	return TxKey{
		AccountID:    t.AccountID,
		ChainID:      t.ChainID,
		CallHash:     t.CallHash,
		BlockCreated: t.BlockCreated,
		IndexCreated: t.IndexCreated,
	}
}

func (t MultisigTransaction) Timepoint() Timepoint {
	return Timepoint{Height: t.BlockCreated, Index: t.IndexCreated}
}

// HasCallData reports whether the call body is known locally.
func (t MultisigTransaction) HasCallData() bool {
	return len(t.CallData) > 0
}

// SignatoryIDs returns the configured member ids in their stored order.
func (t MultisigTransaction) SignatoryIDs() []AccountID {
	ids := make([]AccountID, 0, len(t.Signatories))
	for _, s := range t.Signatories {
		ids = append(ids, s.AccountID)
	}
	return ids
}

// MultisigEvent is an immutable fact: a signatory produced a signing state
// for a transaction. Events are appended, never updated.
type MultisigEvent struct {
	TxAccountID   AccountID
	TxChainID     ChainID
	TxCallHash    Hash
	TxBlock       uint32
	TxIndex       uint32
	AccountID     AccountID
	Status        SigningStatus
	ExtrinsicHash *Hash
	// EventBlock and EventIndex locate the extrinsic that produced the event:
	// its block height and extrinsic index, the same pair a timepoint holds.
	// EventIndex is not the position of the event in the block's event list.
	// The initiating event of a round carries the round's timepoint here.
	EventBlock    *uint32
	EventIndex    *uint32
	DateCreated   time.Time
}

func (e MultisigEvent) Key() TxKey {
	return TxKey{
		AccountID:    e.TxAccountID,
		ChainID:      e.TxChainID,
		CallHash:     e.TxCallHash,
		BlockCreated: e.TxBlock,
		IndexCreated: e.TxIndex,
	}
}

// NewEvent returns an event for the given transaction key.
func NewEvent(key TxKey, signer AccountID, status SigningStatus, at time.Time) MultisigEvent {
	return MultisigEvent{
		TxAccountID: key.AccountID,
		TxChainID:   key.ChainID,
		TxCallHash:  key.CallHash,
		TxBlock:     key.BlockCreated,
		TxIndex:     key.IndexCreated,
		AccountID:   signer,
		Status:      status,
		DateCreated: at,
	}
}

// ExtrinsicResult is reported by the chain collaborator after submission.
type ExtrinsicResult struct {
	Executed       bool
	IsFinalApprove bool
	MultisigError  string
	ExtrinsicHash  Hash
	Timepoint      Timepoint
	Deposit        *decimal.Decimal
}
