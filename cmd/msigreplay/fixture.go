package main

import (
	"os"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/arnac-io/multisig/pkg/callcodec"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/multisig"
)

// Fixture is a recorded set of rounds with the events observed for them.
type Fixture struct {
	Lang         string               `yaml:"lang"`
	Timezone     string               `yaml:"timezone"`
	Contacts     []core.Contact       `yaml:"contacts"`
	Wallets      []core.Wallet        `yaml:"wallets"`
	Transactions []FixtureTransaction `yaml:"transactions"`
}

// FixtureTransaction is one observed round. AccountID is derived from the
// signatories when omitted, CallHash from CallData.
type FixtureTransaction struct {
	AccountID    *core.AccountID       `yaml:"account_id"`
	ChainID      core.ChainID          `yaml:"chain_id"`
	CallHash     *core.Hash            `yaml:"call_hash"`
	CallData     core.Bytes            `yaml:"call_data"`
	BlockCreated uint32                `yaml:"block_created"`
	IndexCreated uint32                `yaml:"index_created"`
	Depositor    core.AccountID        `yaml:"depositor"`
	Threshold    uint16                `yaml:"threshold"`
	Signatories  []core.Signatory      `yaml:"signatories"`
	Status       core.MultisigTxStatus `yaml:"status"`
	Description  string                `yaml:"description"`
	DateCreated  time.Time             `yaml:"date_created"`
	Events       []FixtureEvent        `yaml:"events"`
}

type FixtureEvent struct {
	AccountID     core.AccountID     `yaml:"account_id"`
	Status        core.SigningStatus `yaml:"status"`
	ExtrinsicHash *core.Hash         `yaml:"extrinsic_hash"`
	EventBlock    *uint32            `yaml:"event_block"`
	EventIndex    *uint32            `yaml:"event_index"`
	DateCreated   time.Time          `yaml:"date_created"`
}

func LoadFixture(path string) (Fixture, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, errors.Wrap(err, "read fixture")
	}
	return ParseFixture(content)
}

func ParseFixture(content []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(content, &f); err != nil {
		return Fixture{}, errors.Wrap(err, "parse fixture")
	}
	if f.Lang == "" {
		f.Lang = "en"
	}
	if _, err := f.Location(); err != nil {
		return Fixture{}, err
	}
	for i, ft := range f.Transactions {
		if _, err := ft.transaction(); err != nil {
			return Fixture{}, errors.Wrapf(err, "transaction %d", i)
		}
	}
	return f, nil
}

func (f Fixture) Location() (*time.Location, error) {
	if f.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "timezone %q", f.Timezone)
	}
	return loc, nil
}

// fixtureEntries exposes the fixture's contacts and wallets to an address book.
type fixtureEntries struct {
	f Fixture
}

func (e fixtureEntries) Contacts() []core.Contact {
	return e.f.Contacts
}

func (e fixtureEntries) Wallets() []core.Wallet {
	return e.f.Wallets
}

func (ft FixtureTransaction) transaction() (core.MultisigTransaction, error) {
	if ft.ChainID == "" {
		return core.MultisigTransaction{}, errors.New("chain_id is required")
	}
	if len(ft.Signatories) < 2 || ft.Threshold < 2 || int(ft.Threshold) > len(ft.Signatories) {
		return core.MultisigTransaction{}, errors.Errorf("threshold %d of %d signatories", ft.Threshold, len(ft.Signatories))
	}
	tx := core.MultisigTransaction{
		ChainID:      ft.ChainID,
		CallData:     ft.CallData,
		BlockCreated: ft.BlockCreated,
		IndexCreated: ft.IndexCreated,
		Depositor:    ft.Depositor,
		Threshold:    ft.Threshold,
		Signatories:  ft.Signatories,
		Status:       ft.Status,
		Description:  ft.Description,
		DateCreated:  ft.DateCreated,
	}
	switch {
	case ft.AccountID != nil:
		tx.AccountID = *ft.AccountID
	default:
		tx.AccountID = multisig.DeriveAccountID(tx.SignatoryIDs(), ft.Threshold)
	}
	switch {
	case len(ft.CallData) > 0:
		tx.CallHash = callcodec.HashBytes(ft.CallData)
		if ft.CallHash != nil && *ft.CallHash != tx.CallHash {
			return core.MultisigTransaction{}, core.ErrCallHashMismatch
		}
	case ft.CallHash != nil:
		tx.CallHash = *ft.CallHash
	default:
		return core.MultisigTransaction{}, errors.New("call_hash or call_data is required")
	}
	return tx, nil
}

func (ft FixtureTransaction) events(key core.TxKey) []core.MultisigEvent {
	events := make([]core.MultisigEvent, 0, len(ft.Events))
	for _, fe := range ft.Events {
		e := core.NewEvent(key, fe.AccountID, fe.Status, fe.DateCreated)
		e.ExtrinsicHash = fe.ExtrinsicHash
		e.EventBlock = fe.EventBlock
		e.EventIndex = fe.EventIndex
		events = append(events, e)
	}
	return events
}
