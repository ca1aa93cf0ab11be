package addressbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

var (
	alice = core.MustParseAccountID("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	bob   = core.MustParseAccountID("0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")
	dave  = core.MustParseAccountID("0x306721211d5404bd9da88e0204360a1a9ab8b87c66c1bc2fcdd37f3c2222cc20")
)

func TestResolveName(t *testing.T) {
	signatories := []core.Signatory{{AccountID: alice, Name: "Alice at creation"}, {AccountID: bob}}
	contacts := []core.Contact{{AccountID: alice, Name: "Alice contact"}, {AccountID: bob, Name: "Bob contact"}}
	wallets := []core.Wallet{{
		ID:   "w1",
		Name: "Main",
		Accounts: []core.Account{
			{AccountID: alice, Name: "Alice wallet"},
			{AccountID: bob, Name: "Bob wallet"},
			{AccountID: dave, Name: "Dave wallet"},
		},
	}}

	tests := []struct {
		name        string
		id          core.AccountID
		signatories []core.Signatory
		contacts    []core.Contact
		wallets     []core.Wallet
		want        string
	}{
		{name: "transaction name wins", id: alice, signatories: signatories, contacts: contacts, wallets: wallets, want: "Alice at creation"},
		{name: "unnamed signatory falls back to contact", id: bob, signatories: signatories, contacts: contacts, wallets: wallets, want: "Bob contact"},
		{name: "contact before wallet", id: bob, contacts: contacts, wallets: wallets, want: "Bob contact"},
		{name: "wallet account", id: dave, signatories: signatories, contacts: contacts, wallets: wallets, want: "Dave wallet"},
		{name: "short address", id: dave, want: "5DAAnr...3PTXFy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveName(tt.id, tt.signatories, tt.contacts, tt.wallets, 42)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveName_fallbackUsesPrefix(t *testing.T) {
	polkadot := ResolveName(alice, nil, nil, nil, 0)
	generic := ResolveName(alice, nil, nil, nil, 42)
	require.NotEqual(t, polkadot, generic)
	require.Equal(t, ss58.Short(ss58.Encode(alice, 0), ShortAddressSymbols), polkadot)
	require.NotEmpty(t, ResolveName(core.AccountID{}, nil, nil, nil, 0))
}

type extraSource struct {
	contacts []core.Contact
	wallets  []core.Wallet
}

func (s extraSource) Contacts() []core.Contact { return s.contacts }
func (s extraSource) Wallets() []core.Wallet   { return s.wallets }

func TestBook_ResolveName(t *testing.T) {
	extra := extraSource{
		contacts: []core.Contact{{AccountID: dave, Name: "Dave from phone"}},
		wallets:  []core.Wallet{{Accounts: []core.Account{{AccountID: bob, Name: "Bob ledger"}}}},
	}
	book := NewAddressBook(
		[]core.Contact{{AccountID: alice, Name: "Alice"}, {AccountID: alice, Name: "Alice again"}, {AccountID: bob}},
		[]core.Wallet{{Accounts: []core.Account{{AccountID: dave, Name: "Dave wallet"}}}},
		WithAdditionalSource(extra),
	)

	require.Equal(t, "Alice", book.ResolveName(alice, nil, 0))
	require.Equal(t, "Alice signatory", book.ResolveName(alice, []core.Signatory{{AccountID: alice, Name: "Alice signatory"}}, 0))
	require.Equal(t, "Dave from phone", book.ResolveName(dave, nil, 0))
	require.Equal(t, "Bob ledger", book.ResolveName(bob, nil, 0))

	_, ok := book.GetContact(bob)
	require.False(t, ok)
	require.Equal(t, []core.AccountID{dave, alice}, unique([]core.AccountID{alice, dave, alice}))
	require.ElementsMatch(t, []core.AccountID{alice, dave}, book.KnownAccounts())
}

func TestLoadAddressBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	content := `
contacts:
  - name: Alice
    account_id: "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
wallets:
  - id: main
    name: Main
    accounts:
      - name: Bob
        account_id: "0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
`
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))

	logger, _ := zap.NewDevelopment()
	book, err := LoadAddressBook(logger, path)
	require.Nil(t, err)
	require.Equal(t, "Alice", book.ResolveName(alice, nil, 42))
	require.Equal(t, "Bob", book.ResolveName(bob, nil, 42))

	require.Nil(t, os.WriteFile(path, []byte("contacts: ["), 0o600))
	book.Refresh(logger, path)
	require.Equal(t, "Alice", book.ResolveName(alice, nil, 42))

	_, err = LoadAddressBook(logger, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}
