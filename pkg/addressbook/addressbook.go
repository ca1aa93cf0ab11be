package addressbook

import (
	"os"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

// ShortAddressSymbols is the number of characters kept at each end of an
// address shown in place of a name.
const ShortAddressSymbols = 6

// ResolveName returns the display name of id. Names captured by the
// transaction take precedence over contacts, contacts over wallet accounts.
// An unnamed account is shown as its shortened address under prefix.
func ResolveName(id core.AccountID, signatories []core.Signatory, contacts []core.Contact, wallets []core.Wallet, prefix uint16) string {
	for _, s := range signatories {
		if s.AccountID == id && s.Name != "" {
			return s.Name
		}
	}
	for _, c := range contacts {
		if c.AccountID == id && c.Name != "" {
			return c.Name
		}
	}
	for _, w := range wallets {
		for _, a := range w.Accounts {
			if a.AccountID == id && a.Name != "" {
				return a.Name
			}
		}
	}
	return ss58.Short(ss58.Encode(id, prefix), ShortAddressSymbols)
}

type Option func(o *Options)

type Options struct {
	extra source
}

// source provides contacts and wallets kept outside the book, e.g. by the
// application that embeds it. Its entries rank below the book's own.
type source interface {
	Contacts() []core.Contact
	Wallets() []core.Wallet
}

func WithAdditionalSource(s source) Option {
	return func(o *Options) {
		o.extra = s
	}
}

// Book holds the locally known contacts and wallets, indexed by account.
type Book struct {
	mu       sync.RWMutex
	contacts map[core.AccountID]core.Contact
	accounts map[core.AccountID]core.Account
	wallets  []core.Wallet
	extra    source
}

// File is the on-disk form of a book.
type File struct {
	Contacts []core.Contact `yaml:"contacts"`
	Wallets  []core.Wallet  `yaml:"wallets"`
}

func NewAddressBook(contacts []core.Contact, wallets []core.Wallet, opts ...Option) *Book {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	book := &Book{extra: options.extra}
	book.Replace(contacts, wallets)
	return book
}

// LoadAddressBook reads a YAML book from path.
func LoadAddressBook(logger *zap.Logger, path string, opts ...Option) (*Book, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	book := NewAddressBook(f.Contacts, f.Wallets, opts...)
	logger.Info("address book loaded",
		zap.String("path", path),
		zap.Int("contacts", len(f.Contacts)),
		zap.Int("wallets", len(f.Wallets)))
	return book, nil
}

// Refresh reloads the book from path. On error the current entries are kept.
func (b *Book) Refresh(logger *zap.Logger, path string) {
	f, err := readFile(path)
	if err != nil {
		logger.Warn("failed to refresh address book", zap.String("path", path), zap.Error(err))
		return
	}
	b.Replace(f.Contacts, f.Wallets)
}

func readFile(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(err, "read address book")
	}
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return File{}, errors.Wrap(err, "parse address book")
	}
	return f, nil
}

// Replace swaps all entries. For an account listed more than once the first
// named entry wins.
func (b *Book) Replace(contacts []core.Contact, wallets []core.Wallet) {
	byContact := make(map[core.AccountID]core.Contact, len(contacts))
	for _, c := range contacts {
		if _, ok := byContact[c.AccountID]; ok || c.Name == "" {
			continue
		}
		byContact[c.AccountID] = c
	}
	byAccount := make(map[core.AccountID]core.Account)
	for _, w := range wallets {
		for _, a := range w.Accounts {
			if _, ok := byAccount[a.AccountID]; ok || a.Name == "" {
				continue
			}
			byAccount[a.AccountID] = a
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts = byContact
	b.accounts = byAccount
	b.wallets = slices.Clone(wallets)
}

func (b *Book) GetContact(id core.AccountID) (core.Contact, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contacts[id]
	return c, ok
}

func (b *Book) GetWalletAccount(id core.AccountID) (core.Account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.accounts[id]
	return a, ok
}

// Contacts returns the book's contacts followed by those of the additional
// source.
func (b *Book) Contacts() []core.Contact {
	b.mu.RLock()
	contacts := maps.Values(b.contacts)
	b.mu.RUnlock()
	slices.SortFunc(contacts, func(x, y core.Contact) int {
		return x.AccountID.Compare(y.AccountID)
	})
	if b.extra != nil {
		contacts = append(contacts, b.extra.Contacts()...)
	}
	return contacts
}

func (b *Book) Wallets() []core.Wallet {
	b.mu.RLock()
	wallets := slices.Clone(b.wallets)
	b.mu.RUnlock()
	if b.extra != nil {
		wallets = append(wallets, b.extra.Wallets()...)
	}
	return wallets
}

// ResolveName resolves id against the transaction's signatories and the
// book's entries with the priority of the package-level ResolveName.
func (b *Book) ResolveName(id core.AccountID, signatories []core.Signatory, prefix uint16) string {
	return ResolveName(id, signatories, b.Contacts(), b.Wallets(), prefix)
}

// KnownAccounts returns every account with a contact or wallet entry, sorted.
func (b *Book) KnownAccounts() []core.AccountID {
	b.mu.RLock()
	ids := append(maps.Keys(b.contacts), maps.Keys(b.accounts)...)
	b.mu.RUnlock()
	return unique(ids)
}

func unique(ids []core.AccountID) []core.AccountID {
	slices.SortFunc(ids, func(a, b core.AccountID) int {
		return a.Compare(b)
	})
	return slices.Compact(ids)
}
