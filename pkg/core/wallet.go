package core

// Contact is an address book entry.
type Contact struct {
	Name      string    `json:"name" yaml:"name"`
	AccountID AccountID `json:"accountId" yaml:"account_id"`
	Address   Address   `json:"address,omitempty" yaml:"address,omitempty"`
}

// Account is a key held by a local wallet. ChainID is set for chain-specific
// accounts.
type Account struct {
	Name      string    `json:"name" yaml:"name"`
	AccountID AccountID `json:"accountId" yaml:"account_id"`
	ChainID   *ChainID  `json:"chainId,omitempty" yaml:"chain_id,omitempty"`
}

// Wallet groups the accounts of one locally known wallet.
type Wallet struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Accounts []Account `json:"accounts" yaml:"accounts"`
}
