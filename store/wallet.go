package store

// WalletLink maps a ledger wallet key (hex authority) to an identity.
type WalletLink struct {
	Wallet    string
	UserID    string
	CreatedTs int64
}
