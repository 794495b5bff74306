package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/store"
)

// LinkWallet maps a wallet to an identity, replacing any previous owner.
func (d *DB) LinkWallet(ctx context.Context, link *store.WalletLink) error {
	if link.CreatedTs == 0 {
		link.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO wallet_link (wallet, user_id, created_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (wallet) DO UPDATE SET user_id = EXCLUDED.user_id`
	if _, err := d.db.ExecContext(ctx, stmt, link.Wallet, link.UserID, link.CreatedTs); err != nil {
		return errors.Wrap(err, "failed to link wallet")
	}
	return nil
}

// ResolveWallet returns store.ErrNotFound for an unknown wallet.
func (d *DB) ResolveWallet(ctx context.Context, wallet string) (string, error) {
	var userID string
	err := d.db.QueryRowContext(ctx, `SELECT user_id FROM wallet_link WHERE wallet = `+placeholder(1), wallet).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", errors.Wrap(err, "failed to resolve wallet")
	}
	return userID, nil
}
