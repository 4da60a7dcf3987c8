package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"deadman/api/model"
)

// UpsertAccount mirrors the owning account's contact address and webhook
// signing secret. Accounts themselves are managed elsewhere.
func (db *DB) UpsertAccount(ctx context.Context, a *model.Account) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, signing_secret) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, signing_secret = EXCLUDED.signing_secret`,
		a.ID, a.Email, a.SigningSecret,
	)
	return err
}

func (db *DB) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, signing_secret FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.SigningSecret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
