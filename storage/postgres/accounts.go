// Package pgstore integrates with the persistent account store. The
// verification subsystem only touches it once, after a phone is verified.
package pgstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Accounts looks up or creates account rows keyed by normalized phone.
type Accounts struct {
	pg *pgxpool.Pool
}

func NewAccounts(pg *pgxpool.Pool) *Accounts {
	return &Accounts{pg: pg}
}

// Ensure returns the account id for phone, creating the row on first
// login and stamping last_login_at on every verified login.
func (a *Accounts) Ensure(ctx context.Context, phone string) (string, error) {
	var id string
	err := a.pg.QueryRow(ctx, `
		INSERT INTO accounts (id, phone_number, created_at, last_login_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (phone_number)
		DO UPDATE SET last_login_at = now()
		RETURNING id
	`, uuid.NewString(), phone).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
