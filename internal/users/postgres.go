package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage using pgx transactions with
// pessimistic row locks.
type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(db *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{db: db}
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

func (p *PostgresStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

func (p *PostgresStorage) GetForUpdate(ctx context.Context, tx Tx, id string) (*User, error) {
	pgTx := tx.(*postgresTx).tx

	var user User
	err := pgTx.QueryRow(ctx, `
		SELECT id, name, balance, commission_rate, sponsor_id
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&user.ID, &user.Name, &user.Balance, &user.CommissionRate, &user.SponsorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user with lock: %w", err)
	}
	return &user, nil
}

func (p *PostgresStorage) Credit(ctx context.Context, tx Tx, id string, amount float64) error {
	pgTx := tx.(*postgresTx).tx

	tag, err := pgTx.Exec(ctx, `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
	`, amount, id)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
