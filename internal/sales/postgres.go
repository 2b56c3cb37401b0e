package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on top of a pgx connection pool.
type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(db *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) Create(ctx context.Context, sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}

	_, err := p.db.Exec(ctx, `
		INSERT INTO sales (id, kind, cpf, name, birth_date, email, whatsapp,
			product_id, seller_id, amount, gateway_payment_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14)
	`, sale.ID, sale.Kind, sale.CPF, sale.Name, sale.BirthDate, sale.Email, sale.Whatsapp,
		sale.ProductID, sale.SellerID, sale.Amount, sale.GatewayPaymentID, sale.Status,
		sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (p *PostgresStorage) SetGatewayPayment(ctx context.Context, saleID, gatewayPaymentID string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE sales
		SET gateway_payment_id = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, saleID, gatewayPaymentID)
	if err != nil {
		return fmt.Errorf("failed to set gateway payment id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmPayment is a compare-and-set: only a PENDING_PAY row transitions,
// so concurrent duplicate deliveries resolve to exactly one winner.
func (p *PostgresStorage) ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*Sale, bool, error) {
	sale, err := p.scanSale(p.db.QueryRow(ctx, `
		UPDATE sales
		SET status = $2,
		    updated_at = NOW()
		WHERE gateway_payment_id = $1
		  AND status = $3
		RETURNING id, kind, cpf, name, birth_date, email, whatsapp,
			product_id, seller_id, amount, COALESCE(gateway_payment_id, ''), status, created_at, updated_at
	`, gatewayPaymentID, StatusPaymentConfirmed, StatusPendingPay))
	if err == nil {
		return sale, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to confirm payment: %w", err)
	}

	// No pending row: either already confirmed or unknown payment id.
	sale, err = p.scanSale(p.db.QueryRow(ctx, `
		SELECT id, kind, cpf, name, birth_date, email, whatsapp,
			product_id, seller_id, amount, COALESCE(gateway_payment_id, ''), status, created_at, updated_at
		FROM sales
		WHERE gateway_payment_id = $1
	`, gatewayPaymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up sale: %w", err)
	}
	return sale, false, nil
}

func (p *PostgresStorage) ListBySeller(ctx context.Context, sellerID string, filter ListFilter) ([]*Sale, error) {
	query := `
		SELECT id, kind, cpf, name, birth_date, email, whatsapp,
			product_id, seller_id, amount, COALESCE(gateway_payment_id, ''), status, created_at, updated_at
		FROM sales
		WHERE seller_id = $1
	`
	args := []any{sellerID}

	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() {
		args = append(args, filter.From, filter.To)
		query += fmt.Sprintf(" AND updated_at BETWEEN $%d AND $%d", len(args)-1, len(args))
	}

	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	results := make([]*Sale, 0)
	for rows.Next() {
		sale, err := p.scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		results = append(results, sale)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStorage) scanSale(row rowScanner) (*Sale, error) {
	var sale Sale
	err := row.Scan(&sale.ID, &sale.Kind, &sale.CPF, &sale.Name, &sale.BirthDate,
		&sale.Email, &sale.Whatsapp, &sale.ProductID, &sale.SellerID, &sale.Amount,
		&sale.GatewayPaymentID, &sale.Status, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
