package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"Checkout/internal/basket"
	"Checkout/internal/pricing"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 5 * time.Second
	pgUniqueCode = "23505"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, rc Receipt) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (id, shopper_id, items, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rc.ID, rc.ShopperID, string(items), rc.TotalCents, rc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrReceiptExists
		}
		return fmt.Errorf("insert receipt: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO receipt_lines (receipt_id, item, quantity, unit_price_cents, policy, subtotal_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range rc.Lines {
		if _, err := stmt.ExecContext(ctx, rc.ID, l.Item, l.Quantity, l.UnitPrice, string(l.Policy), l.Subtotal); err != nil {
			return fmt.Errorf("insert receipt line: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Receipt, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		rc    Receipt
		items string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shopper_id, items, total_cents, created_at
		FROM receipts
		WHERE id = $1
	`, id).Scan(&rc.ID, &rc.ShopperID, &items, &rc.TotalCents, &rc.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, false, nil
	}
	if err != nil {
		return Receipt{}, false, fmt.Errorf("get receipt: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &rc.Items); err != nil {
		return Receipt{}, false, fmt.Errorf("decode items: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item, quantity, unit_price_cents, policy, subtotal_cents
		FROM receipt_lines
		WHERE receipt_id = $1
		ORDER BY item ASC
	`, id)
	if err != nil {
		return Receipt{}, false, fmt.Errorf("get receipt lines: %w", err)
	}
	defer rows.Close()

	lines := make([]basket.Line, 0, 8)
	for rows.Next() {
		var (
			l      basket.Line
			policy string
		)
		if err := rows.Scan(&l.Item, &l.Quantity, &l.UnitPrice, &policy, &l.Subtotal); err != nil {
			return Receipt{}, false, err
		}
		l.Policy = pricing.Kind(policy)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return Receipt{}, false, err
	}
	rc.Lines = lines

	return rc, true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
