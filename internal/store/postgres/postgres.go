package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
)

// Store archives finished receipts in PostgreSQL. It satisfies the same contract as the
// file archive: Load of an unknown number is not an error.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS receipts (
			number BIGINT PRIMARY KEY,
			cashier_id TEXT NOT NULL,
			cashier_name TEXT NOT NULL,
			cashier_salary NUMERIC(14,4) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			closed BOOLEAN NOT NULL DEFAULT false
		);
		CREATE TABLE IF NOT EXISTS receipt_lines (
			receipt_number BIGINT NOT NULL REFERENCES receipts(number) ON DELETE CASCADE,
			position INT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price NUMERIC(18,6) NOT NULL,
			PRIMARY KEY (receipt_number, position)
		);
	`)
	if err != nil {
		return domain.IOError("ensure receipt schema", err)
	}
	return nil
}

// Save writes the receipt and replaces any lines stored under the same number.
func (s *Store) Save(ctx context.Context, r domain.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.IOError("begin receipt save", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (number, cashier_id, cashier_name, cashier_salary, created_at, closed)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (number) DO UPDATE SET
			cashier_id = EXCLUDED.cashier_id,
			cashier_name = EXCLUDED.cashier_name,
			cashier_salary = EXCLUDED.cashier_salary,
			created_at = EXCLUDED.created_at,
			closed = EXCLUDED.closed
	`, r.Number, r.Cashier.ID, r.Cashier.Name, r.Cashier.MonthlySalary, r.CreatedAt.UTC(), r.Closed)
	if err != nil {
		return domain.IOError(fmt.Sprintf("save receipt #%d", r.Number), err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_lines WHERE receipt_number = $1`, r.Number); err != nil {
		return domain.IOError(fmt.Sprintf("clear receipt #%d lines", r.Number), err)
	}
	for i, line := range r.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_lines (receipt_number, position, product_id, product_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, r.Number, i, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice)
		if err != nil {
			return domain.IOError(fmt.Sprintf("save receipt #%d line %d", r.Number, i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.IOError(fmt.Sprintf("commit receipt #%d", r.Number), err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, cashier_id, cashier_name, cashier_salary, created_at, closed
		FROM receipts
		ORDER BY number
	`)
	if err != nil {
		return nil, domain.IOError("list receipts", err)
	}
	defer rows.Close()

	receipts := make([]domain.Receipt, 0, 64)
	index := make(map[int64]int)
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, domain.IOError("scan receipt", err)
		}
		index[r.Number] = len(receipts)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("list receipts", err)
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT receipt_number, product_id, product_name, quantity, unit_price
		FROM receipt_lines
		ORDER BY receipt_number, position
	`)
	if err != nil {
		return nil, domain.IOError("list receipt lines", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var number int64
		var line domain.ReceiptLine
		if err := lineRows.Scan(&number, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, domain.IOError("scan receipt line", err)
		}
		if i, ok := index[number]; ok {
			receipts[i].Lines = append(receipts[i].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, domain.IOError("list receipt lines", err)
	}
	return receipts, nil
}

func (s *Store) Load(ctx context.Context, number int64) (domain.Receipt, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT number, cashier_id, cashier_name, cashier_salary, created_at, closed
		FROM receipts
		WHERE number = $1
	`, number)
	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Receipt{}, false, nil
	}
	if err != nil {
		return domain.Receipt{}, false, domain.IOError(fmt.Sprintf("load receipt #%d", number), err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, quantity, unit_price
		FROM receipt_lines
		WHERE receipt_number = $1
		ORDER BY position
	`, number)
	if err != nil {
		return domain.Receipt{}, false, domain.IOError(fmt.Sprintf("load receipt #%d lines", number), err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ReceiptLine
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return domain.Receipt{}, false, domain.IOError("scan receipt line", err)
		}
		r.Lines = append(r.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Receipt{}, false, domain.IOError(fmt.Sprintf("load receipt #%d lines", number), err)
	}
	return r, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (domain.Receipt, error) {
	var (
		r      domain.Receipt
		salary decimal.Decimal
	)
	if err := row.Scan(&r.Number, &r.Cashier.ID, &r.Cashier.Name, &salary, &r.CreatedAt, &r.Closed); err != nil {
		return domain.Receipt{}, err
	}
	r.Cashier.MonthlySalary = salary
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
