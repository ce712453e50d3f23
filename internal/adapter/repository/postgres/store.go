package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/api-sage/account-ledger-service/internal/domain"
)

// Store satisfies the snapshot contract over Postgres: Load reads every
// account row and Save replaces the full record set inside one transaction,
// so the durable state moves between snapshots with nothing in between.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Configure connection pool for concurrent goroutines
	db.SetMaxIdleConns(20)
	db.SetMaxOpenConns(30)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(15 * time.Minute)

	return db, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Load(ctx context.Context) (map[string]domain.Account, error) {
	const query = `
SELECT account_number, username, balance_minor, is_active, created_at
FROM accounts`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: load accounts: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	snapshot := map[string]domain.Account{}
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.AccountNumber,
			&account.Username,
			&account.Balance,
			&account.IsActive,
			&account.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan account row: %v", domain.ErrStorageUnavailable, err)
		}
		snapshot[account.AccountNumber] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate account rows: %v", domain.ErrStorageUnavailable, err)
	}

	return snapshot, nil
}

func (s *Store) Save(ctx context.Context, snapshot map[string]domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin snapshot tx: %v", domain.ErrStorageUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: clear accounts: %v", domain.ErrStorageUnavailable, err)
	}

	const insert = `
INSERT INTO accounts (account_number, username, balance_minor, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)`

	for _, account := range snapshot {
		if _, err := tx.ExecContext(
			ctx,
			insert,
			account.AccountNumber,
			account.Username,
			account.Balance,
			account.IsActive,
			account.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert account %s: %v", domain.ErrStorageUnavailable, account.AccountNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", domain.ErrStorageUnavailable, err)
	}

	return nil
}

func (s *Store) GenerateAccountNumber(ctx context.Context) (string, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`

	for {
		number := domain.NewAccountNumber()

		var exists bool
		if err := s.db.QueryRowContext(ctx, query, number).Scan(&exists); err != nil {
			return "", fmt.Errorf("%w: check account number: %v", domain.ErrStorageUnavailable, err)
		}
		if !exists {
			return number, nil
		}
	}
}
