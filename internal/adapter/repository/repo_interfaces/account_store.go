package repo_interfaces

import (
	"context"

	"github.com/api-sage/account-ledger-service/internal/domain"
)

// AccountStore persists the full account snapshot as a single durable unit,
// keyed by account number. Save replaces any prior content all-or-nothing; a
// failed Save must leave the previous snapshot intact. The store performs no
// locking of its own — the ledger service serializes mutating access.
type AccountStore interface {
	// Load returns the current durable snapshot, initializing and persisting
	// an empty one on first use.
	Load(ctx context.Context) (map[string]domain.Account, error)

	// Save durably replaces the snapshot.
	Save(ctx context.Context, snapshot map[string]domain.Account) error

	// GenerateAccountNumber returns an identifier that does not collide with
	// any key in the live snapshot, retrying generation on collision.
	GenerateAccountNumber(ctx context.Context) (string, error)
}
