package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Account is the unit of ownership of funds. AccountNumber and Username are
// immutable after creation; Balance is held in minor currency units.
type Account struct {
	AccountNumber string    `json:"accountNumber"`
	Username      string    `json:"username"`
	Balance       int64     `json:"balance"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

const accountNumberLength = 10

// NewAccountNumber derives a 10-digit account number from a random UUID.
// Callers must re-check the result against the live snapshot before use;
// numbers are never reused, even for closed accounts.
func NewAccountNumber() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	digits := n.String()
	if len(digits) < accountNumberLength {
		digits = fmt.Sprintf("%0*s", accountNumberLength, digits)
	}
	return digits[:accountNumberLength]
}

// IsAccountNumber reports whether s has the shape of a generated account number.
func IsAccountNumber(s string) bool {
	if len(s) != accountNumberLength {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
