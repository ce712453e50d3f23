package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	InitialBalance string `json:"initialBalance,omitempty"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	balance := strings.TrimSpace(r.InitialBalance)
	if balance != "" {
		parsed, err := decimal.NewFromString(balance)
		if err != nil {
			errs = append(errs, "initialBalance must be numeric")
		} else if parsed.IsNegative() {
			errs = append(errs, "initialBalance cannot be negative")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

type AccountResponse struct {
	AccountNumber string `json:"accountNumber"`
	Username      string `json:"username"`
	Balance       string `json:"balance"`
	IsActive      bool   `json:"isActive"`
	CreatedAt     string `json:"createdAt"`
}

type MoveFundsRequest struct {
	Amount string `json:"amount"`
}

func (r MoveFundsRequest) Validate() error {
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	return nil
}

type MoveFundsResponse struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
	NewBalance    string `json:"newBalance"`
}

type TransferRequest struct {
	ToAccountNumber string `json:"toAccountNumber"`
	Amount          string `json:"amount"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.ToAccountNumber) == "" {
		errs = append(errs, "toAccountNumber is required")
	}

	if err := validateAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

type TransferResponse struct {
	AccountNumber   string `json:"accountNumber"`
	ToAccountNumber string `json:"toAccountNumber"`
	Amount          string `json:"amount"`
	NewBalance      string `json:"newBalance"`
}

type CloseAccountResponse struct {
	AccountNumber string `json:"accountNumber"`
	IsActive      bool   `json:"isActive"`
}

func validateAmount(amount string) error {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return errors.New("amount is required")
	}

	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return errors.New("amount must be numeric")
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be greater than zero")
	}

	return nil
}
