package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/account-ledger-service/internal/adapter/http/models"
	"github.com/api-sage/account-ledger-service/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger-service/internal/commons"
	"github.com/api-sage/account-ledger-service/internal/domain"
	"github.com/api-sage/account-ledger-service/internal/logger"
)

// LedgerService is the mutation core: every operation takes a pre-authenticated
// username, loads the snapshot, validates, mutates in memory and persists the
// updated snapshot before returning. A single writer lock covers the whole
// read-validate-mutate-persist sequence, so two concurrent withdrawals can
// never both observe the pre-mutation balance. A transfer locks once for its
// two-account mutation, not once per account. Reads take the read lock only.
type LedgerService struct {
	mu    sync.RWMutex
	store repo_interfaces.AccountStore
}

func NewLedgerService(store repo_interfaces.AccountStore) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) CreateAccount(ctx context.Context, username string, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	username = strings.TrimSpace(username)
	logger.Info("ledger service create account request", logger.Fields{
		"username": username,
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service create account validation failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	initialBalance, err := parseInitialBalance(req.InitialBalance)
	if err != nil {
		logger.Error("ledger service create account parse balance failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.AccountResponse]("create account", err), err
	}

	if _, ok := activeAccountFor(snapshot, username); ok {
		err := domain.ErrDuplicateActiveAccount
		logger.Error("ledger service create account blocked", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.AccountResponse](err.Error()), err
	}

	number, err := s.store.GenerateAccountNumber(ctx)
	if err != nil {
		return storeFailure[models.AccountResponse]("create account", err), err
	}

	account := domain.Account{
		AccountNumber: number,
		Username:      username,
		Balance:       initialBalance,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	snapshot[account.AccountNumber] = account

	if err := s.store.Save(ctx, snapshot); err != nil {
		return storeFailure[models.AccountResponse]("create account", err), err
	}

	logger.Info("ledger service create account success", logger.Fields{
		"username":      username,
		"accountNumber": account.AccountNumber,
	})

	return commons.SuccessResponse("account created successfully", accountToResponse(account)), nil
}

func (s *LedgerService) GetAccount(ctx context.Context, username string) (commons.Response[models.AccountResponse], error) {
	username = strings.TrimSpace(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.AccountResponse]("get account", err), err
	}

	account, ok := activeAccountFor(snapshot, username)
	if !ok {
		err := domain.ErrNoActiveAccount
		logger.Info("ledger service get account not found", logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.AccountResponse](err.Error()), err
	}

	return commons.SuccessResponse("account fetched successfully", accountToResponse(account)), nil
}

func (s *LedgerService) Deposit(ctx context.Context, username string, req models.MoveFundsRequest) (commons.Response[models.MoveFundsResponse], error) {
	username = strings.TrimSpace(username)
	logger.Info("ledger service deposit request", logger.Fields{
		"username": username,
		"amount":   req.Amount,
	})

	amount, err := parseAmount(req.Amount)
	if err != nil {
		logger.Error("ledger service deposit validation failed", err, nil)
		return commons.ErrorResponse[models.MoveFundsResponse]("validation failed", err.Error()), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.MoveFundsResponse]("deposit", err), err
	}

	account, ok := activeAccountFor(snapshot, username)
	if !ok {
		err := domain.ErrNoActiveAccount
		logger.Error("ledger service deposit blocked", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.MoveFundsResponse](err.Error()), err
	}

	if account.Balance > math.MaxInt64-amount {
		err := domain.ErrAmountOutOfRange
		logger.Error("ledger service deposit blocked", err, logger.Fields{
			"username":      username,
			"accountNumber": account.AccountNumber,
		})
		return commons.ErrorResponse[models.MoveFundsResponse](err.Error()), err
	}

	account.Balance += amount
	snapshot[account.AccountNumber] = account

	if err := s.store.Save(ctx, snapshot); err != nil {
		return storeFailure[models.MoveFundsResponse]("deposit", err), err
	}

	logger.Info("ledger service deposit success", logger.Fields{
		"username":      username,
		"accountNumber": account.AccountNumber,
	})

	return commons.SuccessResponse("funds deposited successfully", models.MoveFundsResponse{
		AccountNumber: account.AccountNumber,
		Amount:        domain.FormatMinorUnits(amount),
		NewBalance:    domain.FormatMinorUnits(account.Balance),
	}), nil
}

func (s *LedgerService) Withdraw(ctx context.Context, username string, req models.MoveFundsRequest) (commons.Response[models.MoveFundsResponse], error) {
	username = strings.TrimSpace(username)
	logger.Info("ledger service withdraw request", logger.Fields{
		"username": username,
		"amount":   req.Amount,
	})

	amount, err := parseAmount(req.Amount)
	if err != nil {
		logger.Error("ledger service withdraw validation failed", err, nil)
		return commons.ErrorResponse[models.MoveFundsResponse]("validation failed", err.Error()), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.MoveFundsResponse]("withdraw", err), err
	}

	account, ok := activeAccountFor(snapshot, username)
	if !ok {
		err := domain.ErrNoActiveAccount
		logger.Error("ledger service withdraw blocked", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.MoveFundsResponse](err.Error()), err
	}

	if account.Balance < amount {
		err := domain.ErrInsufficientFunds
		logger.Error("ledger service withdraw blocked", err, logger.Fields{
			"username":      username,
			"accountNumber": account.AccountNumber,
		})
		return commons.ErrorResponse[models.MoveFundsResponse](err.Error()), err
	}

	account.Balance -= amount
	snapshot[account.AccountNumber] = account

	if err := s.store.Save(ctx, snapshot); err != nil {
		return storeFailure[models.MoveFundsResponse]("withdraw", err), err
	}

	logger.Info("ledger service withdraw success", logger.Fields{
		"username":      username,
		"accountNumber": account.AccountNumber,
	})

	return commons.SuccessResponse("funds withdrawn successfully", models.MoveFundsResponse{
		AccountNumber: account.AccountNumber,
		Amount:        domain.FormatMinorUnits(amount),
		NewBalance:    domain.FormatMinorUnits(account.Balance),
	}), nil
}

func (s *LedgerService) Transfer(ctx context.Context, username string, req models.TransferRequest) (commons.Response[models.TransferResponse], error) {
	username = strings.TrimSpace(username)
	toAccountNumber := strings.TrimSpace(req.ToAccountNumber)
	logger.Info("ledger service transfer request", logger.Fields{
		"username":        username,
		"toAccountNumber": toAccountNumber,
		"amount":          req.Amount,
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service transfer validation failed", err, nil)
		return commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		logger.Error("ledger service transfer validation failed", err, nil)
		return commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.TransferResponse]("transfer", err), err
	}

	sender, ok := activeAccountFor(snapshot, username)
	if !ok {
		err := domain.ErrNoActiveAccount
		logger.Error("ledger service transfer blocked", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.TransferResponse](err.Error()), err
	}

	recipient, ok := snapshot[toAccountNumber]
	if !ok {
		err := domain.ErrRecipientNotFound
		logger.Error("ledger service transfer blocked", err, logger.Fields{
			"username":        username,
			"toAccountNumber": toAccountNumber,
		})
		return commons.ErrorResponse[models.TransferResponse](err.Error()), err
	}
	if !recipient.IsActive {
		err := domain.ErrRecipientInactive
		logger.Error("ledger service transfer blocked", err, logger.Fields{
			"username":        username,
			"toAccountNumber": toAccountNumber,
		})
		return commons.ErrorResponse[models.TransferResponse](err.Error()), err
	}

	if sender.Balance < amount {
		err := domain.ErrInsufficientFunds
		logger.Error("ledger service transfer blocked", err, logger.Fields{
			"username":      username,
			"accountNumber": sender.AccountNumber,
		})
		return commons.ErrorResponse[models.TransferResponse](err.Error()), err
	}

	// A self-transfer nets to zero, so the credit can only overflow a
	// distinct recipient.
	if recipient.AccountNumber != sender.AccountNumber && recipient.Balance > math.MaxInt64-amount {
		err := domain.ErrAmountOutOfRange
		logger.Error("ledger service transfer blocked", err, logger.Fields{
			"username":        username,
			"toAccountNumber": toAccountNumber,
		})
		return commons.ErrorResponse[models.TransferResponse](err.Error()), err
	}

	// Debit first, write the sender back, then re-read the recipient from the
	// snapshot before crediting. When the recipient is the sender's own
	// account this picks up the debited record, so the self-transfer nets to
	// zero instead of double-applying either half.
	sender.Balance -= amount
	snapshot[sender.AccountNumber] = sender

	recipient = snapshot[toAccountNumber]
	recipient.Balance += amount
	snapshot[toAccountNumber] = recipient

	if err := s.store.Save(ctx, snapshot); err != nil {
		return storeFailure[models.TransferResponse]("transfer", err), err
	}

	updated := snapshot[sender.AccountNumber]

	logger.Info("ledger service transfer success", logger.Fields{
		"username":        username,
		"accountNumber":   updated.AccountNumber,
		"toAccountNumber": toAccountNumber,
	})

	return commons.SuccessResponse("funds transferred successfully", models.TransferResponse{
		AccountNumber:   updated.AccountNumber,
		ToAccountNumber: toAccountNumber,
		Amount:          domain.FormatMinorUnits(amount),
		NewBalance:      domain.FormatMinorUnits(updated.Balance),
	}), nil
}

func (s *LedgerService) CloseAccount(ctx context.Context, username string) (commons.Response[models.CloseAccountResponse], error) {
	username = strings.TrimSpace(username)
	logger.Info("ledger service close account request", logger.Fields{
		"username": username,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return storeFailure[models.CloseAccountResponse]("close account", err), err
	}

	account, ok := activeAccountFor(snapshot, username)
	if !ok {
		err := domain.ErrNoActiveAccount
		logger.Error("ledger service close account blocked", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.CloseAccountResponse](err.Error()), err
	}

	if account.Balance != 0 {
		err := domain.ErrNonZeroBalance
		logger.Error("ledger service close account blocked", err, logger.Fields{
			"username":      username,
			"accountNumber": account.AccountNumber,
		})
		return commons.ErrorResponse[models.CloseAccountResponse](err.Error(), "withdraw remaining funds first"), err
	}

	account.IsActive = false
	snapshot[account.AccountNumber] = account

	if err := s.store.Save(ctx, snapshot); err != nil {
		return storeFailure[models.CloseAccountResponse]("close account", err), err
	}

	logger.Info("ledger service close account success", logger.Fields{
		"username":      username,
		"accountNumber": account.AccountNumber,
	})

	return commons.SuccessResponse("account closed successfully", models.CloseAccountResponse{
		AccountNumber: account.AccountNumber,
		IsActive:      account.IsActive,
	}), nil
}

// activeAccountFor scans the snapshot for the caller's single active account.
// The one-active-account-per-username invariant makes the first match the only
// match.
func activeAccountFor(snapshot map[string]domain.Account, username string) (domain.Account, bool) {
	for _, account := range snapshot {
		if account.Username == username && account.IsActive {
			return account, true
		}
	}
	return domain.Account{}, false
}

func parseAmount(raw string) (int64, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("amount must be numeric")
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount must be greater than zero")
	}

	return domain.MinorUnitsFromDecimal(parsed)
}

func parseInitialBalance(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("initialBalance must be numeric")
	}
	if parsed.IsNegative() {
		return 0, fmt.Errorf("initialBalance cannot be negative")
	}

	return domain.MinorUnitsFromDecimal(parsed)
}

func accountToResponse(account domain.Account) models.AccountResponse {
	return models.AccountResponse{
		AccountNumber: account.AccountNumber,
		Username:      account.Username,
		Balance:       domain.FormatMinorUnits(account.Balance),
		IsActive:      account.IsActive,
		CreatedAt:     account.CreatedAt.Format(time.RFC3339),
	}
}

func storeFailure[T any](operation string, err error) commons.Response[T] {
	logger.Error("ledger service "+operation+" storage failed", err, nil)
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return commons.ErrorResponse[T](domain.ErrStorageUnavailable.Error(), "try again later")
	}
	return commons.ErrorResponse[T]("failed to "+operation, "Unable to "+operation+" right now")
}
