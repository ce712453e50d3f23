package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/api-sage/account-ledger-service/internal/adapter/http/models"
	"github.com/api-sage/account-ledger-service/internal/adapter/repository/jsonstore"
	"github.com/api-sage/account-ledger-service/internal/domain"
	"github.com/api-sage/account-ledger-service/internal/usecase/services"
)

func newTestService(t *testing.T) *services.LedgerService {
	t.Helper()
	store := jsonstore.New(filepath.Join(t.TempDir(), "accounts.json"))
	return services.NewLedgerService(store)
}

func createAccount(t *testing.T, svc *services.LedgerService, username, initialBalance string) models.AccountResponse {
	t.Helper()
	resp, err := svc.CreateAccount(context.Background(), username, models.CreateAccountRequest{
		InitialBalance: initialBalance,
	})
	if err != nil {
		t.Fatalf("create account for %s: %v", username, err)
	}
	return *resp.Data
}

func TestLedgerServiceCreateAccountValidationError(t *testing.T) {
	svc := services.NewLedgerService(nil)

	_, err := svc.CreateAccount(context.Background(), "alice", models.CreateAccountRequest{
		InitialBalance: "-5.00",
	})
	if err == nil {
		t.Fatal("expected validation error for negative initial balance")
	}
}

func TestLedgerServiceDepositValidationError(t *testing.T) {
	svc := services.NewLedgerService(nil)

	_, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "0"})
	if err == nil {
		t.Fatal("expected validation error for non-positive amount")
	}
}

func TestLedgerServiceRejectsSubCentAmounts(t *testing.T) {
	svc := services.NewLedgerService(nil)

	_, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "10.005"})
	if !errors.Is(err, domain.ErrAmountPrecision) {
		t.Fatalf("expected ErrAmountPrecision, got %v", err)
	}
}

func TestLedgerServiceRejectsAmountsBeyondBalanceRange(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")

	_, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{
		Amount: "100000000000000000.00",
	})
	if !errors.Is(err, domain.ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}

	account, err := svc.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Data.Balance != "100.00" {
		t.Fatalf("rejected deposit must not change balance, got %s", account.Data.Balance)
	}
}

func TestLedgerServiceDepositOverflowRejected(t *testing.T) {
	svc := newTestService(t)
	// Largest representable balance in minor units.
	createAccount(t, svc, "alice", "92233720368547758.07")

	_, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "0.01"})
	if !errors.Is(err, domain.ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}

	account, err := svc.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Data.Balance != "92233720368547758.07" {
		t.Fatalf("rejected deposit must not change balance, got %s", account.Data.Balance)
	}
}

func TestLedgerServiceTransferOverflowLeavesBalancesUntouched(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "10.00")
	bob := createAccount(t, svc, "bob", "92233720368547758.07")

	_, err := svc.Transfer(context.Background(), "alice", models.TransferRequest{
		ToAccountNumber: bob.AccountNumber,
		Amount:          "1.00",
	})
	if !errors.Is(err, domain.ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}

	alice, err := svc.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if alice.Data.Balance != "10.00" {
		t.Fatalf("sender balance changed on rejected transfer: %s", alice.Data.Balance)
	}

	bobAccount, err := svc.GetAccount(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if bobAccount.Data.Balance != "92233720368547758.07" {
		t.Fatalf("recipient balance changed on rejected transfer: %s", bobAccount.Data.Balance)
	}
}

func TestLedgerServiceDepositWithdrawSequence(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")

	deposit, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "50.00"})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if deposit.Data.NewBalance != "150.00" {
		t.Fatalf("expected balance 150.00 after deposit, got %s", deposit.Data.NewBalance)
	}

	withdraw, err := svc.Withdraw(context.Background(), "alice", models.MoveFundsRequest{Amount: "30.50"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdraw.Data.NewBalance != "119.50" {
		t.Fatalf("expected balance 119.50 after withdraw, got %s", withdraw.Data.NewBalance)
	}

	_, err = svc.Withdraw(context.Background(), "alice", models.MoveFundsRequest{Amount: "200.00"})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	account, err := svc.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Data.Balance != "119.50" {
		t.Fatalf("failed withdrawal must not change balance, got %s", account.Data.Balance)
	}
}

func TestLedgerServiceOneActiveAccountPerUser(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "0.00")

	_, err := svc.CreateAccount(context.Background(), "alice", models.CreateAccountRequest{})
	if !errors.Is(err, domain.ErrDuplicateActiveAccount) {
		t.Fatalf("expected ErrDuplicateActiveAccount, got %v", err)
	}

	if _, err := svc.CloseAccount(context.Background(), "alice"); err != nil {
		t.Fatalf("close account: %v", err)
	}

	second := createAccount(t, svc, "alice", "10.00")
	if second.Balance != "10.00" {
		t.Fatalf("expected fresh account with balance 10.00, got %s", second.Balance)
	}
}

func TestLedgerServiceAccountNumbersNotReused(t *testing.T) {
	svc := newTestService(t)
	first := createAccount(t, svc, "alice", "0.00")

	if _, err := svc.CloseAccount(context.Background(), "alice"); err != nil {
		t.Fatalf("close account: %v", err)
	}

	second := createAccount(t, svc, "alice", "0.00")
	if first.AccountNumber == second.AccountNumber {
		t.Fatalf("account number %s was reused", first.AccountNumber)
	}
}

func TestLedgerServiceGetAccountRequiresActiveAccount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetAccount(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNoActiveAccount) {
		t.Fatalf("expected ErrNoActiveAccount, got %v", err)
	}
}

func TestLedgerServiceCloseRequiresZeroBalance(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "0.01")

	_, err := svc.CloseAccount(context.Background(), "alice")
	if !errors.Is(err, domain.ErrNonZeroBalance) {
		t.Fatalf("expected ErrNonZeroBalance, got %v", err)
	}

	if _, err := svc.Withdraw(context.Background(), "alice", models.MoveFundsRequest{Amount: "0.01"}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if _, err := svc.CloseAccount(context.Background(), "alice"); err != nil {
		t.Fatalf("close account with zero balance: %v", err)
	}

	// Closed accounts are permanently inert.
	_, err = svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "5.00"})
	if !errors.Is(err, domain.ErrNoActiveAccount) {
		t.Fatalf("expected ErrNoActiveAccount after close, got %v", err)
	}
}

func TestLedgerServiceTransferScenario(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")

	deposit, err := svc.Deposit(context.Background(), "alice", models.MoveFundsRequest{Amount: "50.00"})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if deposit.Data.NewBalance != "150.00" {
		t.Fatalf("expected 150.00, got %s", deposit.Data.NewBalance)
	}

	bob := createAccount(t, svc, "bob", "0.00")

	transfer, err := svc.Transfer(context.Background(), "alice", models.TransferRequest{
		ToAccountNumber: bob.AccountNumber,
		Amount:          "150.00",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.Data.NewBalance != "0.00" {
		t.Fatalf("expected sender balance 0.00, got %s", transfer.Data.NewBalance)
	}

	bobAccount, err := svc.GetAccount(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get bob account: %v", err)
	}
	if bobAccount.Data.Balance != "150.00" {
		t.Fatalf("expected recipient balance 150.00, got %s", bobAccount.Data.Balance)
	}

	if _, err := svc.CloseAccount(context.Background(), "alice"); err != nil {
		t.Fatalf("close alice: %v", err)
	}

	_, err = svc.Withdraw(context.Background(), "alice", models.MoveFundsRequest{Amount: "1.00"})
	if !errors.Is(err, domain.ErrNoActiveAccount) {
		t.Fatalf("expected ErrNoActiveAccount, got %v", err)
	}
}

func TestLedgerServiceTransferFailuresLeaveBalancesUntouched(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")
	bob := createAccount(t, svc, "bob", "20.00")

	cases := []struct {
		name    string
		request models.TransferRequest
		wantErr error
	}{
		{
			name:    "recipient not found",
			request: models.TransferRequest{ToAccountNumber: "0000000000", Amount: "10.00"},
			wantErr: domain.ErrRecipientNotFound,
		},
		{
			name:    "insufficient funds",
			request: models.TransferRequest{ToAccountNumber: bob.AccountNumber, Amount: "500.00"},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transfer(context.Background(), "alice", tc.request)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			alice, err := svc.GetAccount(context.Background(), "alice")
			if err != nil {
				t.Fatalf("get alice: %v", err)
			}
			if alice.Data.Balance != "100.00" {
				t.Fatalf("sender balance changed on failed transfer: %s", alice.Data.Balance)
			}

			bobAccount, err := svc.GetAccount(context.Background(), "bob")
			if err != nil {
				t.Fatalf("get bob: %v", err)
			}
			if bobAccount.Data.Balance != "20.00" {
				t.Fatalf("recipient balance changed on failed transfer: %s", bobAccount.Data.Balance)
			}
		})
	}
}

func TestLedgerServiceTransferToClosedAccountRejected(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")
	bob := createAccount(t, svc, "bob", "0.00")

	if _, err := svc.CloseAccount(context.Background(), "bob"); err != nil {
		t.Fatalf("close bob: %v", err)
	}

	_, err := svc.Transfer(context.Background(), "alice", models.TransferRequest{
		ToAccountNumber: bob.AccountNumber,
		Amount:          "10.00",
	})
	if !errors.Is(err, domain.ErrRecipientInactive) {
		t.Fatalf("expected ErrRecipientInactive, got %v", err)
	}
}

func TestLedgerServiceSelfTransferHasNoNetEffect(t *testing.T) {
	svc := newTestService(t)
	alice := createAccount(t, svc, "alice", "75.00")

	transfer, err := svc.Transfer(context.Background(), "alice", models.TransferRequest{
		ToAccountNumber: alice.AccountNumber,
		Amount:          "50.00",
	})
	if err != nil {
		t.Fatalf("self-transfer: %v", err)
	}
	if transfer.Data.NewBalance != "75.00" {
		t.Fatalf("self-transfer must net to zero, got balance %s", transfer.Data.NewBalance)
	}
}

func TestLedgerServiceConcurrentWithdrawals(t *testing.T) {
	svc := newTestService(t)
	createAccount(t, svc, "alice", "100.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(context.Background(), "alice", models.MoveFundsRequest{Amount: "60.00"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 || rejections != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", successes, rejections)
	}

	account, err := svc.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Data.Balance != "40.00" {
		t.Fatalf("expected final balance 40.00, got %s", account.Data.Balance)
	}
}
