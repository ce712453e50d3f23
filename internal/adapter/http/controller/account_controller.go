package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/api-sage/account-ledger-service/internal/adapter/http/middleware"
	"github.com/api-sage/account-ledger-service/internal/adapter/http/models"
	"github.com/api-sage/account-ledger-service/internal/commons"
	"github.com/api-sage/account-ledger-service/internal/domain"
)

type LedgerService interface {
	CreateAccount(ctx context.Context, username string, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, username string) (commons.Response[models.AccountResponse], error)
	Deposit(ctx context.Context, username string, req models.MoveFundsRequest) (commons.Response[models.MoveFundsResponse], error)
	Withdraw(ctx context.Context, username string, req models.MoveFundsRequest) (commons.Response[models.MoveFundsResponse], error)
	Transfer(ctx context.Context, username string, req models.TransferRequest) (commons.Response[models.TransferResponse], error)
	CloseAccount(ctx context.Context, username string) (commons.Response[models.CloseAccountResponse], error)
}

type AccountController struct {
	service LedgerService
}

func NewAccountController(service LedgerService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/accounts/create", wrap(c.createAccount))
	mux.Handle("/accounts/my-account", wrap(c.getMyAccount))
	mux.Handle("/accounts/deposit", wrap(c.deposit))
	mux.Handle("/accounts/withdraw", wrap(c.withdraw))
	mux.Handle("/accounts/transfer", wrap(c.transfer))
	mux.Handle("/accounts/close", wrap(c.closeAccount))
}

func (c *AccountController) createAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.AccountResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.AccountResponse]("unauthorized"))
		return
	}

	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()))
		return
	}

	response, err := c.service.CreateAccount(r.Context(), username, req)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (c *AccountController) getMyAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.AccountResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.AccountResponse]("unauthorized"))
		return
	}

	response, err := c.service.GetAccount(r.Context(), username)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (c *AccountController) deposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.MoveFundsResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.MoveFundsResponse]("unauthorized"))
		return
	}

	var req models.MoveFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.MoveFundsResponse]("invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.MoveFundsResponse]("validation failed", err.Error()))
		return
	}

	response, err := c.service.Deposit(r.Context(), username, req)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (c *AccountController) withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.MoveFundsResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.MoveFundsResponse]("unauthorized"))
		return
	}

	var req models.MoveFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.MoveFundsResponse]("invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.MoveFundsResponse]("validation failed", err.Error()))
		return
	}

	response, err := c.service.Withdraw(r.Context(), username, req)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (c *AccountController) transfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.TransferResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.TransferResponse]("unauthorized"))
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()))
		return
	}

	response, err := c.service.Transfer(r.Context(), username, req)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (c *AccountController) closeAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.CloseAccountResponse]("method not allowed"))
		return
	}

	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, commons.ErrorResponse[models.CloseAccountResponse]("unauthorized"))
		return
	}

	response, err := c.service.CloseAccount(r.Context(), username)
	if err != nil {
		writeJSON(w, statusForError(err, response.Message), response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// statusForError translates the ledger error taxonomy to HTTP statuses; the
// core itself never sees a status code.
func statusForError(err error, message string) int {
	switch {
	case message == "validation failed":
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateActiveAccount), errors.Is(err, domain.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoActiveAccount), errors.Is(err, domain.ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrNonZeroBalance), errors.Is(err, domain.ErrRecipientInactive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
