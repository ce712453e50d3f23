package domain

import "errors"

var ErrDuplicateActiveAccount = errors.New("user already has an active account")
var ErrNoActiveAccount = errors.New("no active account for user")
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrRecipientNotFound = errors.New("recipient account not found")
var ErrRecipientInactive = errors.New("recipient account is closed")
var ErrNonZeroBalance = errors.New("account balance must be zero before closing")
var ErrStorageUnavailable = errors.New("account storage unavailable")
