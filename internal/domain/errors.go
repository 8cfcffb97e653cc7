package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("missing or malformed required field")
	ErrAccessWindowBlocked = errors.New("outside service hours")
	ErrSpendLimitExceeded  = errors.New("spend limit exceeded")
	ErrItemNotFound        = errors.New("item not found")
	ErrItemInactive        = errors.New("item inactive")
	ErrItemOutOfWindow     = errors.New("item outside availability window")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMissingIssue        = errors.New("issue description required")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrGuestNotFound       = errors.New("guest not found")
	ErrUnknownAction       = errors.New("unknown action")
)

// ItemError attaches the offending item name to a resolver failure.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Item)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
