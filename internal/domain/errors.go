package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrValidation        = errors.New("validation failed")
	ErrLockHeld          = errors.New("lock already held")
)

// ErrorKind classifies an error returned by the portfolio core so callers can
// tell a rejected request apart from a broken system.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindInsufficientFunds
	KindInvalidQuantity
	KindValidation
	KindConflict
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidQuantity:
		return "invalid_quantity"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// KindOf maps err onto its ErrorKind. Anything that is not one of the
// business sentinels is KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidQuantity):
		return KindInvalidQuantity
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	default:
		return KindInternal
	}
}
