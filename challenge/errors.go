package challenge

import (
	"errors"
	"fmt"

	"impactx/strategy"
)

// Error is a failure reported back to the caller. Code is stable and goes
// over the wire; Message is for humans.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so wrapped or reworded errors still compare equal to
// the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidTransition  = &Error{Code: "INVALID_TRANSITION", Message: "operation not allowed in the current state"}
	ErrNoStrategySelected = &Error{Code: "NO_STRATEGY_SELECTED", Message: "select a strategy before committing"}
	ErrStopped            = errors.New("challenge controller stopped")
)

const (
	CodeUnknownStrategy = "UNKNOWN_STRATEGY"
	CodeInternal        = "INTERNAL"
)

func invalidTransition(op string, st Status) error {
	return &Error{Code: ErrInvalidTransition.Code, Message: fmt.Sprintf("cannot %s while %s", op, st)}
}

// Code maps an error returned by this package to its wire code.
func Code(err error) string {
	var ce *Error
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, strategy.ErrUnknownStrategy):
		return CodeUnknownStrategy
	default:
		return CodeInternal
	}
}
