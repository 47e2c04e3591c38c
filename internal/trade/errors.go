package trade

import "fmt"

// Kind is the category of a user-correctable trade failure.
type Kind string

const (
	InvalidQuantity    Kind = "InvalidQuantity"
	InvalidAmount      Kind = "InvalidAmount"
	UnknownSymbol      Kind = "UnknownSymbol"
	InsufficientFunds  Kind = "InsufficientFunds"
	InsufficientShares Kind = "InsufficientShares"
)

// Error is a trade the user asked for which can't be made.
//
// errors.Is matches any Error of the same Kind, so the Err* values work as
// sentinels.
type Error struct {
	Kind    Kind
	Message string
	// Err is the cause, such as a quote source failure.
	Err error
}

func (err *Error) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %s", err.Message, err.Err)
	}

	return err.Message
}

func (err *Error) Unwrap() error {
	return err.Err
}

func (err *Error) Is(target error) bool {
	other, ok := target.(*Error)

	return ok && other.Kind == err.Kind
}

var (
	ErrInvalidQuantity    = &Error{Kind: InvalidQuantity, Message: "the number of shares must be a positive integer"}
	ErrInvalidAmount      = &Error{Kind: InvalidAmount, Message: "the amount must be a positive number of dollars and cents"}
	ErrUnknownSymbol      = &Error{Kind: UnknownSymbol, Message: "this stock doesn't exist"}
	ErrInsufficientFunds  = &Error{Kind: InsufficientFunds, Message: "you don't have enough cash"}
	ErrInsufficientShares = &Error{Kind: InsufficientShares, Message: "you don't have enough shares to sell"}
)

func unknownSymbol(symbol string, cause error) *Error {
	return &Error{
		Kind:    UnknownSymbol,
		Message: fmt.Sprintf("this stock doesn't exist: %s", symbol),
		Err:     cause,
	}
}
