// Package walleterr defines the error-kind taxonomy shared by every
// component of the wallet core. Errors carry a semantic Kind instead
// of being distinguished by string matching or type switches, so a
// caller (eventually an HTTP layer) can map them mechanically.
package walleterr

import "fmt"

// Kind identifies the semantic category of an Error.
type Kind int

const (
	// Unknown is the zero value; no constructor here builds an Error
	// with it, and Of reports it for an error that carries no Kind.
	Unknown Kind = iota
	// InvalidEncoding marks a codec rejection: wrong length, wrong
	// version byte, or a bech32 checksum mismatch.
	InvalidEncoding
	// CoinNotDefined marks a lookup against an unregistered ticker.
	CoinNotDefined
	// InvalidAccountName marks an account name that fails the UTF-8
	// length constraint.
	InvalidAccountName
	// AccountExistsException marks a (manager_id, user) collision.
	AccountExistsException
	// AccountNotFoundException marks a lookup against a (manager_id,
	// user) pair with no account and no create requested.
	AccountNotFoundException
	// NotEnoughCoinsException marks funding that cannot meet the
	// requested output plus fee from the available UTXOs.
	NotEnoughCoinsException
	// FeeCalculationError marks a change output that still fails the
	// fee sanity check.
	FeeCalculationError
	// InvalidHashException marks a hash of unexpected size passed to
	// script assembly.
	InvalidHashException
	// InvalidTransactionOutputType marks an unsupported txout type.
	InvalidTransactionOutputType
	// TransactionNotSeen marks a broadcast that the indexer failed to
	// observe within the wait window.
	TransactionNotSeen
	// AuthenticationError marks any bearer-token rejection.
	AuthenticationError
)

func (k Kind) String() string {
	switch k {
	case InvalidEncoding:
		return "InvalidEncoding"
	case CoinNotDefined:
		return "CoinNotDefined"
	case InvalidAccountName:
		return "InvalidAccountName"
	case AccountExistsException:
		return "AccountExistsException"
	case AccountNotFoundException:
		return "AccountNotFoundException"
	case NotEnoughCoinsException:
		return "NotEnoughCoinsException"
	case FeeCalculationError:
		return "FeeCalculationError"
	case InvalidHashException:
		return "InvalidHashException"
	case InvalidTransactionOutputType:
		return "InvalidTransactionOutputType"
	case TransactionNotSeen:
		return "TransactionNotSeen"
	case AuthenticationError:
		return "AuthenticationError"
	default:
		return "Unknown"
	}
}

// Error is the error type that carries one of the kinds above. It
// always carries a Kind and wraps an optional cause. Some packages
// (the daemon RPC client, config loading, database queries) also
// return plain errors, for which Of reports Unknown.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New builds an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's semantic category.
func (e *Error) Kind() Kind { return e.kind }

// Is reports whether target is a *Error with the same Kind, so
// errors.Is(err, walleterr.New(walleterr.CoinNotDefined, "")) works
// as a kind test without caring about the message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// Of reports the Kind of err if it is (or wraps) a *Error, else Unknown.
func Of(err error) Kind {
	var e *Error
	for err != nil {
		if ee, ok := err.(*Error); ok {
			e = ee
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return Unknown
	}
	return e.kind
}
