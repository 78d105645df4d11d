package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind uint8

const (
	// KindNetwork covers unreachable servers, timeouts, and 5xx responses.
	KindNetwork Kind = iota + 1
	// KindRejected is a 4xx refusal: bad credentials, duplicate email, inactive
	// account, or a revoked token.
	KindRejected
	// KindMalformed is a successful status whose body is not what the endpoint
	// promises.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	// ErrNetwork matches any *Error of KindNetwork.
	ErrNetwork = errors.New("auth gateway unreachable")
	// ErrRejected matches any *Error of KindRejected.
	ErrRejected = errors.New("auth gateway rejected request")
	// ErrMalformed matches any *Error of KindMalformed.
	ErrMalformed = errors.New("auth gateway response malformed")
)

// Error is the failure type returned by every [Client] method.
type Error struct {
	Kind Kind
	// Op is the endpoint operation: login, register, logout, or me.
	Op string
	// Status is the HTTP status, or 0 when no response arrived.
	Status int
	// Message is the server-provided detail, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels by Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

// KindOf returns the Kind of err, or 0 if err is not a gateway error.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}
