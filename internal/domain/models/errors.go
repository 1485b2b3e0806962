package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNoData       ErrorKind = "no_data"
	KindTransient    ErrorKind = "transient"
)

var (
	ErrRateLimited  = errors.New("provider rate limited")
	ErrUnauthorized = errors.New("provider unauthorized")
	ErrNoData       = errors.New("provider returned no data")
	ErrTransient    = errors.New("provider transient failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindRateLimited:
		return ErrRateLimited
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNoData:
		return ErrNoData
	default:
		return ErrTransient
	}
}

// ProviderError is the typed failure returned by every provider client.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(provider string, kind ErrorKind, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Status: status, Err: err}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the sentinel for the error's kind.
func (e *ProviderError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind of err, defaulting to transient.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNoData):
		return KindNoData
	default:
		return KindTransient
	}
}
