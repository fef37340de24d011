package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies metric failures so callers can render a uniform response.
type ErrorKind string

const (
	KindCredentialMissing  ErrorKind = "credential_missing"
	KindNoBudget           ErrorKind = "no_budget"
	KindNoData             ErrorKind = "no_data"
	KindConfigMissing      ErrorKind = "config_missing"
	KindConfigInvalid      ErrorKind = "config_invalid"
	KindNoMatchingAccounts ErrorKind = "no_matching_accounts"
	KindUpstream           ErrorKind = "upstream"
)

// Error is the typed failure returned across the metric boundary.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrCredentialMissing  = &Error{Kind: KindCredentialMissing, Msg: "API token not found"}
	ErrNoBudget           = &Error{Kind: KindNoBudget, Msg: "No budgets found"}
	ErrNoData             = &Error{Kind: KindNoData, Msg: "No transactions found"}
	ErrConfigMissing      = &Error{Kind: KindConfigMissing, Msg: "configuration missing"}
	ErrConfigInvalid      = &Error{Kind: KindConfigInvalid, Msg: "configuration invalid"}
	ErrNoMatchingAccounts = &Error{Kind: KindNoMatchingAccounts, Msg: "no matching accounts"}
	ErrUpstream           = &Error{Kind: KindUpstream, Msg: "ledger request failed"}
)

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// MissingEnv reports a required configuration value that is not set.
func MissingEnv(name string) *Error {
	return Errorf(KindConfigMissing, "%s environment variable is not set", name)
}

// Upstream wraps a ledger fault. Errors that already carry a kind pass through.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindUpstream, Err: err}
}

// KindOf returns the kind of err, or KindUpstream for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
