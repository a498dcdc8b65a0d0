package apperr

import (
	"errors"
	"fmt"
)

// Kind tags an Error so callers can branch on the failure class without
// matching messages.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindCapacityExceeded
	KindConflict
	KindEmptyCart
	KindMissingContactInfo
	KindUpstream
)

var kindNames = map[Kind]string{
	KindInternal:           "internal_error",
	KindValidation:         "validation_error",
	KindNotFound:           "not_found",
	KindCapacityExceeded:   "capacity_exceeded",
	KindConflict:           "conflict",
	KindEmptyCart:          "empty_cart",
	KindMissingContactInfo: "missing_contact_info",
	KindUpstream:           "upstream_error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

type Error struct {
	Kind    Kind
	Message string

	// CapacityExceeded: how many units the caller may still request.
	MaxPermitted int

	// Upstream: provider HTTP status (0 when unknown) and raw detail payload.
	UpstreamStatus int
	Details        any

	// Timeout marks an upstream call that did not answer in time.
	Timeout bool

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConflict:
		return true
	case KindUpstream:
		return e.Timeout || e.UpstreamStatus == 0 || e.UpstreamStatus >= 500
	}
	return false
}

func (e *Error) WithErr(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func CapacityExceeded(maxPermitted int, format string, args ...any) *Error {
	return &Error{Kind: KindCapacityExceeded, MaxPermitted: maxPermitted, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
}

func MissingContactInfo() *Error {
	return &Error{Kind: KindMissingContactInfo, Message: "user has no email configured"}
}

func Upstream(status int, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, UpstreamStatus: status, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors that carry no tag.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
