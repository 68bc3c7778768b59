package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind int

const (
	// KindNotFound means a referenced socket or user does not exist.
	KindNotFound Kind = iota
	// KindSocketError means the transmitter failed or timed out.
	KindSocketError
	// KindInvalidRequest means validation failed; see Error.Fields.
	KindInvalidRequest
	// KindPermissionDenied means the caller lacks the required permission.
	KindPermissionDenied
)

var kindNames = map[Kind]string{
	KindNotFound:         "NOT_FOUND",
	KindSocketError:      "SOCKET_ERROR",
	KindInvalidRequest:   "INVALID_REQUEST",
	KindPermissionDenied: "PERMISSION_DENIED",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Reason explains why a single field failed validation.
type Reason int

const (
	ReasonNotUnique Reason = iota
	ReasonNotProvided
	ReasonNotFound
	ReasonInvalidValue
)

var reasonNames = map[Reason]string{
	ReasonNotUnique:    "NOT_UNIQUE",
	ReasonNotProvided:  "NOT_PROVIDED",
	ReasonNotFound:     "NOT_FOUND",
	ReasonInvalidValue: "INVALID_VALUE",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason name.
func (r *Reason) UnmarshalText(text []byte) error {
	for reason, name := range reasonNames {
		if name == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("unknown field reason %q", text)
}

// FieldError names one offending field.
type FieldError struct {
	Field  string `json:"field"`
	Reason Reason `json:"type"`
}

// Error is a classified failure with optional field-level detail.
type Error struct {
	Kind    Kind         `json:"type"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`

	// Err is the underlying cause, if any. It is not serialised.
	Err error `json:"-"`
}

// Sentinel errors for errors.Is checks. They match any *Error of the same
// Kind regardless of message or fields.
var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrSocketError      = &Error{Kind: KindSocketError, Message: "transmission failed"}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Message: "permission denied"}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Fields: []FieldError{}}
}

// Wrap creates an error of the given kind carrying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Err = cause
	return e
}

// NotFound creates a NOT_FOUND error naming the field that failed to resolve.
func NotFound(message, field string) *Error {
	return New(KindNotFound, message).AddField(field, ReasonNotFound)
}

// Invalid creates an empty INVALID_REQUEST error to collect fields into.
func Invalid(message string) *Error {
	return New(KindInvalidRequest, message)
}

// AddField records a field failure and returns e for chaining.
func (e *Error) AddField(field string, reason Reason) *Error {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
	return e
}

// HasFields reports whether any field failures were recorded.
func (e *Error) HasFields() bool {
	return len(e.Fields) > 0
}

// Has reports whether field failed with reason.
func (e *Error) Has(field string, reason Reason) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Reason == reason {
			return true
		}
	}
	return false
}

// OrNil returns e as an error if it carries field failures, nil otherwise.
// It avoids handing a typed nil pointer to an error interface.
func (e *Error) OrNil() error {
	if e == nil || !e.HasFields() {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Reason.String())
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
