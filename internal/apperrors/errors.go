package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for translation at layer boundaries. Collaborator
// failures are wrapped into exactly one kind where they occur and logged once;
// callers map kinds to transport responses without inspecting concrete types.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindDependencyValidation
	KindDependency
	KindTimeout
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindDependencyValidation:
		return "dependency_validation"
	case KindDependency:
		return "dependency"
	case KindTimeout:
		return "timeout"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Error carries a kind, a human-readable message and an optional cause.
// Fields holds a field->message map for aggregated validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause. Wrapping an
// *Error again is a bug in the propagation policy; the original is kept
// untouched so the first classification wins.
func Wrap(kind Kind, message string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Validation builds an invalid-argument error from a field->message map.
func Validation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fields[f]))
	}
	return &Error{
		Kind:    KindInvalidArgument,
		Message: "validation failed: " + strings.Join(parts, "; "),
		Fields:  fields,
	}
}

// ProviderError pairs a provider name with the error its query produced.
type ProviderError struct {
	Provider string
	Err      error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// AggregateError combines the per-provider failures of one fan-out. It is
// logged once at the orchestration layer and only surfaced to the caller
// when every provider failed.
type AggregateError struct {
	Errors []ProviderError
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return fmt.Sprintf("%d provider queries failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

// Providers lists the names of the failed providers.
func (e *AggregateError) Providers() []string {
	names := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		names = append(names, pe.Provider)
	}
	return names
}
