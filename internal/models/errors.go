package models

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an error so callers can dispatch on it without reading the message
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Range is an inclusive numeric bound
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the bound
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ValidationError describes one rejected input field
type ValidationError struct {
	Field  string      `json:"field"`
	Value  interface{} `json:"-"`
	Range  *Range      `json:"range,omitempty"`
	Reason string      `json:"reason"`
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Kind returns KindValidation
func (e *ValidationError) Kind() Kind {
	return KindValidation
}

// ValidationErrors collects every violation found while checking an input
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	reasons := make([]string, 0, len(v))
	for _, e := range v {
		reasons = append(reasons, e.Reason)
	}
	return strings.Join(reasons, "; ")
}

// Kind returns KindValidation
func (v ValidationErrors) Kind() Kind {
	return KindValidation
}

// Fields returns the names of the rejected fields in the order they were checked
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, e := range v {
		fields = append(fields, e.Field)
	}
	return fields
}

// StorageError wraps any failure reported by the store
type StorageError struct {
	Op    string
	Query string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Kind returns KindStorage
func (e *StorageError) Kind() Kind {
	return KindStorage
}

// KindOf walks the error chain and reports the first classified kind it finds
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return KindValidation
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	var serr *StorageError
	if errors.As(err, &serr) {
		return KindStorage
	}
	return KindUnknown
}

// AsValidationErrors extracts the validation failures carried by err, if any.
// A single ValidationError is returned as a one-element list.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ValidationErrors{verr}, true
	}
	return nil, false
}
