package ngsio

import (
	"errors"
	"fmt"
)

// Kind categorizes every error returned by the readers in this module.
type Kind byte

const (
	Unknown Kind = iota
	NotFound
	InvalidArgument
	DataLoss
	FailedPrecondition
	OutOfRange
	Internal
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	NotFound:           "not found",
	InvalidArgument:    "invalid argument",
	DataLoss:           "data loss",
	FailedPrecondition: "failed precondition",
	OutOfRange:         "out of range",
	Internal:           "internal",
}

func (k Kind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}

	return fmt.Sprintf("kind(%d)", byte(k))
}

// Error is a categorized error. Err, if set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	// Errorf already folds the cause into Message
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a categorized error from a format string. A %w verb in format
// becomes the cause.
func Errorf(kind Kind, format string, args ...interface{}) error {
	wrapped := fmt.Errorf(format, args...)

	return &Error{
		Kind:    kind,
		Message: wrapped.Error(),
		Err:     errors.Unwrap(wrapped),
	}
}

// Wrap categorizes err, which is kept as the cause. Wrap returns nil when err
// is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain. Errors that were
// never categorized are Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Unknown
}

// IsKind reports whether err is a categorized error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Kind == kind
}

// IsDecodeError reports whether err came from a malformed record rather than
// from the reader's state or the environment.
func IsDecodeError(err error) bool {
	return IsKind(err, DataLoss) || IsKind(err, Unknown)
}

// errExhausted is the end-of-data signal passed from a pull function to its
// Iterable. It never escapes Iterable.Next.
var errExhausted = &Error{Kind: OutOfRange, Message: "no more records"}

// Exhausted returns the end-of-data signal that pull functions hand to
// NewIterable's consumer.
func Exhausted() error {
	return errExhausted
}
