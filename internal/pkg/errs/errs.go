// Package errs is a thin layer over cockroachdb/errors so call sites keep stack traces and
// sentinel marks without importing the library directly.
package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func New(msg string) error {
	return cr.New(msg)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

// Mark attaches markErr as an identity for errors.Is while keeping err's message.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &markedError{err: cr.Mark(err, markErr)}
}

// markedError makes cockroach marks visible to the standard errors.Is.
type markedError struct {
	err error
}

func (e *markedError) Error() string        { return e.err.Error() }
func (e *markedError) Unwrap() error        { return e.err }
func (e *markedError) Is(target error) bool { return cr.Is(e.err, target) }

func Is(err, target error) bool {
	return cr.Is(err, target)
}

// WithHint records text that is safe to show to an operator.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return cr.WithHint(err, hint)
}

func Hints(err error) string {
	return cr.FlattenHints(err)
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	lines := strings.Split(fmt.Sprintf("%+v", err), "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
