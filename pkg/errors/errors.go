// Package errors defines coded errors for tracelens. Codes give the CLI
// stable exit diagnostics and let callers branch without string
// matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error class.
type Code string

const (
	// Input
	CodeFileNotFound     Code = "E101"
	CodeFilePermission   Code = "E102"
	CodeInvalidFormat    Code = "E103"
	CodeMissingColumn    Code = "E104"
	CodeInvalidTimestamp Code = "E105"

	// Analysis
	CodeParseFailed      Code = "E201"
	CodeEmptyLog         Code = "E202"
	CodeInconsistentData Code = "E203"
	CodeUnknownActivity  Code = "E204"

	// Output
	CodeWriteFailed    Code = "E301"
	CodeDiskFull       Code = "E302"
	CodeCompressionErr Code = "E303"

	// System
	CodeContextCanceled Code = "E401"
	CodeTimeout         Code = "E402"

	// Storage
	CodeDuckDBInit   Code = "E501"
	CodeDuckDBQuery  Code = "E502"
	CodeCacheFailed  Code = "E503"
	CodeUploadFailed Code = "E504"

	CodeUnknown Code = "E999"
)

// Detail is one key/value pair attached to an error. Details are kept
// in attachment order so Error output is deterministic.
type Detail struct {
	Key   string
	Value interface{}
}

// TraceLensError carries a code, a message, optional details and an
// optional cause.
type TraceLensError struct {
	Code    Code
	Message string
	Details []Detail
	Cause   error
}

func (e *TraceLensError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	for i, d := range e.Details {
		if i == 0 {
			sb.WriteString(" (")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", d.Key, d.Value)
	}
	if len(e.Details) > 0 {
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *TraceLensError) Unwrap() error {
	return e.Cause
}

// Is matches another TraceLensError by code.
func (e *TraceLensError) Is(target error) bool {
	t, ok := target.(*TraceLensError)
	return ok && e.Code == t.Code
}

// With appends a detail and returns the error for chaining.
func (e *TraceLensError) With(key string, value interface{}) *TraceLensError {
	e.Details = append(e.Details, Detail{Key: key, Value: value})
	return e
}

// New builds an error with the given code.
func New(code Code, message string) *TraceLensError {
	return &TraceLensError{Code: code, Message: message}
}

// Wrap attaches a code and message to err. Nil in, nil out.
func Wrap(err error, code Code, message string) *TraceLensError {
	if err == nil {
		return nil
	}
	return &TraceLensError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *TraceLensError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// FileNotFound reports a missing input file.
func FileNotFound(path string) *TraceLensError {
	return New(CodeFileNotFound, "file not found").With("path", path)
}

// EmptyLog reports a log that parsed but produced no cases.
func EmptyLog(path string) *TraceLensError {
	return New(CodeEmptyLog, "log contains no cases").With("path", path)
}

// UnknownActivity reports a target activity absent from the log.
func UnknownActivity(activity string) *TraceLensError {
	return New(CodeUnknownActivity, "activity not present in log").With("activity", activity)
}

// ParseError reports a malformed record with its location.
func ParseError(format string, row int, err error) *TraceLensError {
	return Wrap(err, CodeParseFailed, "parse error").With("format", format).With("row", row)
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err's chain, CodeUnknown when none.
func CodeOf(err error) Code {
	var te *TraceLensError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// Retryable reports whether the failure is transient: storage and
// timeout classes, not input or analysis ones.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeCacheFailed, CodeUploadFailed:
		return true
	}
	return false
}
