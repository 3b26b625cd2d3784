package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrorKind classifies a MigrationError.
type ErrorKind string

// Error kinds.
const (
	KindInvalidLayer         ErrorKind = "InvalidLayer"
	KindInvalidMediaCategory ErrorKind = "InvalidMediaCategory"
	KindInvalidMediaSubclass ErrorKind = "InvalidMediaSubclass"
	KindInvalidSource        ErrorKind = "InvalidSource"
	KindInvalidTarget        ErrorKind = "InvalidTarget"
	KindSourceEqualsTarget   ErrorKind = "SourceEqualsTarget"
	KindSourceReadFailed     ErrorKind = "SourceReadFailed"
	KindSinkWriteFailed      ErrorKind = "SinkWriteFailed"
	KindCatalogWriteFailed   ErrorKind = "CatalogWriteFailed"
	KindTypeCastFailed       ErrorKind = "TypeCastFailed"
	KindTransformFailed      ErrorKind = "TransformFailed"
	KindConfiguration        ErrorKind = "Configuration"
	KindSimulatedTestError   ErrorKind = "SimulatedTestError"
)

// ErrSimulatedFault is the generic failure raised when every exception
// path is simulated. It is deliberately not a MigrationError.
var ErrSimulatedFault = errors.New("simulated unhandled fault")

// SourceLocation is the code location where a failure originated.
type SourceLocation struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// MigrationError is the error type raised by pipeline stages.
type MigrationError struct {
	Kind    ErrorKind
	Message string
	// Value is the rejected input, if any.
	Value string
	// Accepted lists the values that would have been valid.
	Accepted  []string
	Location  *SourceLocation
	Simulated bool
	Err       error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, ": %q", e.Value)
	}
	if len(e.Accepted) > 0 {
		fmt.Fprintf(&b, " (accepted: %s)", strings.Join(e.Accepted, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Errorf creates a MigrationError and records the caller as its location.
func Errorf(kind ErrorKind, format string, args ...any) *MigrationError {
	return &MigrationError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: CallerLocation(2),
	}
}

// WrapError creates a MigrationError around err and records the caller.
func WrapError(kind ErrorKind, err error, format string, args ...any) *MigrationError {
	return &MigrationError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: CallerLocation(2),
		Err:      err,
	}
}

// InvalidValue creates a MigrationError for a rejected input together with
// the list of accepted values.
func InvalidValue(kind ErrorKind, message, value string, accepted []string) *MigrationError {
	return &MigrationError{
		Kind:     kind,
		Message:  message,
		Value:    value,
		Accepted: accepted,
		Location: CallerLocation(2),
	}
}

// KindOf returns the kind of the first MigrationError in err's chain,
// or an empty kind.
func KindOf(err error) ErrorKind {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsKind reports whether err carries a MigrationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// CallerLocation returns the code location skip frames up the stack,
// counted as runtime.Caller counts them.
func CallerLocation(skip int) *SourceLocation {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}
	loc := &SourceLocation{File: filepath.Base(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = fn.Name()
	}
	return loc
}
