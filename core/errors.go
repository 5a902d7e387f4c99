package core

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrorCode classifies every failure the library can report.
// The numeric values are stable and match the collector-side documentation.
type ErrorCode int

const (
	CodeSuccess ErrorCode = iota
	CodeGenericFailure
	CodeTransportFailure
	CodeConcurrencyFailure
	CodeOutOfMemory
	CodeBufferFull
	CodeHandlerInactive
	CodeNoMetadata
	CodeBadMetadata
	CodeBadJSONFormat
	CodeJSONKeyNotFound
)

var codeNames = map[ErrorCode]string{
	CodeSuccess:            "SUCCESS",
	CodeGenericFailure:     "GEN_FAIL",
	CodeTransportFailure:   "TRANSPORT_FAIL",
	CodeConcurrencyFailure: "CONCURRENCY_FAIL",
	CodeOutOfMemory:        "OUT_OF_MEMORY",
	CodeBufferFull:         "BUFFER_FULL",
	CodeHandlerInactive:    "HANDLER_INACTIVE",
	CodeNoMetadata:         "NO_METADATA",
	CodeBadMetadata:        "BAD_METADATA",
	CodeBadJSONFormat:      "BAD_JSON_FORMAT",
	CodeJSONKeyNotFound:    "JSON_KEY_NOT_FOUND",
}

// String returns the upper-case name used in log lines and health output.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

// Standard sentinel errors for comparison using errors.Is().
// There is exactly one sentinel per ErrorCode other than CodeSuccess.
var (
	ErrGenericFailure     = errors.New("generic failure")
	ErrTransportFailure   = errors.New("transport failure")
	ErrConcurrencyFailure = errors.New("concurrency failure")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrBufferFull         = errors.New("event buffer full")
	ErrHandlerInactive    = errors.New("event handler inactive")
	ErrNoMetadata         = errors.New("no metadata available")
	ErrBadMetadata        = errors.New("bad metadata")
	ErrBadJSONFormat      = errors.New("bad JSON format")
	ErrJSONKeyNotFound    = errors.New("JSON key not found")

	// Configuration errors map to CodeGenericFailure.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrBufferFull, CodeBufferFull},
	{ErrHandlerInactive, CodeHandlerInactive},
	{ErrTransportFailure, CodeTransportFailure},
	{ErrConcurrencyFailure, CodeConcurrencyFailure},
	{ErrOutOfMemory, CodeOutOfMemory},
	{ErrNoMetadata, CodeNoMetadata},
	{ErrBadMetadata, CodeBadMetadata},
	{ErrBadJSONFormat, CodeBadJSONFormat},
	{ErrJSONKeyNotFound, CodeJSONKeyNotFound},
	{ErrGenericFailure, CodeGenericFailure},
}

// Error provides structured error information with context.
// It implements the error interface and supports error wrapping.
type Error struct {
	Op      string    // Operation that failed (e.g., "Engine.Post")
	Code    ErrorCode // Classification; derived from Err when zero
	Message string    // Human-readable message
	Err     error     // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if msg != "" && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if msg == "" {
		msg = e.code().String()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) code() ErrorCode {
	if e.Code != CodeSuccess {
		return e.Code
	}
	return codeFromChain(e.Err)
}

// NewError creates an Error whose code is derived from the wrapped sentinel.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// Errorf creates an Error carrying a formatted message on top of err.
func Errorf(op string, err error, format string, args ...interface{}) *Error {
	return &Error{Op: op, Err: err, Message: fmt.Sprintf(format, args...)}
}

// CodeOf classifies err. A nil error is CodeSuccess and an unrecognised
// error is CodeGenericFailure.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if errors.As(err, &e) && e.Code != CodeSuccess {
		return e.Code
	}
	return codeFromChain(err)
}

func codeFromChain(err error) ErrorCode {
	if err == nil {
		return CodeGenericFailure
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeGenericFailure
}

// failureSeq orders every Failure recorded in the process.
var failureSeq atomic.Uint64

// Failure is a recorded error. Seq increases across every engine and the
// package-level API, so the most recent of two records has the larger Seq.
type Failure struct {
	Seq     uint64
	Code    ErrorCode
	Message string
}

// NewFailure records err. It returns nil for a nil error.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Seq: failureSeq.Add(1), Code: CodeOf(err), Message: err.Error()}
}

// Latest returns whichever of a and b was recorded last. Either may be nil.
func Latest(a, b *Failure) *Failure {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Seq > a.Seq:
		return b
	}
	return a
}

// IsBufferFull reports whether err is a queue-capacity rejection
func IsBufferFull(err error) bool {
	return errors.Is(err, ErrBufferFull)
}

// IsInactive reports whether err is a lifecycle-state rejection
func IsInactive(err error) bool {
	return errors.Is(err, ErrHandlerInactive)
}

// IsMetadataError checks if an error came from identity discovery
func IsMetadataError(err error) bool {
	return errors.Is(err, ErrNoMetadata) ||
		errors.Is(err, ErrBadMetadata) ||
		errors.Is(err, ErrBadJSONFormat) ||
		errors.Is(err, ErrJSONKeyNotFound)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
