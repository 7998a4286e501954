// Package imgerr defines the error kinds shared by every decoder in this module.
// Each failure is reported as an *Error that wraps exactly one of the sentinel
// kinds below, so callers can branch with errors.Is.
package imgerr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	ErrFormat                 = errors.New("malformed field")
	ErrStructural             = errors.New("invalid chunk structure")
	ErrTruncated              = errors.New("truncated input")
	ErrIntegrity              = errors.New("checksum mismatch")
	ErrCorruptStream          = errors.New("corrupt compressed stream")
	ErrUnsupportedCompression = errors.New("unsupported method")
	ErrLimitExceeded          = errors.New("limit exceeded")
)

// Error carries the kind of a decode failure plus where it happened.
type Error struct {
	Kind   error  // one of the Err* sentinels
	Op     string // codec or stage, e.g. "png", "inflate", "pam"
	Chunk  string // PNG chunk type, if any
	Field  string // header field name, if any
	Offset int64  // byte offset into the input, -1 when unknown
	Msg    string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Chunk != "" {
		fmt.Fprintf(&sb, " in %s chunk", e.Chunk)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, " (field %s)", e.Field)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// New builds an *Error with no chunk, field or offset context.
func New(kind error, op string, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		Offset: -1,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// At sets the byte offset.
func (e *Error) At(offset int) *Error {
	e.Offset = int64(offset)
	return e
}

// InChunk sets the chunk type.
func (e *Error) InChunk(chunk string) *Error {
	e.Chunk = chunk
	return e
}

// WithField sets the offending header field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// KindOf returns the sentinel kind wrapped by err, or nil if err does not
// carry one.
func KindOf(err error) error {
	for _, k := range []error{
		ErrFormat, ErrStructural, ErrTruncated, ErrIntegrity,
		ErrCorruptStream, ErrUnsupportedCompression, ErrLimitExceeded,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
