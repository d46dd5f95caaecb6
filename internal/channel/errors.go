package channel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordSize         = errors.New("channel record has wrong size")
	ErrUnknownChannelType = errors.New("unknown channel type")
	ErrReservedMismatch   = errors.New("reserved field mismatch")
	ErrTitleDecode        = errors.New("channel title cannot be decoded")
	ErrBlobTooSmall       = errors.New("channel list too small")
	ErrMisalignedBlob     = errors.New("channel list size not aligned to records")
	ErrChannelNotFound    = errors.New("no channel found")
)

// FormatError reports a malformed channel list or record. Kind is one of the
// sentinel errors above so callers can use errors.Is; Value holds the
// offending field value or size. Callers further up can append context with
// AddContext without losing the cause.
type FormatError struct {
	Kind    error
	Value   int
	Offset  int
	msg     string
	context []string
}

func newFormatError(kind error, value int, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Value: value, Offset: -1, msg: fmt.Sprintf(format, args...)}
}

func (e *FormatError) Error() string {
	if len(e.context) == 0 {
		return e.msg
	}
	return fmt.Sprintf("%s [context: %s]", e.msg, strings.Join(e.context, "; "))
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

// AddContext appends a piece of diagnostic context.
func (e *FormatError) AddContext(format string, args ...any) {
	e.context = append(e.context, fmt.Sprintf(format, args...))
}

// Context returns the context entries in the order they were added.
func (e *FormatError) Context() []string {
	return append([]string(nil), e.context...)
}

// NotFoundError is returned by Select when no title matches.
type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no channel found with title %q", e.Title)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrChannelNotFound
}
