package gguf

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic      = errors.New("invalid GGUF magic")
	ErrUnknownValueType  = errors.New("unknown metadata value type")
	ErrUnknownTensorType = errors.New("unknown tensor type")
	ErrTruncated         = errors.New("truncated input")
	ErrInvalidUTF8       = errors.New("invalid UTF-8 string")
)

// DecodeError locates a decode failure. Kind is one of the Err*
// sentinels above and is matched by errors.Is.
type DecodeError struct {
	Kind   error
	Offset uint64
	Field  string
	Detail string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("gguf: %v at offset %d (%s)", e.Kind, e.Offset, e.Field)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// KindName is a short stable label for metrics and logs.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMagic):
		return "magic"
	case errors.Is(err, ErrUnknownValueType):
		return "value_type"
	case errors.Is(err, ErrUnknownTensorType):
		return "tensor_type"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrInvalidUTF8):
		return "utf8"
	default:
		return "other"
	}
}
