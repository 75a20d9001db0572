package errdef

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeTransport    Code = "transport"
	CodeSourceFormat Code = "source_format"
	CodeUnknownColor Code = "unknown_color"
	CodeUnknownStyle Code = "unknown_style"
	CodeMissingTheme Code = "missing_theme"
	CodeConfig       Code = "config"
	CodeFilesystem   Code = "filesystem"
	CodeHistory      Code = "history"
	CodeResolve      Code = "resolve"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf reports the outermost code in the chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return CodeUnknown
}

// Is reports whether any error in the chain carries code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) || e == nil {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}
