// Package exitcode maps command errors to process exit codes.
package exitcode

import (
	"errors"
	"io/fs"
	"strconv"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
)

// Code is a process exit status.
type Code int

const (
	Success            Code = 0
	UnknownError       Code = 1
	InvalidArguments   Code = 3
	FileSystemError    Code = 7
	ConfigurationError Code = 8
	IndexError         Code = 10 // a module, fragment or handoff was refused
)

// Error attaches an explicit exit code to an error.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(int(e.Code))
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with code. A nil err stays nil.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// FromError picks the exit code for err. An explicit *Error wins; otherwise
// the code is derived from well-known sentinels.
func FromError(err error) Code {
	if err == nil {
		return Success
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, implementors.ErrUnknownPolicy):
		return ConfigurationError
	case errors.Is(err, implementors.ErrInvalidModuleName),
		errors.Is(err, implementors.ErrDuplicateModule),
		errors.Is(err, implementors.ErrDoubleAttachment),
		errors.Is(err, implementors.ErrNilIntake),
		errors.Is(err, implementors.ErrEmptyInterface),
		errors.Is(err, implementors.ErrEmptyImplementor),
		errors.Is(err, implementors.ErrUnknownRelationKind),
		errors.Is(err, fragment.ErrEmptyFragment),
		errors.Is(err, fragment.ErrUnknownFormat):
		return IndexError
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return FileSystemError
	}
	return UnknownError
}
