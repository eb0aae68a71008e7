package compiler

import (
	"fmt"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// ValidationError rejects a request before any I/O.
type ValidationError struct {
	AppError model.AppError
	Cause    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format(e.AppError, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// SourceError reports the main source that aborted a conversion.
type SourceError struct {
	AppError model.AppError
	URL      string
	Cause    error
}

func (e *SourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format(e.AppError, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }

// EmptyResultError means every source was resolved and no node remained.
type EmptyResultError struct {
	AppError model.AppError
	Cause    error
}

func (e *EmptyResultError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format(e.AppError, e.Cause)
}

func (e *EmptyResultError) Unwrap() error { return e.Cause }

func format(app model.AppError, cause error) string {
	if cause == nil {
		return fmt.Sprintf("%s: %s", app.Code, app.Message)
	}
	return fmt.Sprintf("%s: %s: %v", app.Code, app.Message, cause)
}
