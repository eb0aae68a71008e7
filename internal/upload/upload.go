// Package upload publishes rendered documents so clients can fetch them
// again under a stable path.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const stagePublish = "publish"

// Document is one rendered configuration to publish.
type Document struct {
	Path    string
	Target  string
	Content string
}

// Record is a stored document.
type Record struct {
	ID        string
	Path      string
	Target    string
	Content   string
	UpdatedAt time.Time
}

type Publisher interface {
	Publish(ctx context.Context, doc Document) error
}

// Nop discards every document.
type Nop struct{}

func (Nop) Publish(context.Context, Document) error { return nil }

type PublishError struct {
	AppError model.AppError
	Cause    error
}

func (e *PublishError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

func publishError(code, message, path string, cause error) *PublishError {
	return &PublishError{
		AppError: model.AppError{Code: code, Message: message, Stage: stagePublish, Snippet: path},
		Cause:    cause,
	}
}
