package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/CrazyForks/subconverter-go/internal/compiler"
	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/profile"
	"github.com/CrazyForks/subconverter-go/internal/render"
	"github.com/CrazyForks/subconverter-go/internal/settings"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
	"github.com/CrazyForks/subconverter-go/internal/template"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func apiError(status int, app model.AppError, cause error) error {
	return &APIError{Status: status, AppError: app, Cause: cause}
}

func requestError(code, message, hint string) error {
	return apiError(http.StatusBadRequest, model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
		Hint:    hint,
	}, nil)
}

// classify maps err to a status and the client-facing AppError.
func classify(err error) (int, model.AppError) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status, ae.AppError
	}

	var ve *compiler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.AppError
	}

	// Upstream failures of a main source surface as 502 with the fetch
	// status; unparsable content is 422.
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		app := fe.AppError
		var se *compiler.SourceError
		if errors.As(err, &se) {
			app = se.AppError
		}
		return fe.Status, app
	}

	var se *compiler.SourceError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity, se.AppError
	}

	var ee *compiler.EmptyResultError
	if errors.As(err, &ee) {
		return http.StatusUnprocessableEntity, ee.AppError
	}

	var cpe *codec.ParseError
	if errors.As(err, &cpe) {
		return http.StatusUnprocessableEntity, cpe.AppError
	}

	var pe *profile.ParseError
	if errors.As(err, &pe) {
		return http.StatusUnprocessableEntity, pe.AppError
	}

	var spe *settings.ParseError
	if errors.As(err, &spe) {
		return http.StatusUnprocessableEntity, spe.AppError
	}

	var re *render.RenderError
	if errors.As(err, &re) {
		if errors.Is(re, render.ErrUnimplementedTarget) {
			return http.StatusBadRequest, re.AppError
		}
		return http.StatusUnprocessableEntity, re.AppError
	}

	var te *template.TemplateError
	if errors.As(err, &te) {
		return http.StatusUnprocessableEntity, te.AppError
	}

	return http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	}
}

func (h *convertHandler) writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status, app := classify(err)
	h.metrics.incAppError(app.Stage, app.Code)
	writeError(w, status, app)
}
