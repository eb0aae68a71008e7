package template

import (
	"fmt"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// TemplateError reports a base document that cannot host the generated
// sections.
type TemplateError struct {
	AppError model.AppError
	Cause    error
}

func (e *TemplateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func templateError(code, msg, baseURL string) *TemplateError {
	return &TemplateError{AppError: model.AppError{
		Code:    code,
		Message: msg,
		Stage:   "render",
		URL:     baseURL,
	}}
}

func anchorMissing(baseURL, anchor string) error {
	return templateError("TEMPLATE_ANCHOR_MISSING", fmt.Sprintf("缺少锚点 %s", anchor), baseURL)
}

func anchorDup(baseURL, anchor string) error {
	return templateError("TEMPLATE_ANCHOR_DUP", fmt.Sprintf("锚点 %s 重复出现", anchor), baseURL)
}

func anchorNotStandalone(baseURL, line, anchor string) error {
	e := templateError("TEMPLATE_SECTION_ERROR", "锚点必须独占一行", baseURL)
	e.AppError.Snippet = line
	e.AppError.Hint = anchor
	return e
}

func sectionError(baseURL, msg string) error {
	return templateError("TEMPLATE_SECTION_ERROR", msg, baseURL)
}
