// Package render encodes the canonical node list, groups and rulesets into
// client configuration documents, one renderer per target kind.
package render

import (
	"errors"
	"fmt"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const stageRender = "render"

// ErrUnimplementedTarget is wrapped by the RenderError returned for target
// kinds that have no renderer.
var ErrUnimplementedTarget = errors.New("target not implemented")

// Input is everything a renderer needs. Rulesets is the caller's scratch
// copy; renderers may reshape it.
type Input struct {
	Nodes    []model.Proxy
	Base     string
	Rulesets []model.RulesetContent
	Groups   []model.ProxyGroupConfig
	Extra    model.ExtraSettings
	Target   model.Target
}

type Renderer interface {
	Render(in Input) (string, error)
}

type RendererFunc func(in Input) (string, error)

func (f RendererFunc) Render(in Input) (string, error) { return f(in) }

var registry = map[model.TargetKind]Renderer{
	model.TargetClash:     RendererFunc(renderClash),
	model.TargetClashR:    RendererFunc(renderClash),
	model.TargetSurge:     RendererFunc(renderSurge),
	model.TargetSurfboard: RendererFunc(renderSurge),
	model.TargetQuanX:     RendererFunc(renderQuanX),
	model.TargetQuan:      RendererFunc(renderQuan),
	model.TargetLoon:      RendererFunc(renderLoon),
	model.TargetMellow:    RendererFunc(renderMellow),
	model.TargetSSSub:     RendererFunc(renderSSSub),
	model.TargetSingBox:   RendererFunc(renderSingBox),
	model.TargetSS:        RendererFunc(renderLinks),
	model.TargetSSR:       RendererFunc(renderLinks),
	model.TargetV2Ray:     RendererFunc(renderLinks),
	model.TargetTrojan:    RendererFunc(renderLinks),
	model.TargetMixed:     RendererFunc(renderLinks),
}

// Lookup returns the renderer registered for kind.
func Lookup(kind model.TargetKind) (Renderer, bool) {
	r, ok := registry[kind]
	return r, ok
}

// Render dispatches in to the renderer of target.
func Render(target model.Target, in Input) (string, error) {
	r, ok := Lookup(target.Kind)
	if !ok {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "UNSUPPORTED_TARGET",
				Message: fmt.Sprintf("不支持的 target：%s", target),
				Stage:   stageRender,
			},
			Cause: ErrUnimplementedTarget,
		}
	}
	in.Target = target
	return r.Render(in)
}

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func renderError(code, message, snippet string, cause error) *RenderError {
	return &RenderError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   stageRender,
			Snippet: snippet,
		},
		Cause: cause,
	}
}
