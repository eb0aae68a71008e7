package httpapi

import (
	"context"
	"time"

	"github.com/CrazyForks/subconverter-go/internal/compiler"
	"github.com/CrazyForks/subconverter-go/internal/settings"
	"github.com/CrazyForks/subconverter-go/internal/upload"
	"github.com/prometheus/client_golang/prometheus"
)

// Documents serves published conversion results.
type Documents interface {
	Get(ctx context.Context, path string) (upload.Record, error)
}

// Options wires the HTTP API to the conversion pipeline.
type Options struct {
	// ConvertTimeout bounds a single conversion, fetches included.
	ConvertTimeout time.Duration

	Compiler *compiler.Compiler
	// Source reads external configs named by the config parameter.
	Source compiler.Source
	// Settings supplies request defaults; nil uses built-in defaults.
	Settings *settings.Store

	// Documents backs GET /p/*; nil disables the route.
	Documents Documents
	// Token authorizes publishing and published reads. Empty authorizes
	// every request.
	Token string

	// Registry receives the API metrics; nil uses a private registry.
	Registry *prometheus.Registry
}

func (o Options) withDefaults() Options {
	if o.ConvertTimeout <= 0 {
		o.ConvertTimeout = 60 * time.Second
	}
	if o.Compiler == nil {
		o.Compiler = compiler.New(compiler.Options{Source: o.Source})
	}
	if o.Source == nil {
		o.Source = o.Compiler.Source()
	}
	if o.Settings == nil {
		o.Settings = settings.NewStore(nil)
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	return o
}
