package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/CrazyForks/subconverter-go/internal/compiler"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/upload"
)

type convertHandler struct {
	opt     Options
	metrics *metrics
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok\n")
}

func (h *convertHandler) handleSub(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertGET(r)
	if err != nil {
		h.writeErrorFromErr(w, err)
		return
	}
	h.serveConvert(w, r, req)
}

func (h *convertHandler) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertPOST(r)
	if err != nil {
		h.writeErrorFromErr(w, err)
		return
	}
	h.serveConvert(w, r, req)
}

func (h *convertHandler) serveConvert(w http.ResponseWriter, r *http.Request, req convertRequest) {
	res, err := h.runConvert(r.Context(), req)
	if err != nil {
		h.writeErrorFromErr(w, err)
		return
	}
	writeDocument(w, http.StatusOK, res.Headers, res.Content)
}

func (h *convertHandler) runConvert(ctx context.Context, req convertRequest) (*compiler.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opt.ConvertTimeout)
	defer cancel()

	p, err := h.buildParams(ctx, req, h.opt.Settings.Current())
	if err != nil {
		return nil, err
	}
	cfg, err := compiler.NewConfig(p)
	if err != nil {
		return nil, err
	}
	return h.opt.Compiler.Compile(ctx, cfg)
}

// Convert runs one conversion described by /sub query parameters without
// going through the HTTP layer.
func Convert(ctx context.Context, opt Options, q url.Values) (*compiler.Result, error) {
	req, err := parseConvertQuery(q)
	if err != nil {
		return nil, err
	}
	h := &convertHandler{opt: opt.withDefaults()}
	return h.runConvert(ctx, req)
}

// handlePublished serves a document stored by an earlier upload.
func (h *convertHandler) handlePublished(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.URL.Query().Get("token")) {
		h.writeErrorFromErr(w, apiError(http.StatusUnauthorized, model.AppError{
			Code:    "UNAUTHORIZED",
			Message: "token 无效",
			Stage:   "validate_request",
		}, nil))
		return
	}
	path := strings.TrimSpace(chi.URLParam(r, "*"))
	rec, err := h.opt.Documents.Get(r.Context(), path)
	if errors.Is(err, upload.ErrNotFound) {
		h.writeErrorFromErr(w, apiError(http.StatusNotFound, model.AppError{
			Code:    "NOT_FOUND",
			Message: "发布的文档不存在",
			Stage:   "publish",
			Snippet: path,
		}, err))
		return
	}
	if err != nil {
		h.writeErrorFromErr(w, err)
		return
	}
	writeDocument(w, http.StatusOK, map[string]string{
		"Last-Modified": rec.UpdatedAt.UTC().Format(http.TimeFormat),
	}, rec.Content)
}
