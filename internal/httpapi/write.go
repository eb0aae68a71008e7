package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const contentTypeText = "text/plain; charset=utf-8"

func writeText(w http.ResponseWriter, status int, body string) {
	writeDocument(w, status, nil, body)
}

// writeDocument writes body as plain text after copying headers. A
// Content-Type in headers wins over the default.
func writeDocument(w http.ResponseWriter, status int, headers map[string]string, body string) {
	h := w.Header()
	h.Set("Content-Type", contentTypeText)
	for k, v := range headers {
		h.Set(k, v)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, e model.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Del("Content-Disposition")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: e})
}
