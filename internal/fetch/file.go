package fetch

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// ReadFile reads a local file under the same size and UTF-8 limits as a
// remote fetch.
func (f *Fetcher) ReadFile(kind Kind, path string) (string, error) {
	stage := kind.stage()
	maxBytes := f.opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = kind.defaultMaxBytes()
	}

	fh, err := os.Open(path)
	if err != nil {
		return "", newFetchError(http.StatusBadGateway, "FILE_READ_FAILED", "读取本地文件失败", stage, path, err)
	}
	defer fh.Close()

	body, err := io.ReadAll(io.LimitReader(fh, maxBytes+1))
	if err != nil {
		return "", newFetchError(http.StatusBadGateway, "FILE_READ_FAILED", "读取本地文件失败", stage, path, err)
	}
	if err := checkBody(body, maxBytes, stage, path); err != nil {
		return "", err
	}
	return string(body), nil
}

// Load fetches http(s) sources and reads everything else from disk.
func (f *Fetcher) Load(ctx context.Context, kind Kind, source string, proxySpec string) (string, error) {
	body, _, err := f.LoadMeta(ctx, kind, source, proxySpec)
	return body, err
}

// LoadMeta is Load that also returns the response metadata. Local files
// yield an empty Metadata.
func (f *Fetcher) LoadMeta(ctx context.Context, kind Kind, source string, proxySpec string) (string, Metadata, error) {
	if model.IsHTTPURL(source) {
		return f.Fetch(ctx, kind, source, proxySpec)
	}
	body, err := f.ReadFile(kind, source)
	return body, Metadata{}, err
}
