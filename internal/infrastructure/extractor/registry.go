// Package extractor dispatches uploads to a text extractor by file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
	"github.com/kirillkom/openplag/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/openplag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/openplag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/openplag/internal/infrastructure/extractor/xlsx"
)

type Registry struct {
	byExt map[string]ports.TextExtractor
}

func NewRegistry() *Registry {
	text := plaintext.NewExtractor()
	return &Registry{byExt: map[string]ports.TextExtractor{
		".txt":  text,
		".md":   text,
		".pdf":  pdf.NewExtractor(),
		".docx": docx.NewExtractor(),
		".xlsx": xlsx.NewExtractor(),
	}}
}

// Register adds or replaces the extractor for ext (with leading dot).
func (r *Registry) Register(ext string, ex ports.TextExtractor) {
	r.byExt[strings.ToLower(ext)] = ex
}

func (r *Registry) Supported() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ex, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("file type %q of %q", ext, filename))
	}
	return ex.Extract(ctx, filename, data)
}
