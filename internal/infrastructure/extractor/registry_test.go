package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/openplag/internal/core/domain"
)

type stubExtractor struct {
	got string
}

func (s *stubExtractor) Extract(_ context.Context, filename string, _ []byte) (string, error) {
	s.got = filename
	return "stub", nil
}

func TestRegistryDispatchesByExtension(t *testing.T) {
	reg := NewRegistry()
	text, err := reg.Extract(context.Background(), "Essay.TXT", []byte(" hello "))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "hello" {
		t.Fatalf("expected plain text extractor, got %q", text)
	}

	stub := &stubExtractor{}
	reg.Register(".RTF", stub)
	if text, err := reg.Extract(context.Background(), "notes.rtf", nil); err != nil || text != "stub" || stub.got != "notes.rtf" {
		t.Fatalf("expected registered extractor, got %q %v", text, err)
	}
}

func TestRegistryUnsupported(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), "slides.pptx", []byte("x"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if !strings.Contains(err.Error(), ".pptx") {
		t.Fatalf("expected extension in error, got %v", err)
	}
}

func TestRegistrySupported(t *testing.T) {
	got := strings.Join(NewRegistry().Supported(), ",")
	if got != ".docx,.md,.pdf,.txt,.xlsx" {
		t.Fatalf("unexpected supported list %q", got)
	}
}
