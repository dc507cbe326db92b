package plaintext

import (
	"context"
	"testing"

	"github.com/kirillkom/openplag/internal/core/domain"
)

func TestExtractTrimsAndStripsBOM(t *testing.T) {
	text, err := NewExtractor().Extract(context.Background(), "a.txt", []byte("\xEF\xBB\xBF  essay text \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "essay text" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "a.txt", []byte{0xff, 0xfe, 0x00})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
