package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

// DefaultUserAgent is a desktop browser string; many sites refuse unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var ErrUnsupportedContent = errors.New("unsupported content type")

type Config struct {
	Timeout         time.Duration
	MaxChars        int
	MaxBodyBytes    int64
	MaxConnsPerHost int
	UserAgent       string
}

func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxChars:        10000,
		MaxBodyBytes:    5 << 20,
		MaxConnsPerHost: 2,
		UserAgent:       DefaultUserAgent,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxChars <= 0 {
		c.MaxChars = def.MaxChars
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	return c
}

// Scraper downloads pages and reduces them to visible text.
type Scraper struct {
	client *http.Client
	cfg    Config
}

func New(cfg Config) *Scraper {
	cfg = cfg.normalize()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	return &Scraper{
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:    cfg,
	}
}

// Fetch never fails loudly: any problem is reported in FetchResult.Err.
func (s *Scraper) Fetch(ctx context.Context, url string) domain.FetchResult {
	text, err := s.fetch(ctx, url)
	return domain.FetchResult{URL: url, Text: text, Err: err}
}

func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resilience.NewHTTPStatusError("scraper", "fetch", resp)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType := ""
	if contentType != "" {
		mediaType, _, err = mime.ParseMediaType(contentType)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedContent, contentType)
		}
	}

	body := io.LimitReader(resp.Body, s.cfg.MaxBodyBytes)
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		decoded = body
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml", "":
		return ExtractText(decoded, s.cfg.MaxChars)
	case "text/plain":
		raw, err := io.ReadAll(decoded)
		if err != nil {
			return "", fmt.Errorf("read page body: %w", err)
		}
		return truncateRunes(collapseLines(string(raw)), s.cfg.MaxChars), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}
}

// ExtractText parses HTML and returns its visible text, one phrase per line,
// without script or style content, capped at maxChars runes.
func ExtractText(r io.Reader, maxChars int) (string, error) {
	doc, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	collectText(doc, &b)
	return truncateRunes(collapseLines(b.String()), maxChars), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// collapseLines trims every line, splits lines on double spaces and drops
// empty phrases.
func collapseLines(text string) string {
	var phrases []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				phrases = append(phrases, p)
			}
		}
	}
	return strings.Join(phrases, "\n")
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
