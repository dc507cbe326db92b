package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://html.duckduckgo.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Provider queries the JavaScript-free DuckDuckGo results page.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(opts Options) *Provider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}
}

func (p *Provider) TextSearch(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	results, err := resilience.Call(ctx, p.executor, "duckduckgo.search", func(ctx context.Context) ([]domain.SearchResult, error) {
		return p.search(ctx, query)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("duckduckgo search", err, resilience.ClassifyHTTPError)
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (p *Provider) search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	endpoint := p.baseURL + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search request: %w", err)
	}
	defer resp.Body.Close()

	// DuckDuckGo answers throttled clients with 202 and a challenge page.
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewHTTPStatusError("duckduckgo", "search", resp)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}
	return parseResults(doc), nil
}

func parseResults(doc *html.Node) []domain.SearchResult {
	var out []domain.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && hasClass(n, "result__a") {
			if target := resolveHref(attr(n, "href")); target != "" {
				out = append(out, domain.SearchResult{URL: target})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// resolveHref unwraps DuckDuckGo redirect links and drops ads and internal links.
func resolveHref(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if isDuckDuckGoHost(u.Host) {
		if u.Path != "/l/" {
			return ""
		}
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || isDuckDuckGoHost(u.Host) {
		return ""
	}
	return u.String()
}

func isDuckDuckGoHost(host string) bool {
	host = strings.ToLower(host)
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
