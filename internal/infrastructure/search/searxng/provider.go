package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

// Provider queries a SearXNG instance with the JSON output format enabled.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL string, opts Options) (*Provider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("searxng base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}, nil
}

type searchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

func (p *Provider) TextSearch(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	resp, err := resilience.Call(ctx, p.executor, "searxng.search", func(ctx context.Context) (searchResponse, error) {
		return p.search(ctx, query)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("searxng search", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, domain.SearchResult{URL: r.URL})
		if maxResults > 0 && len(out) == maxResults {
			break
		}
	}
	return out, nil
}

func (p *Provider) search(ctx context.Context, query string) (searchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return searchResponse{}, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("searxng search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return searchResponse{}, resilience.NewHTTPStatusError("searxng", "search", resp)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return searchResponse{}, fmt.Errorf("decode searxng response: %w", err)
	}
	return out, nil
}
