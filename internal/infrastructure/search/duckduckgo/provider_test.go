package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

const resultsPage = `<html><body>
<div class="result results_links">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fessay%3Fid%3D1&amp;rut=abc">Essay</a>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fsnippet">snippet</a>
</div>
<div class="result result--ad">
  <a class="result__a" href="https://duckduckgo.com/y.js?ad_domain=ads.example">Ad</a>
</div>
<div class="result">
  <a class="result__a" href="https://direct.example.org/page">Direct</a>
</div>
<div class="result">
  <a class="result__a" href="https://third.example.net/">Third</a>
</div>
</body></html>`

func TestTextSearchParsesResults(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/html/" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	p := New(Options{BaseURL: server.URL})
	results, err := p.TextSearch(context.Background(), "copied sentence & more", 2)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if query != "copied sentence & more" {
		t.Fatalf("expected escaped query to round trip, got %q", query)
	}
	want := []domain.SearchResult{{URL: "https://example.com/essay?id=1"}, {URL: "https://direct.example.org/page"}}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("result %d: expected %s, got %s", i, want[i].URL, results[i].URL)
		}
	}
}

func TestTextSearchThrottledIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("anomaly"))
	}))
	defer server.Close()

	if _, err := New(Options{BaseURL: server.URL}).TextSearch(context.Background(), "q", 2); err == nil {
		t.Fatalf("expected error on challenge page")
	}
}

func TestTextSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	})
	results, err := New(Options{BaseURL: server.URL, Executor: exec}).TextSearch(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if calls.Load() != 2 || len(results) != 3 {
		t.Fatalf("expected 2 calls and 3 results, got %d calls and %d results", calls.Load(), len(results))
	}
}

func TestResolveHref(t *testing.T) {
	cases := map[string]string{
		"//duckduckgo.com/l/?uddg=http%3A%2F%2Fa.example%2F": "http://a.example/",
		"https://duckduckgo.com/y.js?ad=1":                   "",
		"//duckduckgo.com/l/?uddg=javascript%3Aalert(1)":     "",
		"/relative":                                          "",
		"https://b.example/x":                                "https://b.example/x",
	}
	for in, want := range cases {
		if got := resolveHref(in); got != want {
			t.Fatalf("resolveHref(%q): expected %q, got %q", in, want, got)
		}
	}
}
