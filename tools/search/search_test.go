package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/mcp"
)

func TestSanitizeQuery(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "go generics", "go generics"},
		{"control chars stripped", "go\x00 gen\x1ferics", "go generics"},
		{"whitespace collapsed", "  go \t\n generics  ", "go generics"},
		{"fullwidth normalized", "ｇｏ", "go"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeQuery(tc.in); got != tc.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	long := strings.Repeat("a", MaxQueryLength+100)
	if got := SanitizeQuery(long); len(got) != MaxQueryLength {
		t.Errorf("long query len = %d", len(got))
	}

	longUnicode := strings.Repeat("λ", MaxQueryLength+100)
	got := SanitizeQuery(longUnicode)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != MaxQueryLength {
		t.Errorf("long unicode query runes = %d", n)
	}
}

// fakeProvider returns canned results.
type fakeProvider struct {
	results []Result
	err     error
	gotQ    string
	gotN    int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	f.gotQ, f.gotN = query, limit
	return f.results, f.err
}

func execSearch(t *testing.T, p Provider, args string) (map[string]any, error) {
	t.Helper()
	result, err := Handler(p, nil).Execute(context.Background(), json.RawMessage(args))
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

func TestHandlerSearch(t *testing.T) {
	p := &fakeProvider{results: []Result{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language"},
	}}

	result, err := execSearch(t, p, `{"query":"  golang\n docs ","limit":2}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.gotQ != "golang docs" || p.gotN != 2 {
		t.Errorf("provider got %q / %d", p.gotQ, p.gotN)
	}
	if result["provider"] != "fake" || result["query"] != "golang docs" {
		t.Errorf("result = %v", result)
	}
	results := result["results"].([]Result)
	if len(results) != 1 || results[0].URL != "https://go.dev" {
		t.Errorf("results = %v", results)
	}
}

func TestHandlerLimitClamp(t *testing.T) {
	p := &fakeProvider{}
	if _, err := execSearch(t, p, `{"query":"x"}`); err != nil {
		t.Fatal(err)
	}
	if p.gotN != 3 {
		t.Errorf("default limit = %d", p.gotN)
	}

	if _, err := execSearch(t, p, `{"query":"x","limit":50}`); err != nil {
		t.Fatal(err)
	}
	if p.gotN != 5 {
		t.Errorf("clamped limit = %d", p.gotN)
	}
}

func TestHandlerMissingQuery(t *testing.T) {
	_, err := execSearch(t, &fakeProvider{}, `{"query":"  \t "}`)
	var terr *mcp.ToolError
	if !errors.As(err, &terr) || terr.Code != scout.CodeMissingParameter {
		t.Fatalf("err = %v", err)
	}
}

func TestHandlerProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	_, err := execSearch(t, p, `{"query":"x"}`)
	var terr *mcp.ToolError
	if !errors.As(err, &terr) || terr.Code != scout.CodeSearchFailed {
		t.Fatalf("err = %v", err)
	}
}

func TestHandlerProviderTimeout(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("search: %w", context.DeadlineExceeded)}
	_, err := execSearch(t, p, `{"query":"x"}`)
	var terr *mcp.ToolError
	if !errors.As(err, &terr) || terr.Code != scout.CodeSearchTimeout {
		t.Fatalf("err = %v", err)
	}
}

const ddgPage = `
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">Go <b>Documentation</b></a>
  <a class="result__snippet" href="#">Learn the <b>Go</b> language.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://pkg.go.dev/">pkg.go.dev</a>
  <a class="result__snippet" href="#">Package discovery.</a>
</div>
`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, ddgPage)
	}))
	defer ts.Close()

	d := NewDuckDuckGo(WithDuckDuckGoBaseURL(ts.URL))
	results, err := d.Search(context.Background(), "go docs", 5)
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "go docs" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].URL != "https://go.dev/doc/" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Title != "Go Documentation" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].Snippet != "Learn the Go language." {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if results[1].URL != "https://pkg.go.dev/" {
		t.Errorf("direct url = %q", results[1].URL)
	}
}

func TestDuckDuckGoLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgPage)
	}))
	defer ts.Close()

	d := NewDuckDuckGo(WithDuckDuckGoBaseURL(ts.URL))
	results, err := d.Search(context.Background(), "go", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("results = %+v", results)
	}
}

func TestDuckDuckGoRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	d := NewDuckDuckGo(WithDuckDuckGoBaseURL(ts.URL))
	_, err := d.Search(context.Background(), "go", 3)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v", err)
	}
}

func TestSerperSearch(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"organic":[
			{"title":"Go","link":"https://go.dev","snippet":"Golang"},
			{"title":"No link","snippet":"dropped"},
			{"title":"Pkg","link":"https://pkg.go.dev","snippet":"Packages"}
		]}`)
	}))
	defer ts.Close()

	s := NewSerper("secret", WithSerperBaseURL(ts.URL))
	results, err := s.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "secret" || gotBody["q"] != "golang" {
		t.Errorf("request: key=%q body=%v", gotKey, gotBody)
	}
	if len(results) != 2 || results[0].URL != "https://go.dev" || results[1].URL != "https://pkg.go.dev" {
		t.Errorf("results = %+v", results)
	}
}

func TestSerperBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer ts.Close()

	s := NewSerper("bad", WithSerperBaseURL(ts.URL))
	_, err := s.Search(context.Background(), "golang", 3)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}
