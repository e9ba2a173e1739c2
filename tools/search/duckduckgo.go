package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DuckDuckGo scrapes the HTML endpoint at html.duckduckgo.com. No API key
// required, which makes it the default provider.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// DuckDuckGoOption configures a DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo)

// WithDuckDuckGoBaseURL overrides the endpoint, mainly for tests.
func WithDuckDuckGoBaseURL(u string) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.baseURL = strings.TrimRight(u, "/") }
}

// WithDuckDuckGoHTTPClient overrides the HTTP client.
func WithDuckDuckGoHTTPClient(c *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.client = c }
}

// NewDuckDuckGo creates a DuckDuckGo search provider.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		baseURL: "https://html.duckduckgo.com",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

var (
	resultLinkRE    = regexp.MustCompile(`(?s)<a[^>]*class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippetRE = regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`)
	tagRE           = regexp.MustCompile(`<[^>]+>`)
)

// Search fetches the HTML results page and scrapes result links and
// snippets out of it.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u := d.baseURL + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("duckduckgo rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGoHTML(string(body), limit), nil
}

func parseDuckDuckGoHTML(page string, limit int) []Result {
	links := resultLinkRE.FindAllStringSubmatch(page, -1)
	snippets := resultSnippetRE.FindAllStringSubmatch(page, -1)

	var out []Result
	for i, m := range links {
		if len(out) >= limit {
			break
		}
		target := resolveRedirect(html.UnescapeString(m[1]))
		if target == "" {
			continue
		}
		r := Result{
			Title: cleanHTML(m[2]),
			URL:   target,
		}
		if i < len(snippets) {
			r.Snippet = cleanHTML(snippets[i][1])
		}
		out = append(out, r)
	}
	return out
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return href
}

func cleanHTML(s string) string {
	s = tagRE.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

const userAgent = "Mozilla/5.0 (compatible; scout/1.0)"
