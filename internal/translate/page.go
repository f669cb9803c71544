package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxRedirects = 5

// Article is the readable part of a web page.
type Article struct {
	Title string
	Text  string
}

// Fetcher downloads pages and extracts their article text.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a Fetcher with a bounded timeout and redirect chain.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}}
}

// validateURL checks that rawURL is http(s) with a host.
func validateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, valueErrorf("invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, valueErrorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, valueErrorf("missing domain in URL")
	}
	return u, nil
}

// Fetch downloads rawURL and extracts its article.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Article, error) {
	u, err := validateURL(strings.Trim(strings.TrimSpace(rawURL), "<>"))
	if err != nil {
		return Article{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Article{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Article{}, backendErrorf("fetch %s: HTTP %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return Article{}, fmt.Errorf("read %s: %w", u, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), resp.Request.URL)
	if err != nil {
		return Article{}, backendErrorf("no readable content at %s", u)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return Article{}, backendErrorf("no readable content at %s", u)
	}
	return Article{Title: strings.TrimSpace(article.Title), Text: text}, nil
}

// Truncate cuts s to at most n bytes on a rune boundary, preferring the last
// sentence end.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	head := s[:cut]
	if i := strings.LastIndexAny(head, ".!?"); i > cut/2 {
		return head[:i+1]
	}
	return head
}
