// Package translate talks to the public Google translation endpoint and
// extracts readable text from web pages.
package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"

// Result is one translation.
type Result struct {
	Src    string
	Dest   string
	Origin string
	Text   string
}

// Client calls the translate_a/single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns a Client for endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
}

// Translate translates text from src ("auto" to detect) into dest.
func (c *Client) Translate(ctx context.Context, text, dest, src string) (Result, error) {
	dest, src = strings.ToLower(strings.TrimSpace(dest)), strings.ToLower(strings.TrimSpace(src))
	if src == "" {
		src = "auto"
	}
	if _, ok := Lookup(dest); !ok {
		return Result{}, valueErrorf("invalid destination language %q", dest)
	}
	if _, ok := Lookup(src); !ok && src != "auto" {
		return Result{}, valueErrorf("invalid source language %q", src)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, valueErrorf("nothing to translate")
	}

	body, err := c.query(ctx, text, dest, src)
	if err != nil {
		return Result{}, err
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return Result{}, backendErrorf("unexpected response from translation service")
	}
	var sb strings.Builder
	for _, seg := range parsed.Get("0.#.0").Array() {
		sb.WriteString(seg.String())
	}
	detected := strings.ToLower(parsed.Get("2").String())
	if detected == "" {
		detected = src
	}
	return Result{Src: detected, Dest: dest, Origin: text, Text: sb.String()}, nil
}

// Detect returns the code of the language text is written in.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	res, err := c.Translate(ctx, text, "en", "auto")
	if err != nil {
		return "", err
	}
	return res.Src, nil
}

func (c *Client) query(ctx context.Context, text, dest, src string) ([]byte, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", src)
	q.Set("tl", dest)
	q.Set("dt", "t")
	q.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backendErrorf("translation service returned HTTP %d", resp.StatusCode)
	}
	return body, nil
}
