// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package remote is the HTTP client for the rendering service. All page
// rendering happens on the service side; this package only speaks its REST
// API. The /crawl endpoint doubles as the page-fetch capability behind the
// traversal engine.
package remote

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"

	"github.com/agentberlin/vinesnake"
)

var (
	// ErrNoBaseURL means the client was constructed without a service URL
	ErrNoBaseURL = errors.New("remote: base URL is required")
	// ErrNoURLs means a batch call was given nothing to fetch
	ErrNoURLs = errors.New("remote: at least one url is required")
	// ErrNoScripts means execute was called without scripts
	ErrNoScripts = errors.New("remote: at least one script is required")
	// ErrEmptyResult means the service answered 2xx but returned no usable
	// payload for the request
	ErrEmptyResult = errors.New("remote: service returned an empty result")
)

// ServiceError is a non-2xx answer from the rendering service. The body is
// kept verbatim so callers can surface the service's own diagnostics.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("rendering service returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client
type Options struct {
	// BaseURL is the root of the rendering service, e.g. http://localhost:11235
	BaseURL string
	// APIKey, when non-empty, is sent as a bearer token on every request
	APIKey string
	// Timeout bounds each call including body download. Zero selects 60s.
	Timeout time.Duration
	// MaxBodyBytes caps response bodies. Zero selects 10 MiB.
	MaxBodyBytes int64
	// UserAgent overrides the default request user agent
	UserAgent string
	// Logger receives per-call debug events
	Logger zerolog.Logger
}

// Client calls the rendering service. It implements vinesnake.Fetcher via
// the /crawl endpoint, so a Client can be handed directly to the traversal.
type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
	logger       zerolog.Logger
}

// NewClient builds a client for the service at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 * 1024 * 1024
	}
	if opts.UserAgent == "" {
		opts.UserAgent = vinesnake.DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		maxBodyBytes: opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
		logger:       opts.Logger,
	}, nil
}

// MarkdownOptions tunes a /md call. All fields are optional.
type MarkdownOptions struct {
	// Filter selects the service-side content filter: fit, raw, bm25, llm
	Filter string
	// Query focuses bm25/llm filtering on a topic
	Query string
	// Cache is the service cache directive for this call
	Cache string
}

// MarkdownResult is the outcome of a /md call
type MarkdownResult struct {
	URL      string `json:"url"`
	Filter   string `json:"filter"`
	Query    string `json:"query"`
	Cache    string `json:"cache"`
	Markdown string `json:"markdown"`
}

// Markdown fetches the markdown rendering of one page
func (c *Client) Markdown(ctx context.Context, pageURL string, opts MarkdownOptions) (*MarkdownResult, error) {
	payload := map[string]any{"url": pageURL}
	if opts.Filter != "" {
		payload["f"] = opts.Filter
	}
	if opts.Query != "" {
		payload["q"] = opts.Query
	}
	if opts.Cache != "" {
		payload["c"] = opts.Cache
	}

	var out MarkdownResult
	if err := c.post(ctx, "/md", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTML fetches the preprocessed HTML of one page
func (c *Client) HTML(ctx context.Context, pageURL string) (string, error) {
	var out struct {
		HTML string `json:"html"`
	}
	if err := c.post(ctx, "/html", map[string]any{"url": pageURL}, &out); err != nil {
		return "", err
	}
	if out.HTML == "" {
		return "", ErrEmptyResult
	}
	return out.HTML, nil
}

// Screenshot captures one page and returns the base64-encoded PNG payload.
// waitSeconds delays capture to let the page settle; zero means no delay.
func (c *Client) Screenshot(ctx context.Context, pageURL string, waitSeconds float64) (string, error) {
	payload := map[string]any{"url": pageURL}
	if waitSeconds > 0 {
		payload["screenshot_wait_for"] = waitSeconds
	}

	var out struct {
		Success    bool   `json:"success"`
		Screenshot string `json:"screenshot"`
	}
	if err := c.post(ctx, "/screenshot", payload, &out); err != nil {
		return "", err
	}
	if out.Screenshot == "" {
		return "", ErrEmptyResult
	}
	return out.Screenshot, nil
}

// PDF renders one page to PDF and returns the base64-encoded payload
func (c *Client) PDF(ctx context.Context, pageURL string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		PDF     string `json:"pdf"`
	}
	if err := c.post(ctx, "/pdf", map[string]any{"url": pageURL}, &out); err != nil {
		return "", err
	}
	if out.PDF == "" {
		return "", ErrEmptyResult
	}
	return out.PDF, nil
}

// JSResult is the outcome of one /execute_js call. Scripts run in the
// service's browser; Results holds one entry per script in order.
type JSResult struct {
	URL      string `json:"url"`
	Success  bool   `json:"success"`
	Results  []any  `json:"results"`
	Markdown string `json:"markdown"`
}

// ExecuteJS runs scripts on a page inside the remote browser and returns
// their results plus the post-execution markdown.
func (c *Client) ExecuteJS(ctx context.Context, pageURL string, scripts []string) (*JSResult, error) {
	if len(scripts) == 0 {
		return nil, ErrNoScripts
	}

	var out struct {
		URL               string `json:"url"`
		Success           bool   `json:"success"`
		JSExecutionResult struct {
			Success bool  `json:"success"`
			Results []any `json:"results"`
		} `json:"js_execution_result"`
		Markdown string `json:"markdown"`
	}
	err := c.post(ctx, "/execute_js", map[string]any{"url": pageURL, "scripts": scripts}, &out)
	if err != nil {
		return nil, err
	}
	return &JSResult{
		URL:      out.URL,
		Success:  out.Success,
		Results:  out.JSExecutionResult.Results,
		Markdown: out.Markdown,
	}, nil
}

// crawlResult is the per-URL wire shape of the /crawl endpoint. Link
// entries arrive as bare strings or {href, text} objects; Links handles
// both.
type crawlResult struct {
	URL          string          `json:"url"`
	Success      bool            `json:"success"`
	StatusCode   int             `json:"status_code"`
	Markdown     string          `json:"markdown"`
	HTML         string          `json:"html"`
	Links        vinesnake.Links `json:"links"`
	ErrorMessage string          `json:"error_message"`
}

// Crawl fetches one or more URLs in a single /crawl call. Results come back
// in request order; per-URL failures are unsuccessful entries, not errors.
func (c *Client) Crawl(ctx context.Context, urls []string, opts vinesnake.FetchOptions) ([]*vinesnake.PageData, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	payload := map[string]any{"urls": urls}
	crawlerConfig := map[string]any{}
	if opts.BypassCache {
		crawlerConfig["cache_mode"] = "BYPASS"
	}
	if opts.SessionID != "" {
		crawlerConfig["session_id"] = opts.SessionID
	}
	if len(crawlerConfig) > 0 {
		payload["crawler_config"] = crawlerConfig
	}

	var out struct {
		Success bool          `json:"success"`
		Results []crawlResult `json:"results"`
	}
	if err := c.post(ctx, "/crawl", payload, &out); err != nil {
		return nil, err
	}

	pages := make([]*vinesnake.PageData, 0, len(out.Results))
	for _, r := range out.Results {
		pages = append(pages, pageFromResult(r))
	}
	return pages, nil
}

// FetchPage implements vinesnake.Fetcher over the /crawl endpoint
func (c *Client) FetchPage(ctx context.Context, pageURL string, opts vinesnake.FetchOptions) (*vinesnake.PageData, error) {
	pages, err := c.Crawl(ctx, []string{pageURL}, opts)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no result for %s", ErrEmptyResult, pageURL)
	}
	return pages[0], nil
}

// pageFromResult converts one wire result into page data. Markdown is the
// preferred content; when the service sends only HTML the text is extracted
// locally so the traversal always sees readable content.
func pageFromResult(r crawlResult) *vinesnake.PageData {
	content := r.Markdown
	if content == "" && r.HTML != "" {
		content = vinesnake.ExtractText(r.HTML)
	}
	return &vinesnake.PageData{
		URL:        r.URL,
		Success:    r.Success,
		StatusCode: r.StatusCode,
		Content:    content,
		Links:      r.Links,
		Error:      r.ErrorMessage,
	}
}

// post sends one JSON request and decodes the JSON answer into out. Non-2xx
// statuses become a *ServiceError carrying the raw body.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := c.readBody(res)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", res.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("service call")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &ServiceError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readBody decompresses per Content-Encoding and enforces the body cap
func (c *Client) readBody(res *http.Response) ([]byte, error) {
	reader := io.Reader(res.Body)
	closers := []io.Closer{res.Body}

	switch strings.ToLower(strings.TrimSpace(res.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(res.Body)
	case "deflate":
		fl := flate.NewReader(res.Body)
		reader = fl
		closers = append(closers, fl)
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, c.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", vinesnake.ErrBodyTooLarge, c.maxBodyBytes)
	}
	return body, nil
}
