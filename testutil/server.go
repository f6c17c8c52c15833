// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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

// Package testutil provides shared test utilities for vinesnake tests: a
// crawlable mock site with a small same-origin link graph, and a mock of
// the remote rendering service that answers the same REST endpoints.
package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Test data shared across tests
var (
	RobotsFile = `
User-agent: *
Disallow: /private
Disallow: /admin
`
	PlainTextBody = "Plain text notes about the crawl graph.\n"
)

// NewUnstartedSiteServer creates an unstarted HTTP test server hosting the
// crawl-target site. The page graph:
//
//	/  ->  /chain/a -> /chain/b -> /chain/c
//	   ->  /docs/guide <-> /docs/api -> /duplicate/{one,two}
//	   ->  /loop/x <-> /loop/y (and /loop/x -> /)
//	   ->  /plain.txt
//
// plus sitemap, feed, robots, redirect and error endpoints.
func NewUnstartedSiteServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(404)
			w.Write([]byte("not found"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
<title>Vinesnake Test Site</title>
</head>
<body>
<h1>Test Site</h1>
<p>Entry page of the crawl graph with one link per section.</p>
<a href="/chain/a">chain</a>
<a href="/docs/guide">guide</a>
<a href="/loop/x">loop</a>
<a href="/plain.txt">notes</a>
<a href="https://github.com/agentberlin/vinesnake">source</a>
<a href="https://twitter.com/agentberlin">updates</a>
<a href="https://cdn.example.net/logo.png">logo</a>
<a href="https://cdn.example.net/manual.pdf">manual</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/chain/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Chain A</title></head>
<body>
<h1>Chain A</h1>
<p>First hop of the linear chain.</p>
<a href="/chain/b">next</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/chain/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Chain B</title></head>
<body>
<h1>Chain B</h1>
<p>Second hop of the linear chain.</p>
<a href="/chain/c">next</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/chain/c", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Chain C</title></head>
<body>
<h1>Chain C</h1>
<p>End of the chain. No further links.</p>
</body>
</html>
`))
	})

	mux.HandleFunc("/docs/guide", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Guide</title></head>
<body>
<h1>Guide</h1>
<p>The guide describes traversal budgets and candidate filters.</p>
<a href="/docs/api">api reference</a>
<a href="/chain/a">chain</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/docs/api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>API Reference</title></head>
<body>
<h1>API Reference</h1>
<p>Operations exposed by the service.</p>
<a href="/docs/guide">back to guide</a>
<a href="/duplicate/one">first copy</a>
<a href="/duplicate/two">second copy</a>
</body>
</html>
`))
	})

	// Two URLs with byte-identical bodies, for duplicate detection.
	duplicateBody := []byte(`<!DOCTYPE html>
<html>
<head><title>Duplicate</title></head>
<body>
<p>Exactly the same body on two different URLs.</p>
</body>
</html>
`)
	mux.HandleFunc("/duplicate/one", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(duplicateBody)
	})
	mux.HandleFunc("/duplicate/two", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(duplicateBody)
	})

	mux.HandleFunc("/loop/x", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Loop X</title></head>
<body>
<p>Half of a two-page cycle.</p>
<a href="/loop/y">other half</a>
<a href="/">home</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/loop/y", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Loop Y</title></head>
<body>
<p>Other half of the cycle.</p>
<a href="/loop/x">back</a>
</body>
</html>
`))
	})

	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Private</title></head>
<body>
<p>Robots are asked to stay out of here.</p>
</body>
</html>
`))
	})

	mux.HandleFunc("/plain.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(PlainTextBody))
	})

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(RobotsFile))
	})

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write(siteSitemap(r.Host))
	})

	mux.HandleFunc("/sitemap.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		gz.Write(siteSitemap(r.Host))
	})

	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>http://%s/sitemap.xml</loc></sitemap>
</sitemapindex>
`, r.Host)
	})

	mux.HandleFunc("/rss.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Site Updates</title>
    <item><title>Guide</title><link>http://%[1]s/docs/guide</link></item>
    <item><title>Chain</title><link>http://%[1]s/chain/a</link></item>
  </channel>
</rss>
`, r.Host)
	})

	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		destination := "/chain/a"
		if d := r.URL.Query().Get("d"); d != "" {
			destination = d
		}
		http.Redirect(w, r, destination, http.StatusFound)
	})

	mux.HandleFunc("/500", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(500)
		w.Write([]byte("<p>error</p>"))
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		delay := 500 * time.Millisecond
		if ms := r.URL.Query().Get("ms"); ms != "" {
			if n, err := strconv.Atoi(ms); err == nil {
				delay = time.Duration(n) * time.Millisecond
			}
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<!DOCTYPE html>\n<html><body><p>finally</p></body></html>\n"))
	})

	return httptest.NewUnstartedServer(mux)
}

// NewSiteServer creates and starts the crawl-target test site.
func NewSiteServer() *httptest.Server {
	srv := NewUnstartedSiteServer()
	srv.Start()
	return srv
}

func siteSitemap(host string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>http://%[1]s/chain/a</loc></url>
  <url><loc>http://%[1]s/chain/b</loc></url>
  <url><loc>http://%[1]s/docs/guide</loc></url>
</urlset>
`, host)
	return buf.Bytes()
}

// ServiceCall is one recorded request to the mock render service.
type ServiceCall struct {
	// Path is the endpoint that was hit, e.g. "/crawl"
	Path string
	// Body is the decoded JSON request body
	Body map[string]any
}

// RenderService is an in-process stand-in for the remote rendering service.
// It answers the service's REST endpoints by fetching the requested pages
// itself and extracting their links, and it records every request body so
// tests can assert on what the client sent.
type RenderService struct {
	// Server is the underlying HTTP test server
	Server *httptest.Server
	// APIKey, when set before requests are made, makes every endpoint
	// demand a matching bearer token
	APIKey string
	// Delay, when set before requests are made, is slept before each
	// response. Used by timeout tests.
	Delay time.Duration

	client *http.Client

	mu    sync.Mutex
	calls []ServiceCall
}

// NewRenderServiceServer creates and starts a mock render service.
func NewRenderServiceServer() *RenderService {
	s := &RenderService{
		client: &http.Client{Timeout: 10 * time.Second},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/md", s.wrap(s.handleMarkdown))
	mux.HandleFunc("/html", s.wrap(s.handleHTML))
	mux.HandleFunc("/screenshot", s.wrap(s.handleScreenshot))
	mux.HandleFunc("/pdf", s.wrap(s.handlePDF))
	mux.HandleFunc("/execute_js", s.wrap(s.handleExecuteJS))
	mux.HandleFunc("/crawl", s.wrap(s.handleCrawl))
	s.Server = httptest.NewServer(mux)
	return s
}

// URL returns the base URL of the mock service.
func (s *RenderService) URL() string {
	return s.Server.URL
}

// Close shuts the mock service down.
func (s *RenderService) Close() {
	s.Server.Close()
}

// Calls returns a copy of every recorded request in arrival order.
func (s *RenderService) Calls() []ServiceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ServiceCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// LastCall returns the most recent request to the given endpoint path.
func (s *RenderService) LastCall(path string) (ServiceCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Path == path {
			return s.calls[i], true
		}
	}
	return ServiceCall{}, false
}

// CallCount reports how many requests hit the given endpoint path.
func (s *RenderService) CallCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

// Reset clears the recorded requests.
func (s *RenderService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

type renderHandler func(w http.ResponseWriter, body map[string]any)

func (s *RenderService) wrap(handler renderHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeServiceError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if s.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+s.APIKey {
			writeServiceError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		if s.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.Delay):
			}
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeServiceError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, ServiceCall{Path: r.URL.Path, Body: body})
		s.mu.Unlock()
		handler(w, body)
	}
}

func (s *RenderService) handleMarkdown(w http.ResponseWriter, body map[string]any) {
	pageURL, _ := body["url"].(string)
	if pageURL == "" {
		writeServiceError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	page, err := s.fetchPage(pageURL)
	if err != nil {
		writeServiceError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeServiceJSON(w, map[string]any{
		"url":      pageURL,
		"filter":   body["f"],
		"query":    body["q"],
		"cache":    body["c"],
		"markdown": textify(page),
	})
}

func (s *RenderService) handleHTML(w http.ResponseWriter, body map[string]any) {
	pageURL, _ := body["url"].(string)
	if pageURL == "" {
		writeServiceError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	page, err := s.fetchPage(pageURL)
	if err != nil {
		writeServiceError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeServiceJSON(w, map[string]any{
		"url":     pageURL,
		"html":    string(page),
		"success": true,
	})
}

func (s *RenderService) handleScreenshot(w http.ResponseWriter, body map[string]any) {
	pageURL, _ := body["url"].(string)
	if pageURL == "" {
		writeServiceError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	writeServiceJSON(w, map[string]any{
		"success":    true,
		"screenshot": base64.StdEncoding.EncodeToString(MinimalPNG()),
	})
}

func (s *RenderService) handlePDF(w http.ResponseWriter, body map[string]any) {
	pageURL, _ := body["url"].(string)
	if pageURL == "" {
		writeServiceError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	writeServiceJSON(w, map[string]any{
		"success": true,
		"pdf":     base64.StdEncoding.EncodeToString(MinimalPDF()),
	})
}

func (s *RenderService) handleExecuteJS(w http.ResponseWriter, body map[string]any) {
	pageURL, _ := body["url"].(string)
	if pageURL == "" {
		writeServiceError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	page, err := s.fetchPage(pageURL)
	if err != nil {
		writeServiceError(w, http.StatusBadGateway, err.Error())
		return
	}
	// Scripts are not executed; each one is echoed back as its own result.
	results := []any{}
	if scripts, ok := body["scripts"].([]any); ok {
		results = append(results, scripts...)
	}
	writeServiceJSON(w, map[string]any{
		"url":     pageURL,
		"success": true,
		"js_execution_result": map[string]any{
			"success": true,
			"results": results,
		},
		"markdown": textify(page),
	})
}

func (s *RenderService) handleCrawl(w http.ResponseWriter, body map[string]any) {
	rawURLs, _ := body["urls"].([]any)
	urls := make([]string, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if u, ok := raw.(string); ok {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		writeServiceError(w, http.StatusUnprocessableEntity, "urls is required")
		return
	}
	results := make([]any, 0, len(urls))
	for _, u := range urls {
		results = append(results, s.renderPage(u))
	}
	writeServiceJSON(w, map[string]any{
		"success": true,
		"results": results,
	})
}

// renderPage fetches one URL and builds the per-URL result shape of the
// /crawl endpoint. Unreachable or erroring pages come back as unsuccessful
// results, not endpoint errors, matching the real service's batch behavior.
func (s *RenderService) renderPage(pageURL string) map[string]any {
	res, err := s.client.Get(pageURL)
	if err != nil {
		return map[string]any{
			"url":           pageURL,
			"success":       false,
			"status_code":   0,
			"error_message": err.Error(),
		}
	}
	defer res.Body.Close()
	page, err := io.ReadAll(res.Body)
	if err != nil {
		return map[string]any{
			"url":           pageURL,
			"success":       false,
			"status_code":   res.StatusCode,
			"error_message": err.Error(),
		}
	}
	if res.StatusCode >= 400 {
		return map[string]any{
			"url":           pageURL,
			"success":       false,
			"status_code":   res.StatusCode,
			"error_message": fmt.Sprintf("fetch returned status %d", res.StatusCode),
		}
	}
	internal, external := extractPageLinks(pageURL, page)
	return map[string]any{
		"url":         pageURL,
		"success":     true,
		"status_code": res.StatusCode,
		"markdown":    textify(page),
		"html":        string(page),
		"links": map[string]any{
			"internal": internal,
			"external": external,
		},
	}
}

func (s *RenderService) fetchPage(pageURL string) ([]byte, error) {
	res, err := s.client.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}
	defer res.Body.Close()
	page, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream read failed: %w", err)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("upstream fetch returned status %d", res.StatusCode)
	}
	return page, nil
}

// extractPageLinks pulls anchor targets out of a page and splits them by
// host. Entries alternate between {href, text} objects and bare strings,
// the two wire forms the real service emits.
func extractPageLinks(pageURL string, page []byte) (internal, external []any) {
	internal = []any{}
	external = []any{}
	base, err := url.Parse(pageURL)
	if err != nil {
		return internal, external
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return internal, external
	}
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		var entry any = resolved.String()
		if i%2 == 0 {
			entry = map[string]string{
				"href": resolved.String(),
				"text": strings.TrimSpace(sel.Text()),
			}
		}
		if resolved.Host == base.Host {
			internal = append(internal, entry)
		} else {
			external = append(external, entry)
		}
	})
	return internal, external
}

// textify reduces an HTML body to single-spaced text, a cheap stand-in for
// the real service's markdown generation.
func textify(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return string(page)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func writeServiceError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeServiceJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// MinimalPNG returns a valid 1x1 PNG image.
func MinimalPNG() []byte {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	return buf.Bytes()
}

// MinimalPDF returns a one-page PDF document with a correct cross-reference
// table, small enough to embed in responses and real enough for PDF tooling
// to count its pages.
func MinimalPDF() []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 3)
	writeObj := func(obj string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}
	buf.WriteString("%PDF-1.4\n")
	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n")
	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}
