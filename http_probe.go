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

package vinesnake

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// ProbeResponse is the outcome of one direct HTTP fetch made by ProbeClient.
// Body is fully read, decompressed, and (for textual content types) decoded
// to UTF-8.
type ProbeResponse struct {
	// StatusCode is the final HTTP status after redirects
	StatusCode int
	// Body is the decoded response body
	Body []byte
	// ContentType is the Content-Type header of the final response
	ContentType string
	// Headers are the final response headers
	Headers http.Header
	// FinalURL is the URL that produced the final response, after redirects
	FinalURL string
}

// ProbeClient performs the small number of direct HTTP requests vinesnake
// makes itself: header probes for strategy detection, robots.txt fetches,
// and direct sitemap/feed/text document fetches. All rendered-page fetches
// go through the remote service instead.
type ProbeClient struct {
	// UserAgent is sent on every request
	UserAgent string
	// MaxBodySize caps direct downloads; bodies over the limit fail with
	// ErrBodyTooLarge. Zero means the default of 10 MiB.
	MaxBodySize int
	// MaxRedirects caps redirect following per request. Zero means the
	// default of 10.
	MaxRedirects int
	// DetectCharset enables charset sniffing for textual bodies served
	// without an explicit charset declaration
	DetectCharset bool

	client *http.Client
}

const (
	defaultProbeBodyLimit = 10 * 1024 * 1024
	defaultProbeRedirects = 10
)

// NewProbeClient creates a probe client with a tuned transport and sane
// timeouts.
func NewProbeClient() *ProbeClient {
	p := &ProbeClient{
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   defaultProbeBodyLimit,
		MaxRedirects:  defaultProbeRedirects,
		DetectCharset: true,
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
	p.client = &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= p.maxRedirects() {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
	return p
}

// SetClient replaces the underlying HTTP client. Used by tests to install a
// mock transport; the redirect cap is re-attached to the new client.
func (p *ProbeClient) SetClient(client *http.Client) {
	if client.CheckRedirect == nil {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= p.maxRedirects() {
				return ErrTooManyRedirects
			}
			return nil
		}
	}
	p.client = client
}

func (p *ProbeClient) maxRedirects() int {
	if p.MaxRedirects > 0 {
		return p.MaxRedirects
	}
	return defaultProbeRedirects
}

func (p *ProbeClient) maxBodySize() int {
	if p.MaxBodySize > 0 {
		return p.MaxBodySize
	}
	return defaultProbeBodyLimit
}

// ProbeContentType issues a HEAD request and returns the Content-Type of the
// response, or "" when the probe fails in any way. Probe failures are never
// surfaced as errors; strategy selection treats them as missing evidence.
func (p *ProbeClient) ProbeContentType(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", p.UserAgent)
	res, err := p.client.Do(req)
	if err != nil {
		return ""
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	return res.Header.Get("Content-Type")
}

// Get fetches a URL directly and returns the decoded response. Non-2xx
// statuses are not errors; callers inspect StatusCode. The body is
// decompressed according to Content-Encoding (gzip, brotli, deflate, plus
// the .xml.gz convention some sitemap hosts use) and re-encoded to UTF-8
// when the content type calls for it.
func (p *ProbeClient) Get(ctx context.Context, pageURL string) (*ProbeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, br, deflate")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := p.readBody(res)
	if err != nil {
		return nil, err
	}
	contentType := res.Header.Get("Content-Type")
	body, err = p.recodeCharset(body, contentType)
	if err != nil {
		return nil, err
	}

	finalURL := pageURL
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}
	return &ProbeResponse{
		StatusCode:  res.StatusCode,
		Body:        body,
		ContentType: contentType,
		Headers:     res.Header,
		FinalURL:    finalURL,
	}, nil
}

// readBody decompresses and reads the body, enforcing the size limit.
func (p *ProbeClient) readBody(res *http.Response) ([]byte, error) {
	limit := p.maxBodySize()
	var reader io.Reader = io.LimitReader(res.Body, int64(limit)+1)

	encoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	requestPath := ""
	if res.Request != nil && res.Request.URL != nil {
		requestPath = strings.ToLower(res.Request.URL.Path)
	}
	switch {
	case res.Uncompressed:
		// transport already decoded
	case strings.Contains(encoding, "gzip") || strings.HasSuffix(requestPath, ".xml.gz"):
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case strings.Contains(encoding, "br"):
		reader = brotli.NewReader(reader)
	case strings.Contains(encoding, "deflate"):
		fl := flate.NewReader(reader)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(body) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

// recodeCharset converts a textual body to UTF-8. Bodies with a declared
// non-UTF-8 charset are converted via the declaration; undeclared bodies are
// sniffed with chardet when DetectCharset is on. Binary content types pass
// through untouched.
func (p *ProbeClient) recodeCharset(body []byte, contentType string) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	lowered := strings.ToLower(contentType)
	if strings.Contains(lowered, "image/") ||
		strings.Contains(lowered, "video/") ||
		strings.Contains(lowered, "audio/") ||
		strings.Contains(lowered, "font/") ||
		strings.Contains(lowered, "application/pdf") ||
		strings.Contains(lowered, "application/octet-stream") {
		return body, nil
	}
	if strings.Contains(lowered, "charset") {
		if strings.Contains(lowered, "utf-8") || strings.Contains(lowered, "utf8") {
			return body, nil
		}
		return recodeBytes(body, contentType)
	}
	if !p.DetectCharset {
		return body, nil
	}
	detected, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil {
		return body, nil
	}
	if strings.EqualFold(detected.Charset, "utf-8") {
		return body, nil
	}
	return recodeBytes(body, "text/plain; charset="+detected.Charset)
}

func recodeBytes(body []byte, contentType string) ([]byte, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// Unknown label: better the raw bytes than nothing.
		return body, nil
	}
	return io.ReadAll(reader)
}
