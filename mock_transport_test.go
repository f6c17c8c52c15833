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

package vinesnake

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func roundTrip(t *testing.T, mock *MockTransport, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := mock.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMockTransportRegisterHTML(t *testing.T) {
	mock := NewMockTransport()
	url := "https://example.com/"
	html := `<html><head><title>Test Page</title></head><body>Content</body></html>`
	mock.RegisterHTML(url, html)

	resp := roundTrip(t, mock, url)
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", ct)
	}
	if got := readBody(t, resp); got != html {
		t.Fatalf("body = %q", got)
	}
}

func TestMockTransportContentTypeHelpers(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterXML("https://example.com/sitemap.xml", `<urlset></urlset>`)
	mock.RegisterText("https://example.com/robots.txt", "User-agent: *\n")
	mock.RegisterJSON("https://example.com/api", `{"ok":true}`)

	for _, test := range []struct {
		url  string
		want string
	}{
		{"https://example.com/sitemap.xml", "application/xml"},
		{"https://example.com/robots.txt", "text/plain"},
		{"https://example.com/api", "application/json"},
	} {
		resp := roundTrip(t, mock, test.url)
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, test.want) {
			t.Errorf("%s: Content-Type = %q, want %q", test.url, ct, test.want)
		}
	}
}

func TestMockTransportRegisterResponse(t *testing.T) {
	mock := NewMockTransport()
	headers := make(http.Header)
	headers.Set("Content-Type", "application/xml")
	headers.Set("X-Custom", "probe")
	mock.RegisterResponse("https://example.com/found", &MockResponse{
		StatusCode: 301,
		Body:       "moved",
		Headers:    headers,
	})

	resp := roundTrip(t, mock, "https://example.com/found")
	if resp.StatusCode != 301 {
		t.Fatalf("StatusCode = %d, want 301", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Custom"); got != "probe" {
		t.Fatalf("X-Custom = %q", got)
	}
	if got := readBody(t, resp); got != "moved" {
		t.Fatalf("body = %q", got)
	}
}

func TestMockTransportDefaultStatusCode(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterResponse("https://example.com/", &MockResponse{Body: "ok"})

	resp := roundTrip(t, mock, "https://example.com/")
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestMockTransportRegisterError(t *testing.T) {
	mock := NewMockTransport()
	wantErr := errors.New("connection refused")
	mock.RegisterError("https://example.com/down", wantErr)

	req, err := http.NewRequest("GET", "https://example.com/down", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = mock.RoundTrip(req)
	if !errors.Is(err, wantErr) {
		t.Fatalf("RoundTrip error = %v, want %v", err, wantErr)
	}
}

func TestMockTransportRegisterPattern(t *testing.T) {
	mock := NewMockTransport()
	if err := mock.RegisterPattern(`https://example\.com/pages/\d+`, &MockResponse{
		Body: "numbered page",
	}); err != nil {
		t.Fatal(err)
	}

	resp := roundTrip(t, mock, "https://example.com/pages/42")
	if got := readBody(t, resp); got != "numbered page" {
		t.Fatalf("body = %q", got)
	}

	// Exact registrations win over patterns.
	mock.RegisterHTML("https://example.com/pages/7", "exact")
	resp = roundTrip(t, mock, "https://example.com/pages/7")
	if got := readBody(t, resp); got != "exact" {
		t.Fatalf("body = %q, want exact match to take precedence", got)
	}
}

func TestMockTransportInvalidPattern(t *testing.T) {
	mock := NewMockTransport()
	if err := mock.RegisterPattern(`[invalid`, &MockResponse{Body: "x"}); err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}

func TestMockTransportBodyFunc(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterResponse("https://example.com/echo", &MockResponse{
		Body: "ignored",
		BodyFunc: func(req *http.Request) string {
			return req.Header.Get("User-Agent")
		},
	})

	req, err := http.NewRequest("GET", "https://example.com/echo", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("User-Agent", "vinesnake-test/1.0")
	resp, err := mock.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "vinesnake-test/1.0" {
		t.Fatalf("BodyFunc body = %q", body)
	}
}

func TestMockTransportUnregisteredURL(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterHTML("https://example.com/known", "known")

	resp := roundTrip(t, mock, "https://example.com/unknown")
	if resp.StatusCode != 404 {
		t.Fatalf("StatusCode = %d, want 404 for unregistered URL", resp.StatusCode)
	}
}

func TestMockTransportDelay(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterResponse("https://example.com/slow", &MockResponse{
		Body:  "slow",
		Delay: 30 * time.Millisecond,
	})

	start := time.Now()
	roundTrip(t, mock, "https://example.com/slow")
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("elapsed = %v, want at least 30ms", elapsed)
	}
}

func TestMockTransportReset(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterHTML("https://example.com/", "page")
	if err := mock.RegisterPattern(`https://example\.com/p/.*`, &MockResponse{Body: "p"}); err != nil {
		t.Fatal(err)
	}

	mock.Reset()

	resp := roundTrip(t, mock, "https://example.com/")
	if resp.StatusCode != 404 {
		t.Fatalf("StatusCode after Reset = %d, want 404", resp.StatusCode)
	}
	resp = roundTrip(t, mock, "https://example.com/p/1")
	if resp.StatusCode != 404 {
		t.Fatalf("pattern StatusCode after Reset = %d, want 404", resp.StatusCode)
	}
}

// TestMockTransportWithProbeClient drives the transport through ProbeClient,
// the way the strategy and robots tests use it.
func TestMockTransportWithProbeClient(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterXML("http://test.local/feed.xml", `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title></channel></rss>`)
	p := newMockProbeClient(mock)

	res, err := p.Get(context.Background(), "http://test.local/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.ContentType, "application/xml") {
		t.Fatalf("ContentType = %q", res.ContentType)
	}
	if !strings.Contains(string(res.Body), "<title>Feed</title>") {
		t.Fatalf("body = %q", res.Body)
	}
}
