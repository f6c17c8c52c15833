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
	"compress/gzip"
	"net/http"
)

const testBaseURL = "http://test.local"

var robotsFile = `
User-agent: *
Allow: /allowed
Disallow: /disallowed
Disallow: /allowed*q=
`

var sitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>http://test.local/page1</loc></url>
	<url><loc>http://test.local/page2</loc></url>
	<url><loc>http://elsewhere.example/offsite</loc></url>
</urlset>`

var sitemapIndexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>http://test.local/sitemap-pages.xml</loc></sitemap>
	<sitemap><loc>http://test.local/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

var sitemapPagesXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>http://test.local/pages/a</loc></url>
	<url><loc>http://test.local/pages/b</loc></url>
</urlset>`

var sitemapPostsXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>http://test.local/posts/1</loc></url>
</urlset>`

var rssXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Test Feed</title>
	<item><title>First</title><link>http://test.local/post/1</link></item>
	<item><title>Second</title><link>http://test.local/post/2</link></item>
</channel>
</rss>`

var atomXML = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Test Feed</title>
	<entry>
		<link rel="self" href="http://test.local/entry/1.atom"/>
		<link rel="alternate" href="http://test.local/entry/1"/>
	</entry>
	<entry>
		<link href="http://test.local/entry/2"/>
	</entry>
</feed>`

var indexHTML = `<!DOCTYPE html>
<html>
<head><title>Index</title></head>
<body>
<a href="/allowed">allowed</a>
<a href="/disallowed">disallowed</a>
<a href="http://elsewhere.example/away">away</a>
</body>
</html>`

// setupMockTransport registers every endpoint the root-package tests share
func setupMockTransport() *MockTransport {
	mock := NewMockTransport()

	mock.RegisterHTML(testBaseURL+"/", indexHTML)
	mock.RegisterHTML(testBaseURL+"/html", `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<h1>Hello World</h1>
<p>This is a test page</p>
</body>
</html>`)

	mock.RegisterText(testBaseURL+"/robots.txt", robotsFile)
	mock.RegisterText(testBaseURL+"/allowed", "allowed")
	mock.RegisterText(testBaseURL+"/disallowed", "disallowed")
	mock.RegisterText(testBaseURL+"/plain.txt", "plain text document")

	mock.RegisterXML(testBaseURL+"/sitemap.xml", sitemapXML)
	mock.RegisterXML(testBaseURL+"/sitemap_index.xml", sitemapIndexXML)
	mock.RegisterXML(testBaseURL+"/sitemap-pages.xml", sitemapPagesXML)
	mock.RegisterXML(testBaseURL+"/sitemap-posts.xml", sitemapPostsXML)
	mock.RegisterXML(testBaseURL+"/rss.xml", rssXML)
	mock.RegisterXML(testBaseURL+"/atom.xml", atomXML)

	// Sitemap path that actually serves an HTML index of links
	mock.RegisterHTML(testBaseURL+"/sitemap", `<!DOCTYPE html>
<html><body>
<a href="/pages/a">a</a>
<a href="/pages/b">b</a>
</body></html>`)

	headers500 := make(http.Header)
	headers500.Set("Content-Type", "text/html")
	mock.RegisterResponse(testBaseURL+"/500", &MockResponse{
		StatusCode: 500,
		Body:       "<p>error</p>",
		Headers:    headers500,
	})

	redirectHeaders := make(http.Header)
	redirectHeaders.Set("Location", testBaseURL+"/html")
	mock.RegisterResponse(testBaseURL+"/redirect", &MockResponse{
		StatusCode: 301,
		Headers:    redirectHeaders,
	})

	gzipHeaders := make(http.Header)
	gzipHeaders.Set("Content-Type", "text/html; charset=utf-8")
	gzipHeaders.Set("Content-Encoding", "gzip")
	mock.RegisterResponse(testBaseURL+"/gzipped", &MockResponse{
		StatusCode: 200,
		Body:       gzipString("<html><body>compressed content</body></html>"),
		Headers:    gzipHeaders,
	})

	latinHeaders := make(http.Header)
	latinHeaders.Set("Content-Type", "text/html; charset=iso-8859-1")
	mock.RegisterResponse(testBaseURL+"/latin1", &MockResponse{
		StatusCode: 200,
		Body:       "caf\xe9",
		Headers:    latinHeaders,
	})

	mock.RegisterResponse(testBaseURL+"/user_agent", &MockResponse{
		StatusCode: 200,
		BodyFunc: func(req *http.Request) string {
			return req.Header.Get("User-Agent")
		},
	})

	return mock
}

// newMockProbeClient builds a ProbeClient whose requests are served by mock
func newMockProbeClient(mock *MockTransport) *ProbeClient {
	p := NewProbeClient()
	p.SetClient(&http.Client{Transport: mock})
	return p
}

func gzipString(s string) string {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(s))
	gz.Close()
	return buf.String()
}
