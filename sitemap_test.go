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
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParseSitemapURLSet(t *testing.T) {
	doc, err := ParseSitemap([]byte(sitemapXML))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/page1",
		"http://test.local/page2",
		"http://elsewhere.example/offsite",
	}
	if !reflect.DeepEqual(doc.URLs, want) {
		t.Fatalf("URLs = %v, want %v", doc.URLs, want)
	}
	if len(doc.Children) != 0 {
		t.Fatalf("Children = %v, want none", doc.Children)
	}
}

func TestParseSitemapIndex(t *testing.T) {
	doc, err := ParseSitemap([]byte(sitemapIndexXML))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/sitemap-pages.xml",
		"http://test.local/sitemap-posts.xml",
	}
	if !reflect.DeepEqual(doc.Children, want) {
		t.Fatalf("Children = %v, want %v", doc.Children, want)
	}
	if len(doc.URLs) != 0 {
		t.Fatalf("URLs = %v, want none", doc.URLs)
	}
}

func TestParseSitemapRSS(t *testing.T) {
	doc, err := ParseSitemap([]byte(rssXML))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/post/1",
		"http://test.local/post/2",
	}
	if !reflect.DeepEqual(doc.URLs, want) {
		t.Fatalf("URLs = %v, want %v", doc.URLs, want)
	}
}

func TestParseSitemapAtom(t *testing.T) {
	doc, err := ParseSitemap([]byte(atomXML))
	if err != nil {
		t.Fatal(err)
	}
	// rel="alternate" wins over rel="self"; a link with no rel counts too.
	want := []string{
		"http://test.local/entry/1",
		"http://test.local/entry/2",
	}
	if !reflect.DeepEqual(doc.URLs, want) {
		t.Fatalf("URLs = %v, want %v", doc.URLs, want)
	}
}

func TestParseSitemapNotSitemap(t *testing.T) {
	for _, body := range []string{
		`<?xml version="1.0"?><catalog><item>x</item></catalog>`,
		`<html><body>hello</body></html>`,
		`plain text`,
		``,
	} {
		if _, err := ParseSitemap([]byte(body)); !errors.Is(err, ErrNotSitemap) {
			t.Fatalf("ParseSitemap(%q) err = %v, want ErrNotSitemap", body, err)
		}
	}
}

func TestCollectSitemapURLs(t *testing.T) {
	mock := setupMockTransport()
	p := newMockProbeClient(mock)

	urls, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/sitemap.xml")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/page1",
		"http://test.local/page2",
		"http://elsewhere.example/offsite",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestCollectSitemapURLsIndex(t *testing.T) {
	mock := setupMockTransport()
	p := newMockProbeClient(mock)

	urls, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/sitemap_index.xml")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/pages/a",
		"http://test.local/pages/b",
		"http://test.local/posts/1",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestCollectSitemapURLsSkipsBrokenChildren(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterXML(testBaseURL+"/index.xml", `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>http://test.local/child-missing.xml</loc></sitemap>
	<sitemap><loc>http://test.local/child-ok.xml</loc></sitemap>
</sitemapindex>`)
	mock.RegisterXML(testBaseURL+"/child-ok.xml", `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>http://test.local/survivor</loc></url>
</urlset>`)
	p := newMockProbeClient(mock)

	urls, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/index.xml")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"http://test.local/survivor"}; !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestCollectSitemapURLsChildCap(t *testing.T) {
	var index strings.Builder
	index.WriteString(`<?xml version="1.0"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	mock := NewMockTransport()
	for i := 0; i < maxSitemapChildren+8; i++ {
		child := fmt.Sprintf("%s/child-%d.xml", testBaseURL, i)
		index.WriteString("<sitemap><loc>" + child + "</loc></sitemap>")
		mock.RegisterXML(child, fmt.Sprintf(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>http://test.local/from-%d</loc></url>
</urlset>`, i))
	}
	index.WriteString(`</sitemapindex>`)
	mock.RegisterXML(testBaseURL+"/big-index.xml", index.String())
	p := newMockProbeClient(mock)

	urls, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/big-index.xml")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != maxSitemapChildren {
		t.Fatalf("len(urls) = %d, want %d", len(urls), maxSitemapChildren)
	}
}

func TestCollectSitemapURLsHTMLFallback(t *testing.T) {
	mock := setupMockTransport()
	p := newMockProbeClient(mock)

	urls, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/sitemap")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://test.local/pages/a",
		"http://test.local/pages/b",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestCollectSitemapURLsFetchFailure(t *testing.T) {
	mock := setupMockTransport()
	p := newMockProbeClient(mock)

	if _, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/500"); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if _, err := CollectSitemapURLs(context.Background(), p, testBaseURL+"/missing.xml"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
