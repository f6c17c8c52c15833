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
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
)

// maxSitemapChildren caps how many nested sitemaps of a sitemap index are
// fetched. Indexes on large sites can list thousands.
const maxSitemapChildren = 32

// SitemapDocument is the parse outcome of one sitemap or feed document
type SitemapDocument struct {
	// URLs are the page URLs the document lists directly
	URLs []string
	// Children are nested sitemap URLs when the document is a sitemap index
	Children []string
}

// ParseSitemap parses body as a sitemap urlset, a sitemap index, an RSS
// channel, or an Atom feed. Returns ErrNotSitemap when the document is none
// of those.
func ParseSitemap(body []byte) (*SitemapDocument, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSitemap, err)
	}

	out := &SitemapDocument{}
	if xmlquery.FindOne(doc, "//urlset") != nil {
		for _, loc := range xmlquery.Find(doc, "//urlset/url/loc") {
			appendLoc(&out.URLs, loc.InnerText())
		}
		return out, nil
	}
	if xmlquery.FindOne(doc, "//sitemapindex") != nil {
		for _, loc := range xmlquery.Find(doc, "//sitemapindex/sitemap/loc") {
			appendLoc(&out.Children, loc.InnerText())
		}
		return out, nil
	}
	if xmlquery.FindOne(doc, "//rss") != nil {
		for _, link := range xmlquery.Find(doc, "//channel/item/link") {
			appendLoc(&out.URLs, link.InnerText())
		}
		return out, nil
	}
	if xmlquery.FindOne(doc, "//feed") != nil {
		for _, entry := range xmlquery.Find(doc, "//feed/entry") {
			appendLoc(&out.URLs, atomEntryLink(entry))
		}
		return out, nil
	}
	return nil, ErrNotSitemap
}

func appendLoc(urls *[]string, loc string) {
	loc = strings.TrimSpace(loc)
	if loc != "" {
		*urls = append(*urls, loc)
	}
}

// atomEntryLink picks an entry's page link, preferring rel="alternate" (or
// no rel) over enclosure/self links.
func atomEntryLink(entry *xmlquery.Node) string {
	fallback := ""
	for _, link := range xmlquery.Find(entry, "link") {
		href := link.SelectAttr("href")
		if href == "" {
			continue
		}
		rel := link.SelectAttr("rel")
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

// CollectSitemapURLs fetches sitemapURL and returns every page URL it lists,
// following one level of sitemap-index indirection. When the URL turns out
// to serve an HTML page instead of XML, its anchors are returned, since many
// sites put a human-readable index at their sitemap path.
func CollectSitemapURLs(ctx context.Context, probe *ProbeClient, sitemapURL string) ([]string, error) {
	if probe == nil {
		probe = NewProbeClient()
	}
	res, err := probe.Get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("sitemap fetch returned status %d", res.StatusCode)
	}

	urls, err := collectSitemapURLs(ctx, probe, res.Body)
	if err == nil {
		return urls, nil
	}
	if anchors := extractAnchorURLs(res.Body, sitemapURL); len(anchors) > 0 {
		return anchors, nil
	}
	return nil, err
}

// collectSitemapURLs parses body and expands sitemap-index children one
// level. Children that fail to fetch or parse are skipped; second-level
// indexes are not followed.
func collectSitemapURLs(ctx context.Context, probe *ProbeClient, body []byte) ([]string, error) {
	doc, err := ParseSitemap(body)
	if err != nil {
		return nil, err
	}
	urls := append([]string(nil), doc.URLs...)

	children := doc.Children
	if len(children) > maxSitemapChildren {
		children = children[:maxSitemapChildren]
	}
	for _, child := range children {
		res, err := probe.Get(ctx, child)
		if err != nil || res.StatusCode < 200 || res.StatusCode >= 300 {
			continue
		}
		childDoc, err := ParseSitemap(res.Body)
		if err != nil {
			continue
		}
		urls = append(urls, childDoc.URLs...)
	}
	return urls, nil
}

// extractAnchorURLs pulls anchor hrefs out of an HTML document, resolved
// against baseURL. Unusable hrefs are dropped.
func extractAnchorURLs(body []byte, baseURL string) []string {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var urls []string
	for _, a := range htmlquery.Find(doc, "//a[@href]") {
		resolved := resolveCandidate(baseURL, htmlquery.SelectAttr(a, "href"))
		if resolved != "" {
			urls = append(urls, resolved)
		}
	}
	return urls
}
