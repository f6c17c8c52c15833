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
	"regexp"
	"strings"
)

// LinkBuckets is the classified link set of one page. Entries keep their
// discovery order and duplicates are preserved; the buckets are a partition,
// not a set. External and the specialized buckets (social, documents,
// images, scripts) are mutually exclusive after classification.
type LinkBuckets struct {
	Internal  []string `json:"internal"`
	External  []string `json:"external"`
	Social    []string `json:"social"`
	Documents []string `json:"documents"`
	Images    []string `json:"images"`
	Scripts   []string `json:"scripts"`
}

// NamedBucket pairs a bucket with its reporting name
type NamedBucket struct {
	Name  string
	Links []string
}

// Ordered returns all buckets in their fixed reporting order. Empty buckets
// are included; renderers skip them.
func (b *LinkBuckets) Ordered() []NamedBucket {
	return []NamedBucket{
		{"internal", b.Internal},
		{"external", b.External},
		{"social", b.Social},
		{"documents", b.Documents},
		{"images", b.Images},
		{"scripts", b.Scripts},
	}
}

// Total returns the number of links across all buckets
func (b *LinkBuckets) Total() int {
	return len(b.Internal) + len(b.External) + len(b.Social) +
		len(b.Documents) + len(b.Images) + len(b.Scripts)
}

// All returns every link in bucket order, for flat (uncategorized) listings
func (b *LinkBuckets) All() []string {
	all := make([]string, 0, b.Total())
	for _, bucket := range b.Ordered() {
		all = append(all, bucket.Links...)
	}
	return all
}

// socialDomains is the fixed allow-list used to pull well-known platforms
// out of the external bucket. Subdomains match: www.facebook.com is social.
var socialDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"pinterest.com",
	"reddit.com",
	"threads.net",
	"bsky.app",
	"mastodon.social",
	"t.me",
	"telegram.org",
	"whatsapp.com",
	"snapchat.com",
	"discord.com",
	"discord.gg",
	"twitch.tv",
	"tumblr.com",
}

var (
	documentExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"}
	imageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico"}
	scriptExtensions   = []string{".js", ".css"}
)

// hrefPattern is the permissive fallback scan for anchor-like attributes in
// raw markup. It accepts either quote style.
var hrefPattern = regexp.MustCompile(`href\s*=\s*["']([^"']+)["']`)

// ClassifyLinks partitions a page's links into buckets. The structured
// internal/external arrays reported by the fetch are the preferred input;
// when both are empty the page content is scanned for href attributes
// instead. Only external links are re-partitioned into the specialized
// buckets; the internal bucket keeps every usable same-origin link, which is
// what the traversal enqueues from.
func ClassifyLinks(page *PageData, pageURL string) *LinkBuckets {
	return classify(page, pageURL, false)
}

// ClassifyAllLinks is the richer variant used by the link-extraction tool:
// internal links matching a document, image, or script extension are moved
// out of the internal bucket as well, so internal holds only the
// non-specialized remainder.
func ClassifyAllLinks(page *PageData, pageURL string) *LinkBuckets {
	return classify(page, pageURL, true)
}

func classify(page *PageData, pageURL string, repartitionInternal bool) *LinkBuckets {
	buckets := &LinkBuckets{}
	if page == nil {
		return buckets
	}

	if len(page.Links.Internal) == 0 && len(page.Links.External) == 0 {
		classifyFromContent(buckets, page.Content, pageURL, repartitionInternal)
		return buckets
	}

	for _, link := range page.Links.Internal {
		resolved := resolveCandidate(pageURL, link.Href)
		if resolved == "" {
			continue
		}
		if repartitionInternal && bucketizeByExtension(buckets, resolved) {
			continue
		}
		buckets.Internal = append(buckets.Internal, resolved)
	}
	for _, link := range page.Links.External {
		resolved := resolveCandidate(pageURL, link.Href)
		if resolved == "" {
			continue
		}
		bucketizeExternal(buckets, resolved)
	}
	return buckets
}

// classifyFromContent is the fallback path: scan raw markup for hrefs and
// split by hostname equality against the page's own URL. Unresolvable hrefs
// are dropped, same as the structured path.
func classifyFromContent(buckets *LinkBuckets, content, pageURL string, repartitionInternal bool) {
	for _, match := range hrefPattern.FindAllStringSubmatch(content, -1) {
		resolved := resolveCandidate(pageURL, match[1])
		if resolved == "" {
			continue
		}
		if SameHost(pageURL, resolved) {
			if repartitionInternal && bucketizeByExtension(buckets, resolved) {
				continue
			}
			buckets.Internal = append(buckets.Internal, resolved)
			continue
		}
		bucketizeExternal(buckets, resolved)
	}
}

// bucketizeExternal places an external link into its final bucket, testing
// in fixed priority: social domain, document extension, image extension,
// script extension, plain external.
func bucketizeExternal(buckets *LinkBuckets, link string) {
	host, err := Hostname(link)
	if err == nil && isSocialHost(host) {
		buckets.Social = append(buckets.Social, link)
		return
	}
	if bucketizeByExtension(buckets, link) {
		return
	}
	buckets.External = append(buckets.External, link)
}

// bucketizeByExtension files a link into documents, images, or scripts when
// its path extension matches. Returns false when no extension rule applies.
func bucketizeByExtension(buckets *LinkBuckets, link string) bool {
	ext := urlExtension(link)
	if ext == "" {
		return false
	}
	switch {
	case hasExtension(ext, documentExtensions):
		buckets.Documents = append(buckets.Documents, link)
	case hasExtension(ext, imageExtensions):
		buckets.Images = append(buckets.Images, link)
	case hasExtension(ext, scriptExtensions):
		buckets.Scripts = append(buckets.Scripts, link)
	default:
		return false
	}
	return true
}

func hasExtension(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func isSocialHost(host string) bool {
	for _, domain := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// resolveCandidate resolves href against the page URL and returns the
// absolute form, or "" when the link cannot be used: empty, unparsable, or
// a non-http(s) scheme such as mailto: or javascript:.
func resolveCandidate(pageURL, href string) string {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return ""
	}
	resolved, err := ResolveURL(pageURL, trimmed)
	if err != nil {
		return ""
	}
	if !IsHTTP(resolved) {
		return ""
	}
	return resolved
}
