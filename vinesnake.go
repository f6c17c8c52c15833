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

// Package vinesnake implements a recursive site-traversal engine on top of a
// remote crawling/rendering service. The engine never fetches or renders a
// page itself: every page fetch is delegated to a Fetcher, and vinesnake owns
// only the traversal state (frontier, visited set, budgets), the link
// classification, and the content-type strategy selection.
package vinesnake

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	// Version is the vinesnake release version
	Version = "0.2.0"
	// DefaultUserAgent is the User-Agent used for direct probe requests
	// (strategy detection, robots.txt, sitemaps). Remote page fetches use
	// whatever the render service is configured with.
	DefaultUserAgent = "vinesnake/" + Version + " (+https://snake.blue)"
)

var (
	// ErrInvalidSeedURL is the error returned when a traversal is started
	// with a URL that cannot be parsed as an absolute http(s) URL
	ErrInvalidSeedURL = errors.New("invalid seed URL")
	// ErrInvalidIncludePattern is the error returned when the include
	// pattern does not compile as a regular expression
	ErrInvalidIncludePattern = errors.New("invalid include pattern")
	// ErrInvalidExcludePattern is the error returned when the exclude
	// pattern does not compile as a regular expression
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")
	// ErrMissingFetcher is the error returned when a traversal is created
	// without a fetch capability
	ErrMissingFetcher = errors.New("missing fetcher")
	// ErrBodyTooLarge is the error returned when a direct fetch exceeds the
	// probe client's body limit
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	// ErrTooManyRedirects is the error returned when a direct fetch follows
	// more redirects than the probe client allows
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNotSitemap is the error returned when a document cannot be parsed
	// as a sitemap, sitemap index, or feed
	ErrNotSitemap = errors.New("document is not a sitemap")
)

// Link is a single link reported by the render service. On the wire an entry
// is either a bare URL string or an object with href and text, so Link
// accepts both forms when unmarshaling.
type Link struct {
	// Href is the link target, possibly relative to the reporting page
	Href string `json:"href"`
	// Text is the anchor text, empty when the service reported a bare URL
	Text string `json:"text,omitempty"`
}

// UnmarshalJSON decodes a link entry from either a JSON string or a
// {href, text} object.
func (l *Link) UnmarshalJSON(data []byte) error {
	var href string
	if err := json.Unmarshal(data, &href); err == nil {
		l.Href = href
		l.Text = ""
		return nil
	}
	type linkObject struct {
		Href string `json:"href"`
		Text string `json:"text"`
	}
	var obj linkObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Href = obj.Href
	l.Text = obj.Text
	return nil
}

// Links contains the structured link sets a fetch reports for one page
type Links struct {
	// Internal links point to the same host as the page
	Internal []Link `json:"internal"`
	// External links point to other hosts
	External []Link `json:"external"`
}

// PageData is the outcome of one remote fetch for one URL
type PageData struct {
	// URL is the URL that was fetched
	URL string `json:"url"`
	// Success reports whether the remote service considers the fetch successful
	Success bool `json:"success"`
	// StatusCode is the HTTP status the remote service observed, 0 if unknown
	StatusCode int `json:"statusCode,omitempty"`
	// Content is the extracted text or markdown content of the page
	Content string `json:"content"`
	// Links are the structured links reported for the page. May be empty
	// even when the raw content contains anchors; the classifier falls back
	// to scanning Content in that case.
	Links Links `json:"links"`
	// Error carries the remote failure message when Success is false
	Error string `json:"error,omitempty"`
}

// FetchOptions tunes a single remote fetch
type FetchOptions struct {
	// BypassCache asks the remote service to skip its content cache
	BypassCache bool
	// SessionID reuses a remote browser session when non-empty
	SessionID string
}

// Fetcher is the external crawl capability: a black-box fetch-by-URL service.
// Implementations block until the fetch settles and report per-page failures
// through PageData.Success or an error; the traversal recovers from both.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string, opts FetchOptions) (*PageData, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, pageURL string, opts FetchOptions) (*PageData, error)

// FetchPage calls f
func (f FetcherFunc) FetchPage(ctx context.Context, pageURL string, opts FetchOptions) (*PageData, error) {
	return f(ctx, pageURL, opts)
}

// PageResult is one successfully visited page in a traversal
type PageResult struct {
	// URL is the canonical URL that was visited
	URL string `json:"url"`
	// Depth is the BFS depth, 0 for the seed
	Depth int `json:"depth"`
	// Content is the extracted content returned by the fetch
	Content string `json:"content"`
	// InternalLinks is the number of same-host links found on the page
	InternalLinks int `json:"internalLinks"`
	// Fingerprint is the normalized-content hash, empty if disabled
	Fingerprint string `json:"contentFingerprint,omitempty"`
	// DuplicateContent is true when an earlier page in the same traversal
	// produced the same fingerprint. Reporting only; duplicates are still
	// visited and returned.
	DuplicateContent bool `json:"duplicateContent,omitempty"`
}

// TraversalResult is the full outcome of one traversal run
type TraversalResult struct {
	// SeedURL is the starting URL as given by the caller
	SeedURL string `json:"seedUrl"`
	// Strategy is the fetch strategy selected for the seed
	Strategy Strategy `json:"strategy"`
	// Pages are the visited pages in visit order
	Pages []PageResult `json:"pages"`
	// MaxDepthReached is the deepest level any visited page had
	MaxDepthReached int `json:"maxDepthReached"`
	// FailedFetches counts pages that were attempted but failed
	FailedFetches int `json:"failedFetches"`
	// FilteredURLs counts candidates dropped by the include/exclude
	// patterns or the robots policy
	FilteredURLs int `json:"filteredUrls"`
	// DurationMs is the wall time of the run in milliseconds
	DurationMs int64 `json:"durationMs"`
}

// PagesCrawled returns the number of visited pages
func (r *TraversalResult) PagesCrawled() int {
	return len(r.Pages)
}

// OnPageFunc is called after each page is successfully visited
type OnPageFunc func(*PageResult)

// OnPageErrorFunc is called when a page fetch fails. The traversal has
// already decided to continue; the callback is informational.
type OnPageErrorFunc func(pageURL string, depth int, err error)

// OnCandidateFunc inspects a link before it is enqueued. Returning false
// vetoes the candidate. Used by the extensions package.
type OnCandidateFunc func(pageURL string, depth int) bool
