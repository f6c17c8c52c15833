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

// Package report renders crawl and link results as text for tool output and
// exports full crawl results as YAML for the CLI.
package report

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentberlin/vinesnake"
)

// maxLinksPerBucket caps how many links a categorized block lists before
// eliding the rest
const maxLinksPerBucket = 10

// CrawlSummary renders a finished traversal in the fixed text shape consumed
// by tool callers. maxDepth is the configured limit, not the depth reached.
func CrawlSummary(result *vinesnake.TraversalResult, maxDepth int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Recursive crawl completed:\n")
	fmt.Fprintf(&b, "Pages crawled: %d\n", result.PagesCrawled())
	fmt.Fprintf(&b, "Starting URL: %s\n", result.SeedURL)

	if result.PagesCrawled() == 0 {
		b.WriteString("\nNo pages could be crawled. This could mean:\n")
		b.WriteString("- The URL was inaccessible or returned an error\n")
		b.WriteString("- The page has no internal links to follow\n")
		b.WriteString("- All discovered links were filtered out by the include/exclude patterns\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Max depth reached: %d (limit: %d)\n", result.MaxDepthReached, maxDepth)
	b.WriteString("Pages found:\n")
	for i := range result.Pages {
		page := &result.Pages[i]
		fmt.Fprintf(&b, "- [Depth %d] %s\n", page.Depth, page.URL)
		fmt.Fprintf(&b, "  Content: %d chars\n", len(page.Content))
		fmt.Fprintf(&b, "  Internal links found: %d\n", page.InternalLinks)
	}
	return b.String()
}

// FlatLinks renders an uncategorized link list
func FlatLinks(pageURL string, links []string) string {
	if len(links) == 0 {
		return fmt.Sprintf("No links found on %s.\n", pageURL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "All links from %s (%d total):\n", pageURL, len(links))
	for _, link := range links {
		fmt.Fprintf(&b, "- %s\n", link)
	}
	return b.String()
}

// CategorizedLinks renders one block per non-empty bucket, listing at most
// ten links each.
func CategorizedLinks(pageURL string, buckets *vinesnake.LinkBuckets) string {
	if buckets.Total() == 0 {
		return fmt.Sprintf("No links found on %s.\n", pageURL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Links from %s (%d total):\n", pageURL, buckets.Total())
	for _, bucket := range buckets.Ordered() {
		if len(bucket.Links) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", bucket.Name, len(bucket.Links))
		shown := bucket.Links
		if len(shown) > maxLinksPerBucket {
			shown = shown[:maxLinksPerBucket]
		}
		for _, link := range shown {
			fmt.Fprintf(&b, "- %s\n", link)
		}
		if rest := len(bucket.Links) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "... and %d more\n", rest)
		}
	}
	return b.String()
}

// yamlPage is the export shape of one visited page
type yamlPage struct {
	URL              string `yaml:"url"`
	Depth            int    `yaml:"depth"`
	InternalLinks    int    `yaml:"internalLinks"`
	Content          string `yaml:"content"`
	Fingerprint      string `yaml:"contentFingerprint,omitempty"`
	DuplicateContent bool   `yaml:"duplicateContent,omitempty"`
}

// yamlReport is the export shape of a full crawl
type yamlReport struct {
	SeedURL         string     `yaml:"seedUrl"`
	Strategy        string     `yaml:"strategy"`
	PagesCrawled    int        `yaml:"pagesCrawled"`
	MaxDepthReached int        `yaml:"maxDepthReached"`
	MaxDepthLimit   int        `yaml:"maxDepthLimit"`
	FailedFetches   int        `yaml:"failedFetches"`
	FilteredURLs    int        `yaml:"filteredUrls"`
	DurationMs      int64      `yaml:"durationMs"`
	Pages           []yamlPage `yaml:"pages"`
}

// WriteYAML writes the full crawl result to w as YAML
func WriteYAML(w io.Writer, result *vinesnake.TraversalResult, maxDepth int) error {
	out := yamlReport{
		SeedURL:         result.SeedURL,
		Strategy:        string(result.Strategy),
		PagesCrawled:    result.PagesCrawled(),
		MaxDepthReached: result.MaxDepthReached,
		MaxDepthLimit:   maxDepth,
		FailedFetches:   result.FailedFetches,
		FilteredURLs:    result.FilteredURLs,
		DurationMs:      result.DurationMs,
		Pages:           make([]yamlPage, 0, len(result.Pages)),
	}
	for i := range result.Pages {
		page := &result.Pages[i]
		out.Pages = append(out.Pages, yamlPage{
			URL:              page.URL,
			Depth:            page.Depth,
			InternalLinks:    page.InternalLinks,
			Content:          page.Content,
			Fingerprint:      page.Fingerprint,
			DuplicateContent: page.DuplicateContent,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		enc.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
