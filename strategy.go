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
	"strings"
)

// Strategy is the fetch-handling mode selected for a URL before its first
// fetch. The traversal only applies strategy detection to the seed; every
// discovered link is fetched html-style regardless of its shape.
type Strategy string

const (
	// StrategyHTML routes the URL through the rendered-page fetch path.
	StrategyHTML Strategy = "html"
	// StrategySitemap treats the URL as an XML sitemap or sitemap index.
	StrategySitemap Strategy = "sitemap"
	// StrategyRSS treats the URL as an RSS or Atom feed.
	StrategyRSS Strategy = "rss"
	// StrategyText fetches the URL directly as plain text.
	StrategyText Strategy = "text"
	// StrategyXML fetches the URL directly as a generic XML document.
	StrategyXML Strategy = "xml"
)

// HeaderProber supplies Content-Type evidence for a URL without downloading
// its body. Implementations swallow transport errors and return "" when no
// evidence is available; *ProbeClient satisfies this.
type HeaderProber interface {
	ProbeContentType(ctx context.Context, pageURL string) string
}

// DetectStrategy classifies a URL from its shape and optional Content-Type
// evidence. URL-shape rules win over header rules, in order:
// sitemap > rss > text > xml-by-header > json-by-header > html.
func DetectStrategy(pageURL, contentType string) Strategy {
	lowered := strings.ToLower(pageURL)
	loweredPath := strings.ToLower(urlPath(pageURL))
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(lowered, "sitemap") || strings.HasSuffix(loweredPath, ".xml"):
		return StrategySitemap
	case strings.Contains(lowered, "rss") || strings.Contains(lowered, "feed"):
		return StrategyRSS
	case strings.HasSuffix(loweredPath, ".txt") || strings.Contains(ct, "text/plain"):
		return StrategyText
	case strings.Contains(ct, "application/xml") || strings.Contains(ct, "text/xml"):
		return StrategyXML
	case strings.Contains(ct, "application/json"):
		// No dedicated JSON strategy; JSON endpoints still go through the
		// rendered-page path.
		return StrategyHTML
	default:
		return StrategyHTML
	}
}

// StrategySelector decides how a seed URL should be fetched by layering a
// best-effort header probe on top of DetectStrategy's URL-shape rules.
type StrategySelector struct {
	prober HeaderProber
}

// NewStrategySelector creates a selector. prober may be nil, in which case
// selection runs on URL shape alone.
func NewStrategySelector(prober HeaderProber) *StrategySelector {
	return &StrategySelector{prober: prober}
}

// Select returns the strategy for pageURL. At most one probe is issued per
// call; probe failure counts as missing header evidence, never as a
// selection error.
func (s *StrategySelector) Select(ctx context.Context, pageURL string) Strategy {
	contentType := ""
	if s.prober != nil {
		contentType = s.prober.ProbeContentType(ctx, pageURL)
	}
	return DetectStrategy(pageURL, contentType)
}
