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
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// Patterns masking volatile fragments before hashing, so two fetches of the
// same page don't fingerprint differently because of a clock or a cache
// buster.
var (
	timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(?::\d{2})? (?:AM|PM)`),
		regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4}\s+\d{1,2}:\d{2}`),
	}

	relativeTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`),
		regexp.MustCompile(`(?:just\s+now|moments?\s+ago)`),
	}

	versionParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\?v=[a-f0-9]+`),
		regexp.MustCompile(`\?ver=[a-f0-9]+`),
		regexp.MustCompile(`\?_=[0-9]+`),
		regexp.MustCompile(`\?t=[0-9]+`),
	}

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeContent reduces page content to a stable form for duplicate
// detection. Markup-looking content is reduced to its text with script,
// style, nav, and footer subtrees removed; volatile fragments are masked;
// whitespace is collapsed. Content that is already plain text or markdown
// skips the markup pass.
func NormalizeContent(content string) string {
	if looksLikeMarkup(content) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
			doc.Find("script, style, nav, footer").Remove()
			content = doc.Text()
		}
	}
	for _, pattern := range timestampPatterns {
		content = pattern.ReplaceAllString(content, "[TIMESTAMP]")
	}
	for _, pattern := range relativeTimePatterns {
		content = pattern.ReplaceAllString(content, "[RELATIVE_TIME]")
	}
	for _, pattern := range versionParamPatterns {
		content = pattern.ReplaceAllString(content, "")
	}
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(content), " ")
}

// Fingerprint hashes the normalized content with xxhash, rendered as 16 hex
// digits. Content that normalizes to nothing fingerprints to "".
func Fingerprint(content string) string {
	normalized := NormalizeContent(content)
	if normalized == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

func looksLikeMarkup(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}
	return strings.Contains(content, "</") && strings.Contains(content, ">")
}
