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
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText extracts all visible text from HTML, tags removed and
// whitespace normalized. Navigation, headers, and footers are included; use
// ExtractMainText to skip them.
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ExtractMainText extracts text from the main content area only. Semantic
// HTML5 elements (article, main, [role='main']) win when present; otherwise
// paragraphs are scored by stopword density, with high-link-density blocks
// skipped as likely navigation, and the best-scoring subtree is taken. Falls
// back to the whole body.
func ExtractMainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var content *goquery.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		content = article
	} else if mainEl := doc.Find("main").First(); mainEl.Length() > 0 {
		content = mainEl
	} else if roleMain := doc.Find("[role='main']").First(); roleMain.Length() > 0 {
		content = roleMain
	}
	if content == nil {
		content = bestContentNode(doc)
	}
	if content == nil || content.Length() == 0 {
		content = doc.Find("body")
	}
	if content == nil || content.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(content.Text()), " ")
}

// bestContentNode scores paragraphs by stopword count and propagates scores
// to parents (full) and grandparents (half), the gravity scoring GoOse uses.
func bestContentNode(doc *goquery.Document) *goquery.Selection {
	parentScores := make(map[*goquery.Selection]int)

	doc.Find("p, pre, td").Each(func(i int, s *goquery.Selection) {
		text := s.Text()
		stopwords := countStopwords(text)
		if stopwords < 2 {
			return
		}
		if highLinkDensity(s) {
			return
		}
		score := stopwords + len(text)/200

		parent := s.Parent()
		if parent.Length() > 0 {
			parentScores[parent] += score
		}
		grandparent := parent.Parent()
		if grandparent.Length() > 0 {
			parentScores[grandparent] += score / 2
		}
	})

	var best *goquery.Selection
	bestScore := 0
	for node, score := range parentScores {
		if score > bestScore {
			bestScore = score
			best = node
		}
	}
	return best
}

// highLinkDensity reports whether most of a block's words sit inside
// anchors, the usual signature of menus and link farms.
func highLinkDensity(s *goquery.Selection) bool {
	words := len(strings.Fields(s.Text()))
	if words == 0 {
		return false
	}
	linkWords := 0
	s.Find("a").Each(func(i int, a *goquery.Selection) {
		linkWords += len(strings.Fields(a.Text()))
	})
	return float64(linkWords)/float64(words) > 0.5
}

var englishStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a about all an and are as at be been but by can could did do for from had has have he her his i if in is it its just me my no not of on one or our she so that the their them then there they this to was we were what when which who will with would you your") {
		englishStopwords[w] = struct{}{}
	}
}

func countStopwords(text string) int {
	count := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]\"'")
		if _, ok := englishStopwords[word]; ok {
			count++
		}
	}
	return count
}
