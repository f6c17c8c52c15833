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
	"testing"
)

func TestDetectStrategy(t *testing.T) {
	for _, test := range []struct {
		url         string
		contentType string
		want        Strategy
	}{
		// URL shape rules
		{"http://example.com/sitemap.xml", "", StrategySitemap},
		{"http://example.com/sitemap_index.xml", "", StrategySitemap},
		{"http://example.com/Sitemap", "", StrategySitemap},
		{"http://example.com/wp-sitemap-posts.xml", "", StrategySitemap},
		{"http://example.com/catalog.xml", "", StrategySitemap},
		{"http://example.com/rss", "", StrategyRSS},
		{"http://example.com/feed/", "", StrategyRSS},
		{"http://example.com/blog/feed.atom", "", StrategyRSS},
		{"http://example.com/robots.txt", "", StrategyText},
		{"http://example.com/notes.TXT", "", StrategyText},

		// sitemap wins over rss when both appear
		{"http://example.com/feeds/sitemap.xml", "", StrategySitemap},

		// header rules
		{"http://example.com/page", "text/plain; charset=utf-8", StrategyText},
		{"http://example.com/page", "application/xml", StrategyXML},
		{"http://example.com/page", "text/xml; charset=utf-8", StrategyXML},
		{"http://example.com/api/items", "application/json", StrategyHTML},

		// URL shape wins over headers
		{"http://example.com/sitemap.xml", "text/plain", StrategySitemap},
		{"http://example.com/feed", "application/xml", StrategyRSS},

		// default
		{"http://example.com/", "", StrategyHTML},
		{"http://example.com/about", "text/html; charset=utf-8", StrategyHTML},
	} {
		got := DetectStrategy(test.url, test.contentType)
		if got != test.want {
			t.Fatalf("DetectStrategy(%q, %q) = %q, want %q", test.url, test.contentType, got, test.want)
		}
	}
}

type staticProber struct {
	contentType string
	calls       int
}

func (p *staticProber) ProbeContentType(ctx context.Context, pageURL string) string {
	p.calls++
	return p.contentType
}

func TestStrategySelectorUsesProbe(t *testing.T) {
	prober := &staticProber{contentType: "application/xml"}
	selector := NewStrategySelector(prober)

	got := selector.Select(context.Background(), "http://example.com/export")
	if got != StrategyXML {
		t.Fatalf("Select = %q, want %q", got, StrategyXML)
	}
	if prober.calls != 1 {
		t.Fatalf("probe calls = %d, want 1", prober.calls)
	}
}

func TestStrategySelectorNilProber(t *testing.T) {
	selector := NewStrategySelector(nil)

	got := selector.Select(context.Background(), "http://example.com/sitemap.xml")
	if got != StrategySitemap {
		t.Fatalf("Select = %q, want %q", got, StrategySitemap)
	}
	got = selector.Select(context.Background(), "http://example.com/page")
	if got != StrategyHTML {
		t.Fatalf("Select = %q, want %q", got, StrategyHTML)
	}
}

func TestStrategySelectorProbeFailure(t *testing.T) {
	// A prober returning "" stands for any probe failure; selection falls
	// back to URL shape.
	prober := &staticProber{contentType: ""}
	selector := NewStrategySelector(prober)

	got := selector.Select(context.Background(), "http://example.com/page")
	if got != StrategyHTML {
		t.Fatalf("Select = %q, want %q", got, StrategyHTML)
	}
}

func TestStrategySelectorWithProbeClient(t *testing.T) {
	mock := setupMockTransport()
	selector := NewStrategySelector(newMockProbeClient(mock))

	got := selector.Select(context.Background(), testBaseURL+"/plain.txt")
	if got != StrategyText {
		t.Fatalf("Select = %q, want %q", got, StrategyText)
	}
	// Unregistered URL: the 404 probe still returns no usable header, so
	// the default applies.
	got = selector.Select(context.Background(), testBaseURL+"/missing")
	if got != StrategyHTML {
		t.Fatalf("Select = %q, want %q", got, StrategyHTML)
	}
}
