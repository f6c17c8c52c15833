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

package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/internal/config"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/report"
	"github.com/agentberlin/vinesnake/testutil"
)

// newTestServer builds an MCPServer wired to a mock render service and the
// crawl-target test site, with temporary stores. Tests drive the tool flows
// through the server's components the same way the registered handlers do.
func newTestServer(t *testing.T) (*MCPServer, *testutil.RenderService, *httptest.Server) {
	t.Helper()

	site := testutil.NewSiteServer()
	t.Cleanup(site.Close)

	svc := testutil.NewRenderServiceServer()
	t.Cleanup(svc.Close)

	cfg := &config.Config{}
	cfg.Remote.BaseURL = svc.URL()
	cfg.Crawl.MaxDepth = 3
	cfg.Crawl.MaxPages = 50
	cfg.Crawl.MaxURLLength = 2083
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Artifacts.Dir = t.TempDir()

	s, err := NewMCPServer(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, svc, site
}

// =============================================================================
// Test: Server Construction
// =============================================================================

func TestNewMCPServer(t *testing.T) {
	t.Run("WiresAllComponents", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		assert.NotNil(t, s.GetServer())
		assert.NotNil(t, s.remote)
		assert.NotNil(t, s.store)
		assert.NotNil(t, s.artifacts)
		assert.NotNil(t, s.probe)
		assert.NotNil(t, s.selector)
		assert.False(t, s.startedAt.IsZero())
	})

	t.Run("MissingRenderServiceURL_ReturnsError", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")

		_, err := NewMCPServer(cfg, zerolog.Nop())
		require.Error(t, err)
		assert.ErrorIs(t, err, remote.ErrNoBaseURL)
	})
}

// =============================================================================
// Test: Recursive Crawl Tools
// =============================================================================

func TestCrawlRecursiveTool(t *testing.T) {
	s, _, site := newTestServer(t)
	ctx := context.Background()

	t.Run("CrawlsSiteThroughRenderService", func(t *testing.T) {
		traversal, err := vinesnake.NewTraversal(s.remote, &vinesnake.TraversalConfig{
			MaxDepth:     2,
			MaxPages:     10,
			BypassCache:  true,
			Fingerprints: true,
		})
		require.NoError(t, err)
		traversal.SetProbeClient(s.probe)
		traversal.SetStrategySelector(s.selector)

		result, err := traversal.Run(ctx, site.URL+"/")
		require.NoError(t, err)

		assert.Equal(t, vinesnake.StrategyHTML, result.Strategy)
		assert.Greater(t, result.PagesCrawled(), 1)
		assert.LessOrEqual(t, result.MaxDepthReached, 2)

		summary := report.CrawlSummary(result, 2)
		assert.Contains(t, summary, "Recursive crawl completed:")
		assert.Contains(t, summary, site.URL)
	})

	t.Run("InvalidPattern_FailsBeforeCrawling", func(t *testing.T) {
		_, err := vinesnake.NewTraversal(s.remote, &vinesnake.TraversalConfig{
			IncludePattern: "[invalid",
		})
		assert.Error(t, err)
	})

	t.Run("RecordsHistoryOnSuccess", func(t *testing.T) {
		traversal, err := vinesnake.NewTraversal(s.remote, &vinesnake.TraversalConfig{
			MaxDepth:    1,
			MaxPages:    5,
			BypassCache: true,
		})
		require.NoError(t, err)
		traversal.SetProbeClient(s.probe)
		traversal.SetStrategySelector(s.selector)

		result, err := traversal.Run(ctx, site.URL+"/")
		require.NoError(t, err)

		s.recordCrawl(site.URL+"/", result, 1, nil)

		crawls, err := s.store.ListCrawls(10)
		require.NoError(t, err)
		require.NotEmpty(t, crawls)
		assert.Equal(t, site.URL+"/", crawls[0].SeedURL)
		assert.Equal(t, "completed", crawls[0].Status)
		assert.Equal(t, result.PagesCrawled(), crawls[0].PagesCrawled)
		assert.Equal(t, 1, crawls[0].MaxDepthLimit)
	})

	t.Run("RecordsFailureWithError", func(t *testing.T) {
		s.recordCrawl("https://unreachable.invalid/", nil, 3, errors.New("connection refused"))

		crawls, err := s.store.ListCrawls(1)
		require.NoError(t, err)
		require.NotEmpty(t, crawls)
		assert.Equal(t, "failed", crawls[0].Status)
		assert.Contains(t, crawls[0].Error, "connection refused")
		assert.Zero(t, crawls[0].PagesCrawled)
	})
}

func TestListURLsHelper(t *testing.T) {
	t.Run("ListsAllWhenUnderCap", func(t *testing.T) {
		got := listURLs([]string{"https://a.test/", "https://b.test/"})

		assert.Contains(t, got, "Found 2 URLs:")
		assert.Contains(t, got, "- https://a.test/")
		assert.Contains(t, got, "- https://b.test/")
		assert.NotContains(t, got, "more")
	})

	t.Run("ElidesBeyondCap", func(t *testing.T) {
		urls := make([]string, maxListedURLs+10)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://site.test/page/%d", i)
		}

		got := listURLs(urls)
		assert.Contains(t, got, fmt.Sprintf("Found %d URLs:", len(urls)))
		assert.Contains(t, got, "... and 10 more")
		assert.Equal(t, maxListedURLs, strings.Count(got, "\n- "))
	})
}

// =============================================================================
// Test: Single Fetch and Batch Tools
// =============================================================================

func TestCrawlToolSessionFlow(t *testing.T) {
	s, svc, site := newTestServer(t)
	ctx := context.Background()

	t.Run("UnknownSession_IsRejected", func(t *testing.T) {
		err := s.store.TouchSession("no-such-session")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("SessionIDReachesRenderService", func(t *testing.T) {
		sess, err := s.store.CreateSession(site.URL+"/", nil)
		require.NoError(t, err)
		require.NoError(t, s.store.TouchSession(sess.ID))

		page, err := s.remote.FetchPage(ctx, site.URL+"/", vinesnake.FetchOptions{
			BypassCache: true,
			SessionID:   sess.ID,
		})
		require.NoError(t, err)
		assert.True(t, page.Success)
		assert.NotEmpty(t, page.Content)

		call, ok := svc.LastCall("/crawl")
		require.True(t, ok)
		crawlerConfig, ok := call.Body["crawler_config"].(map[string]any)
		require.True(t, ok, "crawler_config should be present")
		assert.Equal(t, sess.ID, crawlerConfig["session_id"])
		assert.Equal(t, "BYPASS", crawlerConfig["cache_mode"])
	})
}

func TestBatchCrawlTool(t *testing.T) {
	s, _, site := newTestServer(t)
	ctx := context.Background()

	t.Run("PreservesOrderAcrossFailures", func(t *testing.T) {
		urls := []string{site.URL + "/", site.URL + "/500", site.URL + "/chain/a"}

		pages, err := vinesnake.FetchAll(ctx, s.remote, urls, 2, vinesnake.FetchOptions{})
		require.NoError(t, err)
		require.Len(t, pages, len(urls))

		assert.True(t, pages[0].Success)
		assert.False(t, pages[1].Success)
		assert.Equal(t, 500, pages[1].StatusCode)
		assert.True(t, pages[2].Success)
	})
}

// =============================================================================
// Test: Strategy Selection Tools
// =============================================================================

func TestSmartCrawlTool(t *testing.T) {
	s, svc, site := newTestServer(t)
	ctx := context.Background()

	t.Run("SitemapURL_SelectsSitemapStrategy", func(t *testing.T) {
		strategy := s.selector.Select(ctx, site.URL+"/sitemap.xml")
		assert.Equal(t, vinesnake.StrategySitemap, strategy)

		urls, err := vinesnake.CollectSitemapURLs(ctx, s.probe, site.URL+"/sitemap.xml")
		require.NoError(t, err)
		assert.Len(t, urls, 3)
	})

	t.Run("FeedURL_SelectsRSSStrategy", func(t *testing.T) {
		strategy := s.selector.Select(ctx, site.URL+"/rss.xml")
		assert.Equal(t, vinesnake.StrategyRSS, strategy)

		urls, err := vinesnake.CollectSitemapURLs(ctx, s.probe, site.URL+"/rss.xml")
		require.NoError(t, err)
		assert.Len(t, urls, 2)
	})

	t.Run("PlainText_IsFetchedDirectly", func(t *testing.T) {
		strategy := s.selector.Select(ctx, site.URL+"/plain.txt")
		assert.Equal(t, vinesnake.StrategyText, strategy)

		res, err := s.probe.Get(ctx, site.URL+"/plain.txt")
		require.NoError(t, err)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, testutil.PlainTextBody, string(res.Body))
	})

	t.Run("HTMLPage_FallsThroughToRendering", func(t *testing.T) {
		strategy := s.selector.Select(ctx, site.URL+"/")
		assert.Equal(t, vinesnake.StrategyHTML, strategy)

		md, err := s.remote.Markdown(ctx, site.URL+"/", remote.MarkdownOptions{Cache: "0"})
		require.NoError(t, err)
		assert.NotEmpty(t, md.Markdown)

		call, ok := svc.LastCall("/md")
		require.True(t, ok)
		assert.Equal(t, "0", call.Body["c"])
	})
}

// =============================================================================
// Test: Link Analysis Tools
// =============================================================================

func TestExtractLinksTool(t *testing.T) {
	s, _, site := newTestServer(t)
	ctx := context.Background()

	page, err := s.remote.FetchPage(ctx, site.URL+"/", vinesnake.FetchOptions{})
	require.NoError(t, err)
	require.True(t, page.Success)

	t.Run("CategorizedBuckets", func(t *testing.T) {
		buckets := vinesnake.ClassifyAllLinks(page, site.URL+"/")
		require.NotNil(t, buckets)
		assert.Greater(t, buckets.Total(), 0)
		assert.NotEmpty(t, buckets.Internal)

		text := report.CategorizedLinks(site.URL+"/", buckets)
		assert.Contains(t, text, fmt.Sprintf("Links from %s/", site.URL))
		assert.Contains(t, text, "internal")
	})

	t.Run("FlatList", func(t *testing.T) {
		links := vinesnake.ClassifyLinks(page, site.URL+"/").All()
		assert.NotEmpty(t, links)

		text := report.FlatLinks(site.URL+"/", links)
		assert.Contains(t, text, "All links from")
		assert.Contains(t, text, site.URL+"/chain/a")
	})
}

// =============================================================================
// Test: Artifact Tools
// =============================================================================

func TestCaptureScreenshotTool(t *testing.T) {
	s, svc, site := newTestServer(t)
	ctx := context.Background()

	t.Run("SavesPNGToArtifactDirectory", func(t *testing.T) {
		encoded, err := s.remote.Screenshot(ctx, site.URL+"/", 0)
		require.NoError(t, err)

		artifact, err := s.artifacts.SaveScreenshot(site.URL+"/", encoded)
		require.NoError(t, err)

		assert.Equal(t, s.cfg.Artifacts.Dir, filepath.Dir(artifact.Path))
		data, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
		assert.Equal(t, int64(len(data)), artifact.Size)
	})

	t.Run("WaitTimeReachesRenderService", func(t *testing.T) {
		_, err := s.remote.Screenshot(ctx, site.URL+"/", 2.5)
		require.NoError(t, err)

		call, ok := svc.LastCall("/screenshot")
		require.True(t, ok)
		assert.Equal(t, 2.5, call.Body["screenshot_wait_for"])
	})
}

func TestGeneratePDFTool(t *testing.T) {
	s, _, site := newTestServer(t)
	ctx := context.Background()

	t.Run("SavesValidatedPDF", func(t *testing.T) {
		encoded, err := s.remote.PDF(ctx, site.URL+"/")
		require.NoError(t, err)

		artifact, pages, err := s.artifacts.SavePDF(site.URL+"/", encoded)
		require.NoError(t, err)
		assert.Equal(t, 1, pages)

		data, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	})
}

// =============================================================================
// Test: Session Management Tools
// =============================================================================

func TestSessionTools(t *testing.T) {
	s, _, site := newTestServer(t)

	t.Run("CreateListClearRoundTrip", func(t *testing.T) {
		first, err := s.store.CreateSession(site.URL+"/", map[string]string{"purpose": "login"})
		require.NoError(t, err)
		second, err := s.store.CreateSession("", nil)
		require.NoError(t, err)

		sessions, err := s.store.ListSessions()
		require.NoError(t, err)
		assert.Len(t, sessions, 2)

		require.NoError(t, s.store.DeleteSession(first.ID))

		sessions, err = s.store.ListSessions()
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, second.ID, sessions[0].ID)
	})

	t.Run("ClearMissingSession_ReturnsError", func(t *testing.T) {
		err := s.store.DeleteSession("no-such-session")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

// =============================================================================
// Test: Diagnostics Tools
// =============================================================================

func TestServerStatsTool(t *testing.T) {
	s, _, site := newTestServer(t)

	t.Run("CountsSessionsAndCrawls", func(t *testing.T) {
		_, err := s.store.CreateSession(site.URL+"/", nil)
		require.NoError(t, err)
		s.recordCrawl(site.URL+"/", nil, 3, errors.New("boom"))

		sessions, err := s.store.SessionCount()
		require.NoError(t, err)
		assert.Equal(t, int64(1), sessions)

		crawls, err := s.store.CrawlCount()
		require.NoError(t, err)
		assert.Equal(t, int64(1), crawls)
	})
}
