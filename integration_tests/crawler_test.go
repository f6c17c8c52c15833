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

package integration_tests

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/report"
	"github.com/agentberlin/vinesnake/internal/session"
	"github.com/agentberlin/vinesnake/testutil"
)

// TestRecursiveCrawlFlow drives the full crawl pipeline end to end:
// 1. The strategy selector probes the seed URL
// 2. The traversal walks same-origin links breadth-first, rendering every
//    page through the mock rendering service
// 3. Pages are fingerprinted and repeated content is flagged
// 4. The result renders into the text and YAML reports
func TestRecursiveCrawlFlow(t *testing.T) {
	site := testutil.NewSiteServer()
	defer site.Close()

	svc := testutil.NewRenderServiceServer()
	defer svc.Close()

	client, err := remote.NewClient(remote.Options{BaseURL: svc.URL()})
	require.NoError(t, err)

	probe := vinesnake.NewProbeClient()
	traversal, err := vinesnake.NewTraversal(client, &vinesnake.TraversalConfig{
		MaxDepth:     3,
		MaxPages:     25,
		BypassCache:  true,
		Fingerprints: true,
	})
	require.NoError(t, err)
	traversal.SetProbeClient(probe)
	traversal.SetStrategySelector(vinesnake.NewStrategySelector(probe))

	result, err := traversal.Run(context.Background(), site.URL+"/")
	require.NoError(t, err)

	// The full graph within depth 3: the root, the four pages linked from
	// it, then /chain/b, /docs/api and /loop/y, then /chain/c and the
	// duplicate pair.
	assert.Equal(t, vinesnake.StrategyHTML, result.Strategy)
	assert.Equal(t, 11, result.PagesCrawled())
	assert.Equal(t, 3, result.MaxDepthReached)
	assert.Zero(t, result.FailedFetches)

	// Byte-identical bodies on two URLs: whichever is crawled second
	// carries the duplicate flag.
	duplicates := 0
	for _, page := range result.Pages {
		if page.DuplicateContent {
			duplicates++
		}
		assert.NotEmpty(t, page.Fingerprint)
	}
	assert.Equal(t, 1, duplicates)

	// Every page was rendered through the service exactly once
	assert.Equal(t, result.PagesCrawled(), svc.CallCount("/crawl"))

	summary := report.CrawlSummary(result, 3)
	assert.Contains(t, summary, "Recursive crawl completed:")
	assert.Contains(t, summary, "Pages found:")
	assert.Contains(t, summary, "Max depth reached: 3 (limit: 3)")

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf, result, 3))
	assert.Contains(t, buf.String(), "seedUrl: "+site.URL+"/")
	assert.Contains(t, buf.String(), "pagesCrawled: 11")
}

// TestSitemapSeedFlow starts from a sitemap seed. The sitemap itself is
// fetched directly, and its listed URLs are rendered at depth 1.
func TestSitemapSeedFlow(t *testing.T) {
	site := testutil.NewSiteServer()
	defer site.Close()

	svc := testutil.NewRenderServiceServer()
	defer svc.Close()

	client, err := remote.NewClient(remote.Options{BaseURL: svc.URL()})
	require.NoError(t, err)

	probe := vinesnake.NewProbeClient()
	traversal, err := vinesnake.NewTraversal(client, &vinesnake.TraversalConfig{
		MaxDepth: 1,
		MaxPages: 10,
	})
	require.NoError(t, err)
	traversal.SetProbeClient(probe)
	traversal.SetStrategySelector(vinesnake.NewStrategySelector(probe))

	result, err := traversal.Run(context.Background(), site.URL+"/sitemap.xml")
	require.NoError(t, err)

	// The sitemap page plus its three listed URLs
	assert.Equal(t, vinesnake.StrategySitemap, result.Strategy)
	assert.Equal(t, 4, result.PagesCrawled())
	assert.Equal(t, 1, result.MaxDepthReached)

	// Only the listed pages go through the rendering service; the sitemap
	// itself is a direct fetch.
	assert.Equal(t, 3, svc.CallCount("/crawl"))
}

// TestSessionScopedFetch checks that a stored browser session travels from
// the store through the client to the rendering service.
func TestSessionScopedFetch(t *testing.T) {
	site := testutil.NewSiteServer()
	defer site.Close()

	svc := testutil.NewRenderServiceServer()
	defer svc.Close()

	store, err := session.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	sess, err := store.CreateSession(site.URL+"/", map[string]string{"purpose": "login"})
	require.NoError(t, err)

	client, err := remote.NewClient(remote.Options{BaseURL: svc.URL()})
	require.NoError(t, err)

	page, err := client.FetchPage(context.Background(), site.URL+"/", vinesnake.FetchOptions{
		SessionID: sess.ID,
	})
	require.NoError(t, err)
	assert.True(t, page.Success)
	assert.NotEmpty(t, page.Content)

	call, ok := svc.LastCall("/crawl")
	require.True(t, ok)
	crawlerConfig, ok := call.Body["crawler_config"].(map[string]any)
	require.True(t, ok, "crawler_config should be present")
	assert.Equal(t, sess.ID, crawlerConfig["session_id"])
}
