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
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/agentberlin/vinesnake/storage"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxDepth is the traversal depth budget when none is given
	DefaultMaxDepth = 3
	// DefaultMaxPages is the traversal page budget when none is given
	DefaultMaxPages = 50
)

// TraversalConfig holds the per-run knobs of a traversal. The config is
// immutable for the duration of one Run.
type TraversalConfig struct {
	// MaxDepth is the depth budget. 0 visits only the seed page; a
	// negative value selects DefaultMaxDepth.
	MaxDepth int
	// MaxPages caps the number of visited pages. Zero or negative selects
	// DefaultMaxPages.
	MaxPages int
	// IncludePattern, when non-empty, is a regular expression every
	// visited URL must match. Non-matching URLs are dropped silently.
	IncludePattern string
	// ExcludePattern, when non-empty, drops every matching URL.
	ExcludePattern string
	// BypassCache asks the remote service to skip its content cache on
	// every page fetch of the run
	BypassCache bool
	// SessionID reuses a remote browser session for every page fetch
	SessionID string
	// RespectRobots gates candidate URLs through the site's robots.txt.
	// Off by default; the traversal is driven by an operator, not a bot
	// fleet.
	RespectRobots bool
	// Fingerprints computes a normalized-content hash for every visited
	// page and flags repeats within the run
	Fingerprints bool
}

// DefaultTraversalConfig returns the config a bare traversal runs with
func DefaultTraversalConfig() *TraversalConfig {
	return &TraversalConfig{
		MaxDepth:     DefaultMaxDepth,
		MaxPages:     DefaultMaxPages,
		Fingerprints: true,
	}
}

// frontierEntry is one discovered-but-not-yet-visited URL
type frontierEntry struct {
	url   string
	depth int
}

// Traversal is the breadth-first site-traversal controller. It owns the
// frontier queue, the visited set, and the budgets; page fetching is
// delegated to a Fetcher and never performed by the controller itself.
//
// A Traversal is not safe for concurrent use: configure it, then call Run.
// Each Run owns fresh traversal state, so the same Traversal can be reused
// for sequential runs.
type Traversal struct {
	fetcher  Fetcher
	config   *TraversalConfig
	selector *StrategySelector
	probe    *ProbeClient
	store    storage.Storage
	logger   zerolog.Logger

	include *regexp.Regexp
	exclude *regexp.Regexp

	onPage           OnPageFunc
	onPageError      OnPageErrorFunc
	candidateFilters []OnCandidateFunc
}

// NewTraversal creates a traversal over the given fetch capability. A nil
// config selects DefaultTraversalConfig. Pattern text is compiled here so a
// malformed pattern fails the call instead of failing per-URL later.
func NewTraversal(fetcher Fetcher, config *TraversalConfig) (*Traversal, error) {
	if fetcher == nil {
		return nil, ErrMissingFetcher
	}
	if config == nil {
		config = DefaultTraversalConfig()
	}
	if config.MaxDepth < 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	t := &Traversal{
		fetcher: fetcher,
		config:  config,
		store:   &storage.InMemoryStorage{},
		logger:  zerolog.Nop(),
	}

	var err error
	if config.IncludePattern != "" {
		t.include, err = regexp.Compile(config.IncludePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIncludePattern, err)
		}
	}
	if config.ExcludePattern != "" {
		t.exclude, err = regexp.Compile(config.ExcludePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExcludePattern, err)
		}
	}
	return t, nil
}

// SetLogger attaches a logger. The default discards everything.
func (t *Traversal) SetLogger(logger zerolog.Logger) {
	t.logger = logger
}

// SetStorage overrides the default in-memory visited-set storage. The store
// is re-initialized at the start of every Run, so visited state never leaks
// between runs.
func (t *Traversal) SetStorage(s storage.Storage) error {
	if err := s.Init(); err != nil {
		return err
	}
	t.store = s
	return nil
}

// SetStrategySelector attaches a selector consulted once for the seed URL.
// Without one, the seed is fetched html-style like every other page.
func (t *Traversal) SetStrategySelector(s *StrategySelector) {
	t.selector = s
}

// SetProbeClient overrides the direct-fetch client used for robots.txt and
// for sitemap/feed/text seeds
func (t *Traversal) SetProbeClient(p *ProbeClient) {
	t.probe = p
}

// OnPage registers a callback invoked after every successfully visited page
func (t *Traversal) OnPage(f OnPageFunc) {
	t.onPage = f
}

// OnPageError registers a callback invoked when a page fetch fails. The
// traversal continues regardless.
func (t *Traversal) OnPageError(f OnPageErrorFunc) {
	t.onPageError = f
}

// OnCandidate registers a veto filter consulted for every link before it is
// enqueued. Filters stack; any one returning false drops the candidate.
func (t *Traversal) OnCandidate(f OnCandidateFunc) {
	t.candidateFilters = append(t.candidateFilters, f)
}

// Run executes one breadth-first traversal from seedURL and returns the
// accumulated result. Only seed-level problems (malformed URL, storage
// failure) surface as errors; per-page fetch failures are counted, logged,
// and skipped. A run whose seed fetch fails still returns a well-formed
// zero-pages result.
func (t *Traversal) Run(ctx context.Context, seedURL string) (*TraversalResult, error) {
	canonicalSeed, err := CanonicalURL(seedURL)
	if err != nil {
		return nil, err
	}
	if !IsHTTP(canonicalSeed) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeedURL, seedURL)
	}
	if err := t.store.Init(); err != nil {
		return nil, err
	}

	strategy := StrategyHTML
	if t.selector != nil {
		strategy = t.selector.Select(ctx, canonicalSeed)
	}

	result := &TraversalResult{
		SeedURL:  seedURL,
		Strategy: strategy,
	}
	var robots *robotsGate
	if t.config.RespectRobots {
		robots = newRobotsGate(t.probeClient(), t.logger)
	}

	start := time.Now()
	t.logger.Info().
		Str("url", canonicalSeed).
		Str("strategy", string(strategy)).
		Int("maxDepth", t.config.MaxDepth).
		Int("maxPages", t.config.MaxPages).
		Msg("traversal started")

	frontier := []frontierEntry{{url: canonicalSeed, depth: 0}}
	for len(frontier) > 0 && len(result.Pages) < t.config.MaxPages {
		entry := frontier[0]
		frontier = frontier[1:]

		if entry.depth > t.config.MaxDepth {
			continue
		}
		seen, err := t.store.VisitIfNotVisited(requestHash(entry.url))
		if err != nil {
			t.logger.Error().Err(err).Str("url", entry.url).Msg("visited-set update failed")
			continue
		}
		if seen {
			continue
		}
		if t.exclude != nil && t.exclude.MatchString(entry.url) {
			result.FilteredURLs++
			t.logger.Debug().Str("url", entry.url).Msg("dropped by exclude pattern")
			continue
		}
		if t.include != nil && !t.include.MatchString(entry.url) {
			result.FilteredURLs++
			t.logger.Debug().Str("url", entry.url).Msg("dropped by include pattern")
			continue
		}
		if robots != nil && !robots.Allowed(ctx, entry.url) {
			result.FilteredURLs++
			t.logger.Debug().Str("url", entry.url).Msg("blocked by robots.txt")
			continue
		}

		page, expand, err := t.fetchEntry(ctx, entry, strategy)
		if err != nil || page == nil || !page.Success {
			result.FailedFetches++
			if err == nil {
				msg := "fetch reported failure"
				if page != nil && page.Error != "" {
					msg = page.Error
				}
				err = errors.New(msg)
			}
			t.logger.Warn().Err(err).Str("url", entry.url).Int("depth", entry.depth).Msg("page fetch failed")
			if t.onPageError != nil {
				t.onPageError(entry.url, entry.depth, err)
			}
			continue
		}

		buckets := ClassifyLinks(page, entry.url)
		pageResult := PageResult{
			URL:           entry.url,
			Depth:         entry.depth,
			Content:       page.Content,
			InternalLinks: len(buckets.Internal),
		}
		if t.config.Fingerprints {
			pageResult.Fingerprint = Fingerprint(page.Content)
			if dup, err := t.store.IsContentSeen(pageResult.Fingerprint); err == nil {
				pageResult.DuplicateContent = dup
				if !dup {
					t.store.MarkContentSeen(pageResult.Fingerprint)
				}
			}
		}
		result.Pages = append(result.Pages, pageResult)
		if entry.depth > result.MaxDepthReached {
			result.MaxDepthReached = entry.depth
		}
		t.logger.Debug().
			Str("url", entry.url).
			Int("depth", entry.depth).
			Int("internalLinks", pageResult.InternalLinks).
			Msg("page visited")
		if t.onPage != nil {
			t.onPage(&result.Pages[len(result.Pages)-1])
		}

		if !expand || entry.depth >= t.config.MaxDepth {
			continue
		}
		for _, link := range buckets.Internal {
			candidate, err := CanonicalURL(link)
			if err != nil {
				continue
			}
			if !SameHost(canonicalSeed, candidate) {
				continue
			}
			if visited, err := t.store.IsVisited(requestHash(candidate)); err != nil || visited {
				continue
			}
			if !t.allowCandidate(candidate, entry.depth+1) {
				result.FilteredURLs++
				continue
			}
			frontier = append(frontier, frontierEntry{url: candidate, depth: entry.depth + 1})
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	t.logger.Info().
		Int("pages", len(result.Pages)).
		Int("maxDepthReached", result.MaxDepthReached).
		Int("failedFetches", result.FailedFetches).
		Int("filteredUrls", result.FilteredURLs).
		Int64("durationMs", result.DurationMs).
		Msg("traversal finished")
	return result, nil
}

// fetchEntry fetches one frontier entry. The seed honors the selected
// strategy; every deeper hop goes through the rendered-page path. The bool
// reports whether the page's links may seed further expansion.
func (t *Traversal) fetchEntry(ctx context.Context, entry frontierEntry, strategy Strategy) (*PageData, bool, error) {
	if entry.depth == 0 && strategy != StrategyHTML {
		return t.fetchSeedDirect(ctx, entry.url, strategy)
	}
	page, err := t.fetcher.FetchPage(ctx, entry.url, FetchOptions{
		BypassCache: t.config.BypassCache,
		SessionID:   t.config.SessionID,
	})
	return page, true, err
}

// fetchSeedDirect handles non-html seeds without the remote service. Sitemap
// and feed seeds expand into their listed URLs at depth 1; text and xml
// seeds produce a single direct-fetch page with no expansion.
func (t *Traversal) fetchSeedDirect(ctx context.Context, seedURL string, strategy Strategy) (*PageData, bool, error) {
	res, err := t.probeClient().Get(ctx, seedURL)
	if err != nil {
		return nil, false, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &PageData{
			URL:        seedURL,
			Success:    false,
			StatusCode: res.StatusCode,
			Error:      fmt.Sprintf("direct fetch returned status %d", res.StatusCode),
		}, false, nil
	}

	page := &PageData{
		URL:        seedURL,
		Success:    true,
		StatusCode: res.StatusCode,
		Content:    string(res.Body),
	}
	if strategy != StrategySitemap && strategy != StrategyRSS {
		return page, false, nil
	}

	listed, err := collectSitemapURLs(ctx, t.probeClient(), res.Body)
	if err != nil {
		// Shaped like a sitemap but does not parse as one. Keep the page;
		// if the body is really HTML the classifier's href fallback can
		// still expand it.
		t.logger.Warn().Err(err).Str("url", seedURL).Msg("seed did not parse as sitemap or feed")
		return page, true, nil
	}
	for _, u := range listed {
		resolved := resolveCandidate(seedURL, u)
		if resolved == "" {
			continue
		}
		if SameHost(seedURL, resolved) {
			page.Links.Internal = append(page.Links.Internal, Link{Href: resolved})
		} else {
			page.Links.External = append(page.Links.External, Link{Href: resolved})
		}
	}
	return page, true, nil
}

func (t *Traversal) allowCandidate(candidate string, depth int) bool {
	for _, filter := range t.candidateFilters {
		if !filter(candidate, depth) {
			return false
		}
	}
	return true
}

func (t *Traversal) probeClient() *ProbeClient {
	if t.probe == nil {
		t.probe = NewProbeClient()
	}
	return t.probe
}

// requestHash is the visited-set key for a URL. Hashing the canonical form
// collapses spellings of the same page ("http://example.com" with and
// without the trailing slash, fragment variants) into one entry.
func requestHash(pageURL string) uint64 {
	canonical, err := CanonicalURL(pageURL)
	if err != nil {
		canonical = pageURL
	}
	return xxhash.Sum64String(canonical)
}
