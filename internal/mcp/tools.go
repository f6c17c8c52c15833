package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/extensions"
	"github.com/agentberlin/vinesnake/internal/logging"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/report"
	"github.com/agentberlin/vinesnake/internal/session"
)

const (
	// maxListedURLs caps how many URLs sitemap-style tools inline into text
	// output; the structured result always carries the full list
	maxListedURLs = 50
	// maxBatchConcurrency caps batch_crawl parallelism to protect the
	// rendering service
	maxBatchConcurrency = 16
	// maxExtractionChars caps how much page content is handed to the
	// extraction model
	maxExtractionChars = 48 * 1024
)

// registerTools registers all MCP tools with the server
func (s *MCPServer) registerTools() {
	s.logger.Info().Msg("Registering MCP tools")

	// Core crawl tools
	s.registerCrawlRecursiveTool()
	s.registerSmartCrawlTool()
	s.registerCrawlTool()
	s.registerBatchCrawlTool()

	// Content retrieval tools
	s.registerGetMarkdownTool()
	s.registerGetHTMLTool()
	s.registerExecuteJSTool()
	s.registerExtractDataTool()

	// Link and sitemap tools
	s.registerExtractLinksTool()
	s.registerParseSitemapTool()

	// Artifact tools
	s.registerCaptureScreenshotTool()
	s.registerGeneratePDFTool()

	// Session management tools
	s.registerCreateSessionTool()
	s.registerClearSessionTool()
	s.registerListSessionsTool()

	// History and diagnostics tools
	s.registerListCrawlsTool()
	s.registerServerStatsTool()

	s.logger.Info().Msg("All MCP tools registered successfully")
}

// CrawlRecursiveArgs defines the input schema for crawl_recursive tool
type CrawlRecursiveArgs struct {
	URL            string `json:"url"`
	MaxDepth       *int   `json:"max_depth,omitempty"`
	MaxPages       *int   `json:"max_pages,omitempty"`
	IncludePattern string `json:"include_pattern,omitempty"`
	ExcludePattern string `json:"exclude_pattern,omitempty"`
}

// CrawledPage is the per-page entry in a crawl_recursive result
type CrawledPage struct {
	URL              string `json:"url"`
	Depth            int    `json:"depth"`
	ContentChars     int    `json:"content_chars"`
	InternalLinks    int    `json:"internal_links"`
	Fingerprint      string `json:"content_fingerprint,omitempty"`
	DuplicateContent bool   `json:"duplicate_content,omitempty"`
}

// CrawlRecursiveResult defines the output schema for crawl_recursive tool
type CrawlRecursiveResult struct {
	Success         bool          `json:"success"`
	SeedURL         string        `json:"seed_url,omitempty"`
	Strategy        string        `json:"strategy,omitempty"`
	PagesCrawled    int           `json:"pages_crawled"`
	MaxDepthReached int           `json:"max_depth_reached"`
	MaxDepthLimit   int           `json:"max_depth_limit"`
	FailedFetches   int           `json:"failed_fetches"`
	FilteredURLs    int           `json:"filtered_urls"`
	DurationMs      int64         `json:"duration_ms"`
	Pages           []CrawledPage `json:"pages,omitempty"`
	Message         string        `json:"message,omitempty"`
}

// registerCrawlRecursiveTool registers the crawl_recursive tool
func (s *MCPServer) registerCrawlRecursiveTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl_recursive",
		Description: "Recursively crawls a website breadth-first, following same-origin links up to max_depth levels and max_pages pages, with optional include/exclude URL regex filters",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CrawlRecursiveArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: crawl_recursive")

		if strings.TrimSpace(args.URL) == "" {
			return nil, CrawlRecursiveResult{
				Success: false,
				Message: "url is required",
			}, nil
		}

		maxDepth := s.cfg.Crawl.MaxDepth
		if args.MaxDepth != nil {
			maxDepth = *args.MaxDepth
		}
		if maxDepth < 0 {
			return nil, CrawlRecursiveResult{
				Success: false,
				Message: "max_depth must be zero or positive",
			}, nil
		}
		maxPages := s.cfg.Crawl.MaxPages
		if args.MaxPages != nil {
			maxPages = *args.MaxPages
		}

		traversal, err := vinesnake.NewTraversal(s.remote, &vinesnake.TraversalConfig{
			MaxDepth:       maxDepth,
			MaxPages:       maxPages,
			IncludePattern: args.IncludePattern,
			ExcludePattern: args.ExcludePattern,
			BypassCache:    true,
			RespectRobots:  s.cfg.Crawl.RespectRobots,
			Fingerprints:   true,
		})
		if err != nil {
			return nil, CrawlRecursiveResult{
				Success: false,
				Message: fmt.Sprintf("Invalid crawl configuration: %v", err),
			}, nil
		}
		traversal.SetLogger(logging.Component(s.logger, "traversal"))
		traversal.SetProbeClient(s.probe)
		traversal.SetStrategySelector(s.selector)
		if s.cfg.Crawl.MaxURLLength > 0 {
			extensions.URLLengthFilter(traversal, s.cfg.Crawl.MaxURLLength)
		}

		result, err := traversal.Run(ctx, args.URL)
		if err != nil {
			s.recordCrawl(args.URL, nil, maxDepth, err)
			return nil, CrawlRecursiveResult{
				Success: false,
				Message: fmt.Sprintf("Failed to crawl %s: %v", args.URL, err),
			}, nil
		}
		s.recordCrawl(args.URL, result, maxDepth, nil)

		pages := make([]CrawledPage, 0, len(result.Pages))
		for i := range result.Pages {
			page := &result.Pages[i]
			pages = append(pages, CrawledPage{
				URL:              page.URL,
				Depth:            page.Depth,
				ContentChars:     len(page.Content),
				InternalLinks:    page.InternalLinks,
				Fingerprint:      page.Fingerprint,
				DuplicateContent: page.DuplicateContent,
			})
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: report.CrawlSummary(result, maxDepth),
				},
			},
		}, CrawlRecursiveResult{
			Success:         true,
			SeedURL:         result.SeedURL,
			Strategy:        string(result.Strategy),
			PagesCrawled:    result.PagesCrawled(),
			MaxDepthReached: result.MaxDepthReached,
			MaxDepthLimit:   maxDepth,
			FailedFetches:   result.FailedFetches,
			FilteredURLs:    result.FilteredURLs,
			DurationMs:      result.DurationMs,
			Pages:           pages,
		}, nil
	})
}

// recordCrawl appends one row of crawl history. History failures are logged,
// never surfaced to the tool caller.
func (s *MCPServer) recordCrawl(seedURL string, result *vinesnake.TraversalResult, maxDepth int, runErr error) {
	record := &session.CrawlRecord{
		SeedURL:       seedURL,
		MaxDepthLimit: maxDepth,
	}
	if result != nil {
		record.Strategy = string(result.Strategy)
		record.PagesCrawled = result.PagesCrawled()
		record.MaxDepthReached = result.MaxDepthReached
		record.DurationMs = result.DurationMs
	}
	if runErr != nil {
		record.Status = "failed"
		record.Error = runErr.Error()
	}
	if err := s.store.RecordCrawl(record); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record crawl history")
	}
}

// SmartCrawlArgs defines the input schema for smart_crawl tool
type SmartCrawlArgs struct {
	URL         string `json:"url"`
	BypassCache *bool  `json:"bypass_cache,omitempty"`
}

// SmartCrawlResult defines the output schema for smart_crawl tool
type SmartCrawlResult struct {
	Success  bool     `json:"success"`
	URL      string   `json:"url"`
	Strategy string   `json:"strategy"`
	Content  string   `json:"content,omitempty"`
	URLs     []string `json:"urls,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// registerSmartCrawlTool registers the smart_crawl tool
func (s *MCPServer) registerSmartCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "smart_crawl",
		Description: "Detects the content type of a URL (HTML page, sitemap, RSS/Atom feed, plain text, XML) and crawls it with the appropriate strategy",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SmartCrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: smart_crawl")

		if strings.TrimSpace(args.URL) == "" {
			return nil, SmartCrawlResult{Success: false, Message: "url is required"}, nil
		}

		strategy := s.selector.Select(ctx, args.URL)

		switch strategy {
		case vinesnake.StrategySitemap, vinesnake.StrategyRSS:
			urls, err := vinesnake.CollectSitemapURLs(ctx, s.probe, args.URL)
			if err != nil {
				return nil, SmartCrawlResult{
					Success:  false,
					URL:      args.URL,
					Strategy: string(strategy),
					Message:  fmt.Sprintf("Failed to parse %s: %v", args.URL, err),
				}, nil
			}

			label := "Sitemap"
			if strategy == vinesnake.StrategyRSS {
				label = "Feed"
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Text: fmt.Sprintf("%s detected at %s\n%s", label, args.URL, listURLs(urls)),
					},
				},
			}, SmartCrawlResult{
				Success:  true,
				URL:      args.URL,
				Strategy: string(strategy),
				URLs:     urls,
			}, nil

		case vinesnake.StrategyText, vinesnake.StrategyXML:
			res, err := s.probe.Get(ctx, args.URL)
			if err != nil {
				return nil, SmartCrawlResult{
					Success:  false,
					URL:      args.URL,
					Strategy: string(strategy),
					Message:  fmt.Sprintf("Failed to fetch %s: %v", args.URL, err),
				}, nil
			}
			if res.StatusCode >= 400 {
				return nil, SmartCrawlResult{
					Success:  false,
					URL:      args.URL,
					Strategy: string(strategy),
					Message:  fmt.Sprintf("Fetch of %s returned status %d", args.URL, res.StatusCode),
				}, nil
			}

			content := string(res.Body)
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Text: fmt.Sprintf("Fetched %s directly as %s (%d chars):\n\n%s", args.URL, strategy, len(content), content),
					},
				},
			}, SmartCrawlResult{
				Success:  true,
				URL:      args.URL,
				Strategy: string(strategy),
				Content:  content,
			}, nil

		default:
			opts := remote.MarkdownOptions{}
			if args.BypassCache != nil && *args.BypassCache {
				opts.Cache = "0"
			}
			md, err := s.remote.Markdown(ctx, args.URL, opts)
			if err != nil {
				return nil, SmartCrawlResult{
					Success:  false,
					URL:      args.URL,
					Strategy: string(strategy),
					Message:  fmt.Sprintf("Failed to render %s: %v", args.URL, err),
				}, nil
			}

			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Text: fmt.Sprintf("Smart crawl of %s (strategy: %s, %d chars):\n\n%s", args.URL, strategy, len(md.Markdown), md.Markdown),
					},
				},
			}, SmartCrawlResult{
				Success:  true,
				URL:      args.URL,
				Strategy: string(strategy),
				Content:  md.Markdown,
			}, nil
		}
	})
}

// listURLs renders a bounded URL list for text output
func listURLs(urls []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d URLs:\n", len(urls))
	shown := urls
	if len(shown) > maxListedURLs {
		shown = shown[:maxListedURLs]
	}
	for _, u := range shown {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	if rest := len(urls) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}
	return b.String()
}

// CrawlArgs defines the input schema for crawl tool
type CrawlArgs struct {
	URL         string `json:"url"`
	SessionID   string `json:"session_id,omitempty"`
	BypassCache *bool  `json:"bypass_cache,omitempty"`
}

// CrawlResult defines the output schema for crawl tool
type CrawlResult struct {
	Success       bool   `json:"success"`
	URL           string `json:"url"`
	StatusCode    int    `json:"status_code,omitempty"`
	Content       string `json:"content,omitempty"`
	InternalLinks int    `json:"internal_links"`
	ExternalLinks int    `json:"external_links"`
	SessionID     string `json:"session_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// registerCrawlTool registers the crawl tool
func (s *MCPServer) registerCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl",
		Description: "Fetches a single page through the rendering service, optionally inside a persistent browser session",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Str("session", args.SessionID).Msg("Tool called: crawl")

		if strings.TrimSpace(args.URL) == "" {
			return nil, CrawlResult{Success: false, Message: "url is required"}, nil
		}

		if args.SessionID != "" {
			if err := s.store.TouchSession(args.SessionID); err != nil {
				return nil, CrawlResult{
					Success: false,
					URL:     args.URL,
					Message: fmt.Sprintf("Unknown session %s: create one with create_session first", args.SessionID),
				}, nil
			}
		}

		bypass := true
		if args.BypassCache != nil {
			bypass = *args.BypassCache
		}

		page, err := s.remote.FetchPage(ctx, args.URL, vinesnake.FetchOptions{
			BypassCache: bypass,
			SessionID:   args.SessionID,
		})
		if err != nil {
			return nil, CrawlResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to fetch %s: %v", args.URL, err),
			}, nil
		}
		if !page.Success {
			message := page.Error
			if message == "" {
				message = fmt.Sprintf("fetch returned status %d", page.StatusCode)
			}
			return nil, CrawlResult{
				Success:    false,
				URL:        args.URL,
				StatusCode: page.StatusCode,
				Message:    fmt.Sprintf("Fetch failed for %s: %s", args.URL, message),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Crawled %s (status %d, %d chars)\n\n%s", args.URL, page.StatusCode, len(page.Content), page.Content),
				},
			},
		}, CrawlResult{
			Success:       true,
			URL:           args.URL,
			StatusCode:    page.StatusCode,
			Content:       page.Content,
			InternalLinks: len(page.Links.Internal),
			ExternalLinks: len(page.Links.External),
			SessionID:     args.SessionID,
		}, nil
	})
}

// BatchCrawlArgs defines the input schema for batch_crawl tool
type BatchCrawlArgs struct {
	URLs        []string `json:"urls"`
	Concurrency *int     `json:"concurrency,omitempty"`
	BypassCache *bool    `json:"bypass_cache,omitempty"`
}

// BatchPage is the per-URL entry in a batch_crawl result
type BatchPage struct {
	URL          string `json:"url"`
	Success      bool   `json:"success"`
	StatusCode   int    `json:"status_code,omitempty"`
	ContentChars int    `json:"content_chars"`
	Error        string `json:"error,omitempty"`
}

// BatchCrawlResult defines the output schema for batch_crawl tool
type BatchCrawlResult struct {
	Success   bool        `json:"success"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Pages     []BatchPage `json:"pages,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// registerBatchCrawlTool registers the batch_crawl tool
func (s *MCPServer) registerBatchCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "batch_crawl",
		Description: "Fetches multiple URLs concurrently through the rendering service and reports per-URL outcomes in request order",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args BatchCrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Int("urls", len(args.URLs)).Msg("Tool called: batch_crawl")

		if len(args.URLs) == 0 {
			return nil, BatchCrawlResult{Success: false, Message: "at least one url is required"}, nil
		}

		concurrency := vinesnake.DefaultBatchConcurrency
		if args.Concurrency != nil && *args.Concurrency > 0 {
			concurrency = *args.Concurrency
		}
		if concurrency > maxBatchConcurrency {
			concurrency = maxBatchConcurrency
		}

		opts := vinesnake.FetchOptions{}
		if args.BypassCache != nil {
			opts.BypassCache = *args.BypassCache
		}

		pages, err := vinesnake.FetchAll(ctx, s.remote, args.URLs, concurrency, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to batch crawl: %w", err)
		}

		var b strings.Builder
		succeeded := 0
		entries := make([]BatchPage, 0, len(pages))
		for i, page := range pages {
			entry := BatchPage{URL: args.URLs[i]}
			if page == nil {
				entry.Error = "no result"
			} else {
				entry.Success = page.Success
				entry.StatusCode = page.StatusCode
				entry.ContentChars = len(page.Content)
				entry.Error = page.Error
			}
			if entry.Success {
				succeeded++
				fmt.Fprintf(&b, "- %s: %d chars\n", entry.URL, entry.ContentChars)
			} else {
				message := entry.Error
				if message == "" {
					message = fmt.Sprintf("status %d", entry.StatusCode)
				}
				fmt.Fprintf(&b, "- %s: failed (%s)\n", entry.URL, message)
			}
			entries = append(entries, entry)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Batch crawl completed: %d/%d pages fetched successfully\n%s", succeeded, len(args.URLs), b.String()),
				},
			},
		}, BatchCrawlResult{
			Success:   true,
			Total:     len(args.URLs),
			Succeeded: succeeded,
			Failed:    len(args.URLs) - succeeded,
			Pages:     entries,
		}, nil
	})
}

// GetMarkdownArgs defines the input schema for get_markdown tool
type GetMarkdownArgs struct {
	URL    string `json:"url"`
	Filter string `json:"filter,omitempty"`
	Query  string `json:"query,omitempty"`
	Cache  string `json:"cache,omitempty"`
}

// GetMarkdownResult defines the output schema for get_markdown tool
type GetMarkdownResult struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filter   string `json:"filter,omitempty"`
	Query    string `json:"query,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Message  string `json:"message,omitempty"`
}

// registerGetMarkdownTool registers the get_markdown tool
func (s *MCPServer) registerGetMarkdownTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_markdown",
		Description: "Renders a page to markdown via the rendering service, with optional content filter (fit, raw, bm25, llm) and filter query",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetMarkdownArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Str("filter", args.Filter).Msg("Tool called: get_markdown")

		if strings.TrimSpace(args.URL) == "" {
			return nil, GetMarkdownResult{Success: false, Message: "url is required"}, nil
		}

		md, err := s.remote.Markdown(ctx, args.URL, remote.MarkdownOptions{
			Filter: args.Filter,
			Query:  args.Query,
			Cache:  args.Cache,
		})
		if err != nil {
			return nil, GetMarkdownResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to get markdown for %s: %v", args.URL, err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Markdown for %s (%d characters):\n\n%s", args.URL, len(md.Markdown), md.Markdown),
				},
			},
		}, GetMarkdownResult{
			Success:  true,
			URL:      args.URL,
			Filter:   md.Filter,
			Query:    md.Query,
			Markdown: md.Markdown,
		}, nil
	})
}

// GetHTMLArgs defines the input schema for get_html tool
type GetHTMLArgs struct {
	URL string `json:"url"`
}

// GetHTMLResult defines the output schema for get_html tool
type GetHTMLResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}

// registerGetHTMLTool registers the get_html tool
func (s *MCPServer) registerGetHTMLTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_html",
		Description: "Returns the preprocessed HTML of a page from the rendering service",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetHTMLArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: get_html")

		if strings.TrimSpace(args.URL) == "" {
			return nil, GetHTMLResult{Success: false, Message: "url is required"}, nil
		}

		html, err := s.remote.HTML(ctx, args.URL)
		if err != nil {
			return nil, GetHTMLResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to get HTML for %s: %v", args.URL, err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("HTML for %s (%d characters):\n\n%s", args.URL, len(html), html),
				},
			},
		}, GetHTMLResult{
			Success: true,
			URL:     args.URL,
			HTML:    html,
		}, nil
	})
}

// ExecuteJSArgs defines the input schema for execute_js tool
type ExecuteJSArgs struct {
	URL     string   `json:"url"`
	Scripts []string `json:"scripts"`
}

// ExecuteJSResult defines the output schema for execute_js tool
type ExecuteJSResult struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Results  []any  `json:"results,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Message  string `json:"message,omitempty"`
}

// registerExecuteJSTool registers the execute_js tool
func (s *MCPServer) registerExecuteJSTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "execute_js",
		Description: "Runs JavaScript snippets on a page inside the rendering service's browser and returns their results plus the page content afterwards",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExecuteJSArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Int("scripts", len(args.Scripts)).Msg("Tool called: execute_js")

		if strings.TrimSpace(args.URL) == "" {
			return nil, ExecuteJSResult{Success: false, Message: "url is required"}, nil
		}
		if len(args.Scripts) == 0 {
			return nil, ExecuteJSResult{Success: false, URL: args.URL, Message: "at least one script is required"}, nil
		}

		result, err := s.remote.ExecuteJS(ctx, args.URL, args.Scripts)
		if err != nil {
			return nil, ExecuteJSResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to execute scripts on %s: %v", args.URL, err),
			}, nil
		}

		resultsJSON, _ := json.MarshalIndent(result.Results, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Executed %d scripts on %s\nResults:\n%s\n\nPage content after execution:\n%s",
						len(args.Scripts), args.URL, string(resultsJSON), result.Markdown),
				},
			},
		}, ExecuteJSResult{
			Success:  result.Success,
			URL:      args.URL,
			Results:  result.Results,
			Markdown: result.Markdown,
		}, nil
	})
}

// ExtractDataArgs defines the input schema for extract_data tool
type ExtractDataArgs struct {
	URL         string         `json:"url"`
	Schema      map[string]any `json:"schema,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
}

// ExtractDataResult defines the output schema for extract_data tool
type ExtractDataResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Data    any    `json:"data,omitempty"`
	Raw     string `json:"raw,omitempty"`
	Message string `json:"message,omitempty"`
}

// registerExtractDataTool registers the extract_data tool
func (s *MCPServer) registerExtractDataTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_data",
		Description: "Extracts structured data from a page by rendering it to markdown and running an LLM extraction with the given JSON schema or instruction",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExtractDataArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: extract_data")

		if strings.TrimSpace(args.URL) == "" {
			return nil, ExtractDataResult{Success: false, Message: "url is required"}, nil
		}
		if len(args.Schema) == 0 && strings.TrimSpace(args.Instruction) == "" {
			return nil, ExtractDataResult{
				Success: false,
				URL:     args.URL,
				Message: "provide a schema or an instruction describing what to extract",
			}, nil
		}
		if s.cfg.LLM.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return nil, ExtractDataResult{
				Success: false,
				URL:     args.URL,
				Message: "LLM API key not configured: set llm.api_key or OPENAI_API_KEY",
			}, nil
		}

		md, err := s.remote.Markdown(ctx, args.URL, remote.MarkdownOptions{Filter: "fit"})
		if err != nil {
			return nil, ExtractDataResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to render %s: %v", args.URL, err),
			}, nil
		}

		content := md.Markdown
		if len(content) > maxExtractionChars {
			content = content[:maxExtractionChars]
		}

		var prompt strings.Builder
		prompt.WriteString("Extract structured data from the provided page content.\n")
		if args.Instruction != "" {
			fmt.Fprintf(&prompt, "Instruction: %s\n", args.Instruction)
		}
		if len(args.Schema) > 0 {
			schemaJSON, err := json.Marshal(args.Schema)
			if err != nil {
				return nil, ExtractDataResult{
					Success: false,
					URL:     args.URL,
					Message: fmt.Sprintf("Invalid schema: %v", err),
				}, nil
			}
			fmt.Fprintf(&prompt, "Target JSON schema:\n%s\n", string(schemaJSON))
		}
		prompt.WriteString("Respond with a single JSON object and nothing else.")

		completion, err := s.llm.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(s.cfg.LLM.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(prompt.String()),
				openai.UserMessage(content),
			},
		})
		if err != nil {
			return nil, ExtractDataResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Extraction failed: %v", err),
			}, nil
		}
		if len(completion.Choices) == 0 {
			return nil, ExtractDataResult{
				Success: false,
				URL:     args.URL,
				Message: "extraction model returned no choices",
			}, nil
		}

		raw := completion.Choices[0].Message.Content
		cleaned := strings.TrimSpace(raw)
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)

		var data any
		if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Text: fmt.Sprintf("Extracted data from %s (model returned non-JSON):\n%s", args.URL, raw),
					},
				},
			}, ExtractDataResult{
				Success: true,
				URL:     args.URL,
				Raw:     raw,
			}, nil
		}

		dataJSON, _ := json.MarshalIndent(data, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Extracted data from %s:\n%s", args.URL, string(dataJSON)),
				},
			},
		}, ExtractDataResult{
			Success: true,
			URL:     args.URL,
			Data:    data,
		}, nil
	})
}

// ExtractLinksArgs defines the input schema for extract_links tool
type ExtractLinksArgs struct {
	URL        string `json:"url"`
	Categorize *bool  `json:"categorize,omitempty"`
}

// ExtractLinksResult defines the output schema for extract_links tool
type ExtractLinksResult struct {
	Success    bool                   `json:"success"`
	URL        string                 `json:"url"`
	Total      int                    `json:"total"`
	Categories *vinesnake.LinkBuckets `json:"categories,omitempty"`
	Links      []string               `json:"links,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// registerExtractLinksTool registers the extract_links tool
func (s *MCPServer) registerExtractLinksTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_links",
		Description: "Extracts all links from a page and classifies them into internal, external, social, documents, images and scripts buckets",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExtractLinksArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: extract_links")

		if strings.TrimSpace(args.URL) == "" {
			return nil, ExtractLinksResult{Success: false, Message: "url is required"}, nil
		}

		categorize := true
		if args.Categorize != nil {
			categorize = *args.Categorize
		}

		page, err := s.remote.FetchPage(ctx, args.URL, vinesnake.FetchOptions{})
		if err != nil {
			return nil, ExtractLinksResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to fetch %s: %v", args.URL, err),
			}, nil
		}
		if !page.Success {
			message := page.Error
			if message == "" {
				message = fmt.Sprintf("fetch returned status %d", page.StatusCode)
			}
			return nil, ExtractLinksResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Fetch failed for %s: %s", args.URL, message),
			}, nil
		}

		if categorize {
			buckets := vinesnake.ClassifyAllLinks(page, args.URL)
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Text: report.CategorizedLinks(args.URL, buckets),
					},
				},
			}, ExtractLinksResult{
				Success:    true,
				URL:        args.URL,
				Total:      buckets.Total(),
				Categories: buckets,
			}, nil
		}

		links := vinesnake.ClassifyLinks(page, args.URL).All()
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: report.FlatLinks(args.URL, links),
				},
			},
		}, ExtractLinksResult{
			Success: true,
			URL:     args.URL,
			Total:   len(links),
			Links:   links,
		}, nil
	})
}

// ParseSitemapArgs defines the input schema for parse_sitemap tool
type ParseSitemapArgs struct {
	URL string `json:"url"`
}

// ParseSitemapResult defines the output schema for parse_sitemap tool
type ParseSitemapResult struct {
	Success bool     `json:"success"`
	URL     string   `json:"url"`
	Count   int      `json:"count"`
	URLs    []string `json:"urls,omitempty"`
	Message string   `json:"message,omitempty"`
}

// registerParseSitemapTool registers the parse_sitemap tool
func (s *MCPServer) registerParseSitemapTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parse_sitemap",
		Description: "Fetches and parses an XML sitemap, sitemap index, or RSS/Atom feed (gzip supported) and returns the URLs it lists",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ParseSitemapArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: parse_sitemap")

		if strings.TrimSpace(args.URL) == "" {
			return nil, ParseSitemapResult{Success: false, Message: "url is required"}, nil
		}

		urls, err := vinesnake.CollectSitemapURLs(ctx, s.probe, args.URL)
		if err != nil {
			return nil, ParseSitemapResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to parse sitemap %s: %v", args.URL, err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Sitemap at %s\n%s", args.URL, listURLs(urls)),
				},
			},
		}, ParseSitemapResult{
			Success: true,
			URL:     args.URL,
			Count:   len(urls),
			URLs:    urls,
		}, nil
	})
}

// CaptureScreenshotArgs defines the input schema for capture_screenshot tool
type CaptureScreenshotArgs struct {
	URL     string   `json:"url"`
	WaitFor *float64 `json:"wait_for,omitempty"`
}

// CaptureScreenshotResult defines the output schema for capture_screenshot tool
type CaptureScreenshotResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Message string `json:"message,omitempty"`
}

// registerCaptureScreenshotTool registers the capture_screenshot tool
func (s *MCPServer) registerCaptureScreenshotTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_screenshot",
		Description: "Captures a PNG screenshot of a page via the rendering service and saves it to the artifact directory",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CaptureScreenshotArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: capture_screenshot")

		if strings.TrimSpace(args.URL) == "" {
			return nil, CaptureScreenshotResult{Success: false, Message: "url is required"}, nil
		}

		wait := 0.0
		if args.WaitFor != nil {
			wait = *args.WaitFor
		}

		encoded, err := s.remote.Screenshot(ctx, args.URL, wait)
		if err != nil {
			return nil, CaptureScreenshotResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to capture screenshot of %s: %v", args.URL, err),
			}, nil
		}

		artifact, err := s.artifacts.SaveScreenshot(args.URL, encoded)
		if err != nil {
			return nil, CaptureScreenshotResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to save screenshot: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Screenshot captured for %s\nSaved to: %s (%d bytes)", args.URL, artifact.Path, artifact.Size),
				},
			},
		}, CaptureScreenshotResult{
			Success: true,
			URL:     args.URL,
			Path:    artifact.Path,
			Size:    artifact.Size,
		}, nil
	})
}

// GeneratePDFArgs defines the input schema for generate_pdf tool
type GeneratePDFArgs struct {
	URL string `json:"url"`
}

// GeneratePDFResult defines the output schema for generate_pdf tool
type GeneratePDFResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// registerGeneratePDFTool registers the generate_pdf tool
func (s *MCPServer) registerGeneratePDFTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_pdf",
		Description: "Renders a page to PDF via the rendering service, validates it and saves it to the artifact directory",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GeneratePDFArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("url", args.URL).Msg("Tool called: generate_pdf")

		if strings.TrimSpace(args.URL) == "" {
			return nil, GeneratePDFResult{Success: false, Message: "url is required"}, nil
		}

		encoded, err := s.remote.PDF(ctx, args.URL)
		if err != nil {
			return nil, GeneratePDFResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to generate PDF of %s: %v", args.URL, err),
			}, nil
		}

		artifact, pages, err := s.artifacts.SavePDF(args.URL, encoded)
		if err != nil {
			return nil, GeneratePDFResult{
				Success: false,
				URL:     args.URL,
				Message: fmt.Sprintf("Failed to save PDF: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("PDF generated for %s\nSaved to: %s (%d pages, %d bytes)", args.URL, artifact.Path, pages, artifact.Size),
				},
			},
		}, GeneratePDFResult{
			Success: true,
			URL:     args.URL,
			Path:    artifact.Path,
			Size:    artifact.Size,
			Pages:   pages,
		}, nil
	})
}

// CreateSessionArgs defines the input schema for create_session tool
type CreateSessionArgs struct {
	InitialURL string            `json:"initial_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CreateSessionResult defines the output schema for create_session tool
type CreateSessionResult struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"session_id,omitempty"`
	InitialURL string `json:"initial_url,omitempty"`
	Message    string `json:"message"`
}

// registerCreateSessionTool registers the create_session tool
func (s *MCPServer) registerCreateSessionTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_session",
		Description: "Creates a persistent browser session on the rendering service so consecutive crawl calls share cookies and page state",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CreateSessionArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("initialUrl", args.InitialURL).Msg("Tool called: create_session")

		sess, err := s.store.CreateSession(args.InitialURL, args.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Session created: %s\nPass it as session_id to the crawl tool to reuse browser state.", sess.ID),
				},
			},
		}, CreateSessionResult{
			Success:    true,
			SessionID:  sess.ID,
			InitialURL: sess.InitialURL,
			Message:    "Session created successfully",
		}, nil
	})
}

// ClearSessionArgs defines the input schema for clear_session tool
type ClearSessionArgs struct {
	SessionID string `json:"session_id"`
}

// ClearSessionResult defines the output schema for clear_session tool
type ClearSessionResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// registerClearSessionTool registers the clear_session tool
func (s *MCPServer) registerClearSessionTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_session",
		Description: "Removes a stored browser session",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ClearSessionArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Str("session", args.SessionID).Msg("Tool called: clear_session")

		if err := s.store.DeleteSession(args.SessionID); err != nil {
			return nil, ClearSessionResult{
				Success:   false,
				SessionID: args.SessionID,
				Message:   fmt.Sprintf("Failed to clear session: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Session cleared: %s", args.SessionID),
				},
			},
		}, ClearSessionResult{
			Success:   true,
			SessionID: args.SessionID,
			Message:   "Session cleared successfully",
		}, nil
	})
}

// registerListSessionsTool registers the list_sessions tool
func (s *MCPServer) registerListSessionsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "Lists stored browser sessions, most recently used first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Msg("Tool called: list_sessions")

		sessions, err := s.store.ListSessions()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d sessions:\n", len(sessions))
		for _, sess := range sessions {
			fmt.Fprintf(&b, "- %s (created %s, last used %s)",
				sess.ID,
				time.Unix(sess.CreatedAt, 0).UTC().Format(time.RFC3339),
				time.Unix(sess.LastUsedAt, 0).UTC().Format(time.RFC3339))
			if sess.InitialURL != "" {
				fmt.Fprintf(&b, " for %s", sess.InitialURL)
			}
			b.WriteString("\n")
		}

		result := map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: b.String(),
				},
			},
		}, result, nil
	})
}

// ListCrawlsArgs defines the input schema for list_crawls tool
type ListCrawlsArgs struct {
	Limit *int `json:"limit,omitempty"`
}

// registerListCrawlsTool registers the list_crawls tool
func (s *MCPServer) registerListCrawlsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_crawls",
		Description: "Lists recorded recursive crawls, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListCrawlsArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Msg("Tool called: list_crawls")

		limit := 20
		if args.Limit != nil && *args.Limit > 0 {
			limit = *args.Limit
		}

		crawls, err := s.store.ListCrawls(limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list crawls: %w", err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d recorded crawls:\n", len(crawls))
		for _, crawl := range crawls {
			fmt.Fprintf(&b, "- %s: %d pages, depth %d/%d, %s, %dms\n",
				crawl.SeedURL, crawl.PagesCrawled, crawl.MaxDepthReached,
				crawl.MaxDepthLimit, crawl.Status, crawl.DurationMs)
		}

		result := map[string]interface{}{
			"crawls": crawls,
			"count":  len(crawls),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: b.String(),
				},
			},
		}, result, nil
	})
}

// ServerStatsResult defines the output schema for server_stats tool
type ServerStatsResult struct {
	Success           bool    `json:"success"`
	Version           string  `json:"version"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
	Goroutines        int     `json:"goroutines"`
	Sessions          int64   `json:"sessions"`
	RecordedCrawls    int64   `json:"recorded_crawls"`
	ProcessMemoryMB   float64 `json:"process_memory_mb,omitempty"`
	ProcessCPUPercent float64 `json:"process_cpu_percent,omitempty"`
	HostMemoryPercent float64 `json:"host_memory_percent,omitempty"`
	HostCPUPercent    float64 `json:"host_cpu_percent,omitempty"`
}

// registerServerStatsTool registers the server_stats tool
func (s *MCPServer) registerServerStatsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "server_stats",
		Description: "Reports server health: uptime, goroutines, process and host memory/CPU, and store counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		s.logger.Info().Msg("Tool called: server_stats")

		sessions, err := s.store.SessionCount()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to count sessions: %w", err)
		}
		crawls, err := s.store.CrawlCount()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to count crawls: %w", err)
		}

		result := ServerStatsResult{
			Success:        true,
			Version:        ServerVersion,
			UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
			Goroutines:     runtime.NumGoroutine(),
			Sessions:       sessions,
			RecordedCrawls: crawls,
		}

		if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
			if info, err := proc.MemoryInfo(); err == nil {
				result.ProcessMemoryMB = float64(info.RSS) / (1024 * 1024)
			}
			if pct, err := proc.CPUPercent(); err == nil {
				result.ProcessCPUPercent = pct
			}
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			result.HostMemoryPercent = vm.UsedPercent
		}
		if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
			result.HostCPUPercent = pcts[0]
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Server stats:\nVersion: %s\nUptime: %ds\nGoroutines: %d\nSessions: %d\nRecorded crawls: %d\nProcess memory: %.1f MB\nHost memory used: %.1f%%",
						result.Version, result.UptimeSeconds, result.Goroutines,
						result.Sessions, result.RecordedCrawls,
						result.ProcessMemoryMB, result.HostMemoryPercent),
				},
			},
		}, result, nil
	})
}
