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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/extensions"
	"github.com/agentberlin/vinesnake/internal/logging"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/report"
)

var (
	crawlDepth    int
	crawlMaxPages int
	crawlInclude  string
	crawlExclude  string
	crawlFormat   string
	crawlOutput   string
	crawlQuiet    bool
	crawlRobots   bool
	crawlBypass   bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Run a one-shot recursive crawl and print a report",
	Long: `Crawls a website breadth-first through the rendering service, following
same-origin links up to the depth and page limits, and prints a report.

The text format is a human-readable summary; yaml carries the full page
contents and is meant for piping into other tools.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seedURL := args[0]

		depth := crawlDepth
		if depth < 0 {
			depth = cfg.Crawl.MaxDepth
		}
		maxPages := crawlMaxPages
		if maxPages <= 0 {
			maxPages = cfg.Crawl.MaxPages
		}

		client, err := remote.NewClient(remote.Options{
			BaseURL:      cfg.Remote.BaseURL,
			APIKey:       cfg.Remote.APIKey,
			Timeout:      cfg.Remote.Timeout(),
			MaxBodyBytes: cfg.Remote.MaxBodyBytes(),
			Logger:       logging.Component(logger, "remote"),
		})
		if err != nil {
			return err
		}

		probe := vinesnake.NewProbeClient()
		traversal, err := vinesnake.NewTraversal(client, &vinesnake.TraversalConfig{
			MaxDepth:       depth,
			MaxPages:       maxPages,
			IncludePattern: crawlInclude,
			ExcludePattern: crawlExclude,
			BypassCache:    crawlBypass,
			RespectRobots:  crawlRobots || cfg.Crawl.RespectRobots,
			Fingerprints:   true,
		})
		if err != nil {
			return err
		}
		traversal.SetLogger(logging.Component(logger, "traversal"))
		traversal.SetProbeClient(probe)
		traversal.SetStrategySelector(vinesnake.NewStrategySelector(probe))
		if cfg.Crawl.MaxURLLength > 0 {
			extensions.URLLengthFilter(traversal, cfg.Crawl.MaxURLLength)
		}

		var bar *progressbar.ProgressBar
		if !crawlQuiet {
			bar = newCrawlBar(maxPages)
			traversal.OnPage(func(_ *vinesnake.PageResult) {
				bar.Add(1)
			})
		}
		traversal.OnPageError(func(pageURL string, depth int, err error) {
			logger.Warn().Str("url", pageURL).Int("depth", depth).Err(err).Msg("Page failed")
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		result, err := traversal.Run(ctx, seedURL)
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("crawl %s: %w", seedURL, err)
		}

		out := os.Stdout
		if crawlOutput != "" && crawlOutput != "-" {
			f, err := os.Create(crawlOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		switch crawlFormat {
		case "yaml":
			return report.WriteYAML(out, result, depth)
		case "text":
			fmt.Fprint(out, report.CrawlSummary(result, depth))
			return nil
		default:
			return fmt.Errorf("unknown format %q: use text or yaml", crawlFormat)
		}
	},
}

// newCrawlBar builds the stderr progress bar so stdout stays clean for the
// report output
func newCrawlBar(max int) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func init() {
	crawlCmd.Flags().IntVarP(&crawlDepth, "depth", "d", -1, "Maximum link depth to follow (default from config)")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Maximum pages to crawl (default from config)")
	crawlCmd.Flags().StringVar(&crawlInclude, "include", "", "Only follow URLs matching this regex")
	crawlCmd.Flags().StringVar(&crawlExclude, "exclude", "", "Skip URLs matching this regex")
	crawlCmd.Flags().StringVarP(&crawlFormat, "format", "f", "text", "Report format (text|yaml)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "Write the report to this file instead of stdout")
	crawlCmd.Flags().BoolVarP(&crawlQuiet, "quiet", "q", false, "Suppress the progress bar")
	crawlCmd.Flags().BoolVar(&crawlRobots, "respect-robots", false, "Honor robots.txt disallow rules")
	crawlCmd.Flags().BoolVar(&crawlBypass, "bypass-cache", true, "Bypass the rendering service cache")
}
