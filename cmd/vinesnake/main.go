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

// Vinesnake MCP server and CLI
//
// Drives a remote rendering service and exposes the results as MCP tools:
// recursive same-origin crawls, markdown and HTML retrieval, link
// classification, sitemap parsing, screenshots, PDFs, JavaScript execution
// and LLM data extraction.
//
// Usage:
//
//	vinesnake <command> [flags]
//
// Commands:
//
//	serve     Run the MCP tool server (stdio or HTTP transport)
//	crawl     Run a one-shot recursive crawl and print a report
//	links     Fetch a page and print its classified links
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/internal/config"
	"github.com/agentberlin/vinesnake/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// populated by the root PersistentPreRunE for every subcommand
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vinesnake",
	Short: "MCP tool server for crawling the web through a remote rendering service",
	Long: `Vinesnake talks to a remote rendering service over its REST API and
exposes the results as MCP tools: recursive same-origin crawls, markdown
and HTML retrieval, link classification, sitemap and feed parsing,
screenshots, PDFs, JavaScript execution and LLM data extraction.

Point it at a running rendering service with remote.base_url in the
config file, then register the serve command with your MCP client.`,
	Version:       vinesnake.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		opts := logging.Options{
			Level:      cfg.Logging.Level,
			Dir:        cfg.Logging.Dir,
			MaxSize:    cfg.Logging.Rotation.MaxSize,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			Compress:   cfg.Logging.Rotation.Compress,
			Console:    true,
		}
		if logLevel != "" {
			opts.Level = logLevel
		}
		logger, err = logging.New(opts)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vinesnake %s\n", vinesnake.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
