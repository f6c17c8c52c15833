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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/internal/logging"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/report"
)

var linksFlat bool

var linksCmd = &cobra.Command{
	Use:   "links <url>",
	Short: "Fetch a page and print its classified links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageURL := args[0]

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

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		page, err := client.FetchPage(ctx, pageURL, vinesnake.FetchOptions{})
		if err != nil {
			return fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		if !page.Success {
			return fmt.Errorf("fetch %s: status %d", pageURL, page.StatusCode)
		}

		if linksFlat {
			fmt.Print(report.FlatLinks(pageURL, vinesnake.ClassifyLinks(page, pageURL).All()))
			return nil
		}
		fmt.Print(report.CategorizedLinks(pageURL, vinesnake.ClassifyAllLinks(page, pageURL)))
		return nil
	},
}

func init() {
	linksCmd.Flags().BoolVar(&linksFlat, "flat", false, "Print a flat list instead of categorized buckets")
}
