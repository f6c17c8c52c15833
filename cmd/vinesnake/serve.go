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
	"time"

	"github.com/spf13/cobra"

	"github.com/agentberlin/vinesnake/internal/mcp"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server",
	Long: `Runs the MCP tool server until interrupted.

The stdio transport is for MCP clients that spawn the server as a child
process. The http transport serves the streamable HTTP protocol on
server.host:server.port for clients that connect over the network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		s, err := mcp.NewMCPServer(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize server: %w", err)
		}
		defer s.Close()

		switch serveTransport {
		case "stdio":
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)

		case "http":
			httpServer, err := s.RunHTTP(cfg.Server.Addr())
			if err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			logger.Info().Msg("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info().Msg("Server exited gracefully")
			return nil

		default:
			return fmt.Errorf("unknown transport %q: use stdio or http", serveTransport)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveTransport, "transport", "t", "stdio", "MCP transport (stdio|http)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override server.host for the HTTP transport")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override server.port for the HTTP transport")
}
