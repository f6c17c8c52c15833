package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/agentberlin/vinesnake"
	"github.com/agentberlin/vinesnake/internal/artifacts"
	"github.com/agentberlin/vinesnake/internal/config"
	"github.com/agentberlin/vinesnake/internal/logging"
	"github.com/agentberlin/vinesnake/internal/remote"
	"github.com/agentberlin/vinesnake/internal/session"
)

const (
	ServerName    = "vinesnake"
	ServerVersion = vinesnake.Version
)

// MCPServer exposes the crawling toolkit over the MCP protocol. All page
// rendering is delegated to the remote rendering service; the server itself
// only orchestrates traversals, classifies links, and manages sessions,
// artifacts and history.
type MCPServer struct {
	server    *mcp.Server
	remote    *remote.Client
	store     *session.Store
	artifacts *artifacts.Store
	probe     *vinesnake.ProbeClient
	selector  *vinesnake.StrategySelector
	llm       openai.Client
	cfg       *config.Config
	logger    zerolog.Logger
	startedAt time.Time
}

// NewMCPServer creates a new MCP server instance wired to the rendering
// service and stores named in cfg.
func NewMCPServer(cfg *config.Config, logger zerolog.Logger) (*MCPServer, error) {
	remoteClient, err := remote.NewClient(remote.Options{
		BaseURL:      cfg.Remote.BaseURL,
		APIKey:       cfg.Remote.APIKey,
		Timeout:      cfg.Remote.Timeout(),
		MaxBodyBytes: cfg.Remote.MaxBodyBytes(),
		Logger:       logging.Component(logger, "remote"),
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", cfg.Store.Path).Msg("Initializing database")
	var st *session.Store
	if cfg.Store.Path != "" {
		st, err = session.NewStoreWithPath(cfg.Store.Path)
	} else {
		st, err = session.NewStore()
	}
	if err != nil {
		return nil, err
	}

	art, err := artifacts.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, err
	}

	probe := vinesnake.NewProbeClient()
	if limit := cfg.Remote.MaxBodyBytes(); limit > 0 {
		probe.MaxBodySize = int(limit)
	}

	var llmOpts []option.RequestOption
	if cfg.LLM.APIKey != "" {
		llmOpts = append(llmOpts, option.WithAPIKey(cfg.LLM.APIKey))
	}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, option.WithBaseURL(cfg.LLM.BaseURL))
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	s := &MCPServer{
		server:    mcpServer,
		remote:    remoteClient,
		store:     st,
		artifacts: art,
		probe:     probe,
		selector:  vinesnake.NewStrategySelector(probe),
		llm:       openai.NewClient(llmOpts...),
		cfg:       cfg,
		logger:    logging.Component(logger, "mcp"),
		startedAt: time.Now(),
	}

	s.registerTools()

	s.logger.Info().Msg("MCP server initialized successfully")
	return s, nil
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// Run serves MCP over stdio until ctx ends or the client disconnects
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info().Msg("Starting MCP server on stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server with HTTP transport using StreamableHTTPHandler
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	s.logger.Info().Str("addr", addr).Msg("Starting MCP HTTP server")

	handler := mcp.NewStreamableHTTPHandler(
		func(req *http.Request) *mcp.Server {
			return s.server
		},
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("MCP HTTP server started successfully")
	return httpServer, nil
}

// Close performs cleanup
func (s *MCPServer) Close() error {
	s.logger.Info().Msg("Shutting down MCP server")
	return s.store.Close()
}
