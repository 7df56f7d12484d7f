// Package mcp exposes the streaming engine as Model Context Protocol tools
// over stdio, so an MCP client can drive the stream interactively.
package mcp

import (
	"context"

	"github.com/emmett/wavelink/internal/app"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	engine    *app.Engine
}

func NewServer(cfg Config, engine *app.Engine) *Server {
	s := &Server{
		config: cfg,
		engine: engine,
	}

	// Create MCP server
	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	// Register tools
	s.registerTools()

	return s
}

// Run serves MCP over stdin/stdout until the context is canceled or the
// client hangs up.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stream_start",
		Description: "Enable audio streaming to the configured destination",
	}, s.handleStreamStart)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stream_stop",
		Description: "Pause audio streaming without shutting the engine down",
	}, s.handleStreamStop)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_frequency",
		Description: "Retune the sine source without a phase reset",
	}, s.handleSetFrequency)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_amplitude",
		Description: "Adjust the sine source's peak amplitude (clamped to 0..1)",
	}, s.handleSetAmplitude)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_destination",
		Description: "Redirect the stream to a new host and UDP port",
	}, s.handleSetDestination)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_address",
		Description: "Change the channel address outgoing audio is published on",
	}, s.handleSetAddress)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "send_text",
		Description: "Send one text message on the text channel",
	}, s.handleSendText)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "engine_status",
		Description: "Report destination, source, frequency, streaming state and send count",
	}, s.handleEngineStatus)
}
