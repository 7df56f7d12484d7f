package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/emmett/wavelink/internal/app"
	"github.com/emmett/wavelink/internal/config"
	"github.com/emmett/wavelink/internal/server/mcp"
	"github.com/emmett/wavelink/internal/stream"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.wavelinkrc or /etc/wavelink/config.yaml)")
	host        = flag.String("host", "127.0.0.1", "Destination host for the audio stream")
	port        = flag.Int("port", 8000, "Destination UDP port")
	address     = flag.String("address", "/audio/stream", "Channel address outgoing audio is published on")
	frequency   = flag.Float64("freq", 440.0, "Sine oscillator frequency in Hz")
	amplitude   = flag.Float64("amp", 0.5, "Sine oscillator amplitude (0.0-1.0)")
	source      = flag.String("source", "sine", "Sample source: sine, mic")
	audioDevice = flag.String("device", "", "Capture device name for -source mic")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	applyConfigDefaults(cfg)

	if *showVersion {
		fmt.Printf("Wavelink MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func applyConfigDefaults(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if !flagsSet["host"] && cfg.Sender.Host != "" {
		*host = cfg.Sender.Host
	}
	if !flagsSet["port"] && cfg.Sender.Port > 0 {
		*port = cfg.Sender.Port
	}
	if !flagsSet["address"] && cfg.Sender.Address != "" {
		*address = cfg.Sender.Address
	}
	if !flagsSet["freq"] && cfg.Sender.Frequency > 0 {
		*frequency = cfg.Sender.Frequency
	}
	if !flagsSet["amp"] && cfg.Sender.Amplitude > 0 {
		*amplitude = cfg.Sender.Amplitude
	}
	if !flagsSet["source"] && cfg.Sender.Source != "" {
		*source = cfg.Sender.Source
	}
	if !flagsSet["device"] && cfg.Sender.Device != "" {
		*audioDevice = cfg.Sender.Device
	}
}

// run keeps every human-facing line on stderr: stdout belongs to the MCP
// stdio transport.
func run(cfg *config.Config) error {
	fmt.Fprintf(os.Stderr, "Starting MCP server...\n")
	fmt.Fprintf(os.Stderr, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(os.Stderr, "Version: %s (commit: %s)\n\n", Version, GitCommit)

	engineCfg := app.EngineConfig{
		SampleRate: cfg.Sender.SampleRate,
		FrameCount: cfg.Sender.FrameCount,
		Tick:       time.Duration(cfg.Sender.TickMs) * time.Millisecond,
		Frequency:  *frequency,
		Amplitude:  *amplitude,
		Source:     *source,
		DeviceName: *audioDevice,
		Sender: stream.SenderConfig{
			Host:      *host,
			Port:      *port,
			Address:   *address,
			ChunkSize: cfg.Sender.ChunkSize,
			MaxChunks: cfg.Sender.MaxChunks,
		},
		// Tools gate the stream; the engine boots paused.
		StartStreaming: false,
	}

	engine, err := app.NewEngine(engineCfg)
	if err != nil {
		return err
	}
	defer engine.Stop()

	if err := engine.Start(); err != nil {
		return err
	}

	st := engine.Status()
	fmt.Fprintf(os.Stderr, "Engine ready: %s -> %s:%d on %s (paused)\n\n",
		st.Source, st.Host, st.Port, st.Address)

	// Absolute path to this binary for the client configuration snippet
	execPath, err := os.Executable()
	if err != nil {
		execPath = "./build/wavelink-mcp"
	}

	type MCPServerConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	type MCPClientConfig struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	}

	clientConfig := MCPClientConfig{
		MCPServers: map[string]MCPServerConfig{
			"wavelink": {
				Command: execPath,
				Args:    []string{"-host", *host, "-port", strconv.Itoa(*port)},
			},
		},
	}

	configJSON, err := json.MarshalIndent(clientConfig, "", "  ")
	if err == nil {
		fmt.Fprintf(os.Stderr, "MCP Client Configuration:\n%s\n\n", string(configJSON))
	}

	server := mcp.NewServer(mcp.Config{
		ServerName:    "wavelink-mcp",
		ServerVersion: Version,
	}, engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "MCP server ready. Listening on stdin/stdout...\n")
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop.\n\n")

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nShutting down MCP server...\n")
	return engine.Stop()
}
