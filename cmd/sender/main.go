package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emmett/wavelink/internal/app"
	"github.com/emmett/wavelink/internal/config"
	"github.com/emmett/wavelink/internal/input"
	"github.com/emmett/wavelink/internal/output"
	grpcserver "github.com/emmett/wavelink/internal/server/grpc"
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
	audioDevice = flag.String("device", "", "Capture device name for -source mic (use -list-devices to see available devices)")
	hotkeyStr   = flag.String("hotkey", "", "Global hotkey that toggles streaming, e.g. ctrl+shift+space (empty: stream immediately)")
	grpcPort    = flag.Int("grpc-port", 0, "Port for the gRPC control server (0 = disabled)")
	listDevices = flag.Bool("list-devices", false, "List all available audio devices")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
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
		fmt.Printf("Wavelink Sender v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	fmt.Printf("Wavelink Sender v%s (commit: %s, branch: %s, built: %s)\n",
		Version, GitCommit, GitBranch, BuildTime)
	fmt.Println("Real-time Audio Streaming over UDP")
	fmt.Println()

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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
	if !flagsSet["hotkey"] && cfg.Sender.Hotkey != "" {
		*hotkeyStr = cfg.Sender.Hotkey
	}
	if !flagsSet["grpc-port"] && cfg.Sender.GRPCPort > 0 {
		*grpcPort = cfg.Sender.GRPCPort
	}
}

func run(cfg *config.Config) error {
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
		// A hotkey gates the stream; without one, stream immediately.
		StartStreaming: *hotkeyStr == "",
	}

	engine, err := app.NewEngine(engineCfg)
	if err != nil {
		return err
	}
	defer engine.Stop()

	if err := engine.Start(); err != nil {
		return err
	}

	statusOut := output.DefaultConsoleOutput()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := engine.Status()
	if st.Source == app.SourceMic {
		device := st.Device
		if device == "" {
			device = "default input"
		}
		statusOut.Info(fmt.Sprintf("Source: microphone (%s)", device))
	} else {
		statusOut.Info(fmt.Sprintf("Source: sine %.1f Hz, amplitude %.2f", st.Frequency, st.Amplitude))
	}
	statusOut.Info(fmt.Sprintf("Streaming to %s:%d on %s (%d samples every %s at %d Hz)",
		st.Host, st.Port, st.Address,
		cfg.Sender.FrameCount, time.Duration(cfg.Sender.TickMs)*time.Millisecond, cfg.Sender.SampleRate))

	var hk *input.HotkeyManager
	if *hotkeyStr != "" {
		hk = input.NewHotkeyManager(func(streaming bool) {
			engine.SetStreaming(streaming)
			if streaming {
				statusOut.Info("Streaming ON")
			} else {
				statusOut.Info("Streaming OFF")
			}
		})
		if err := hk.Start(ctx, *hotkeyStr); err != nil {
			return err
		}
		defer hk.Stop()
		statusOut.Info(fmt.Sprintf("Press %s to toggle streaming (starts paused)", *hotkeyStr))
	}

	// Nil channel when disabled: that select arm never fires.
	var grpcErr chan error
	if *grpcPort > 0 {
		srv := grpcserver.NewServer(grpcserver.Config{Port: *grpcPort}, engine)
		grpcErr = make(chan error, 1)
		go func() {
			grpcErr <- srv.Start()
		}()
		defer srv.Stop()
	}

	statusOut.Info("Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()

	for {
		select {
		case <-sigChan:
			_ = statusOut.Finalize()
			statusOut.Info("Stopping...")
			sent := engine.Status().Sent
			if err := engine.Stop(); err != nil {
				return err
			}
			statusOut.Info(fmt.Sprintf("Stopped after %s, %d messages sent",
				time.Since(start).Round(time.Second), sent))
			return nil

		case err := <-grpcErr:
			if err != nil {
				return fmt.Errorf("gRPC server error: %w", err)
			}

		case <-ticker.C:
			st := engine.Status()
			state := "OFF"
			if st.Streaming {
				state = "ON"
			}
			statusOut.Status(fmt.Sprintf("Streaming: %s | Sent: %d | %s -> %s:%d",
				state, st.Sent, st.Address, st.Host, st.Port))
		}
	}
}
