package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/emmett/wavelink/internal/app"
	"github.com/emmett/wavelink/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file (default: ~/.wavelinkrc or /etc/wavelink/config.yaml)")
	port         = flag.Int("p", 8000, "UDP port to listen on")
	volume       = flag.Float64("v", 0.5, "Playback volume (0.0-1.0)")
	silent       = flag.Bool("s", false, "Disable audio playback (messages are still logged)")
	outputFormat = flag.String("format", "console", "Output format for text/analysis messages: console, json, text")
	outputFile   = flag.String("output", "", "Output file (default: stdout)")
	audioDevice  = flag.String("device", "", "Playback device name (use -list-devices to see available devices)")
	listDevices  = flag.Bool("list-devices", false, "List all available audio devices")
	verbose      = flag.Bool("verbose", false, "Enable debug logging")
	showVersion  = flag.Bool("version", false, "Show version information")
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
		fmt.Printf("Wavelink Receiver v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	fmt.Printf("Wavelink Receiver v%s (commit: %s, branch: %s, built: %s)\n",
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

	if !flagsSet["p"] && cfg.Receiver.Port > 0 {
		*port = cfg.Receiver.Port
	}
	// Volume 0 is a deliberate mute, so no positivity guard.
	if !flagsSet["v"] {
		*volume = cfg.Receiver.Volume
	}
	if !flagsSet["s"] {
		*silent = cfg.Receiver.Silent
	}
	if !flagsSet["format"] && cfg.Receiver.Format != "" {
		*outputFormat = cfg.Receiver.Format
	}
	if !flagsSet["output"] && cfg.Receiver.File != "" {
		*outputFile = cfg.Receiver.File
	}
	if !flagsSet["device"] && cfg.Receiver.Device != "" {
		*audioDevice = cfg.Receiver.Device
	}
}

func run(cfg *config.Config) error {
	listener := app.NewListener(app.ListenerConfig{
		Port:         *port,
		Volume:       *volume,
		Silent:       *silent,
		SampleRate:   cfg.Receiver.SampleRate,
		PeriodFrames: cfg.Receiver.PeriodFrames,
		QueueDepth:   cfg.Receiver.QueueDepth,
		OutputFormat: *outputFormat,
		OutputFile:   *outputFile,
		DeviceName:   *audioDevice,
	})

	return listener.Run()
}
