package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emmett/wavelink/internal/audio"
	"github.com/emmett/wavelink/internal/output"
	"github.com/emmett/wavelink/internal/stream"
)

// ListenerConfig holds configuration for a receive session.
type ListenerConfig struct {
	Port         int
	Volume       float64
	Silent       bool
	SampleRate   int
	PeriodFrames int
	QueueDepth   int
	OutputFormat string
	OutputFile   string
	DeviceName   string
}

// Listener orchestrates the consumer: UDP receiver into playback and the
// message log, with a once-a-second status line, until an interrupt arrives.
type Listener struct {
	config ListenerConfig
}

// NewListener creates a new Listener instance
func NewListener(config ListenerConfig) *Listener {
	return &Listener{config: config}
}

// Run starts the receive session and blocks until SIGINT/SIGTERM.
func (l *Listener) Run() error {
	// Initialize output formatter
	var formatter output.Formatter
	var outFile *os.File

	// Determine output writer
	writer := os.Stdout
	if l.config.OutputFile != "" {
		var fileErr error
		outFile, fileErr = os.Create(l.config.OutputFile)
		if fileErr != nil {
			return fmt.Errorf("failed to create output file: %w", fileErr)
		}
		defer outFile.Close()
		writer = outFile
	}

	// Create formatter based on format flag
	switch strings.ToLower(l.config.OutputFormat) {
	case "json":
		formatter = output.NewJSONFormatter(writer)
	case "text":
		formatter = output.NewPlainTextFormatter(writer)
	case "", "console":
		// For console mode, messages go through the console output directly
		formatter = nil
	default:
		return fmt.Errorf("unknown output format: %s (valid: console, json, text)", l.config.OutputFormat)
	}
	if formatter != nil {
		defer formatter.Close()
	}

	// Console output for status messages (always to stderr when using file output)
	statusOut := output.DefaultConsoleOutput()
	if l.config.OutputFile != "" {
		statusOut = output.NewConsoleOutput(output.ConsoleConfig{
			ShowTimestamp: true,
			Writer:        os.Stderr,
		})
	}

	// Playback sink, unless silent mode keeps the audio device closed
	var playback *audio.Playback
	if !l.config.Silent {
		playback = audio.NewPlayback(audio.PlaybackConfig{
			SampleRate:   uint32(l.config.SampleRate),
			Channels:     1,
			PeriodFrames: uint32(l.config.PeriodFrames),
			QueueDepth:   l.config.QueueDepth,
			Volume:       l.config.Volume,
			DeviceName:   l.config.DeviceName,
		})
		if err := playback.Start(); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
		defer playback.Stop()
	}

	meter := &audio.Meter{}

	// Message index for the log; sinks run on the receive goroutine only.
	var msgIndex int

	sinks := stream.Sinks{
		Audio: func(samples []float32) {
			meter.Update(samples)
			if playback != nil {
				if evicted := playback.AddAudio(samples); evicted {
					slog.Debug("playback queue full, dropped oldest buffer")
				}
			}
		},
		Text: func(address, text string) {
			msgIndex++
			l.logMessage(formatter, statusOut, output.ReceivedMessage{
				Index:     msgIndex,
				Channel:   address,
				Kind:      "text",
				Text:      text,
				Timestamp: time.Now(),
			})
		},
		Analysis: func(address string, features []float32) {
			msgIndex++
			l.logMessage(formatter, statusOut, output.ReceivedMessage{
				Index:     msgIndex,
				Channel:   address,
				Kind:      "analysis",
				Features:  features,
				Timestamp: time.Now(),
			})
		},
	}

	receiver := stream.NewReceiver(stream.ReceiverConfig{Port: l.config.Port}, sinks)
	if err := receiver.Start(); err != nil {
		return err
	}
	defer receiver.Stop()

	statusOut.Info(fmt.Sprintf("Listening for audio stream on UDP port %d", receiver.Port()))
	printLocalAddrs(statusOut, receiver.Port())
	if playback != nil {
		device := playback.DeviceName()
		if device == "" {
			device = "default output"
		}
		statusOut.Info(fmt.Sprintf("Playing on %s (%d Hz, volume %.1f)",
			device, l.config.SampleRate, playback.Volume()))
	} else {
		statusOut.Info("Playback disabled (silent mode)")
	}
	statusOut.Info("Press Ctrl+C to stop.")
	if formatter != nil {
		formatter.WriteEvent("start", fmt.Sprintf("listening on udp port %d", receiver.Port()))
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// The status line only makes sense in console mode; json/text output
	// owns stdout.
	showStatus := formatter == nil

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()
	var lastTotal uint64

	for {
		select {
		case <-ctx.Done():
			if showStatus {
				_ = statusOut.Finalize()
			}
			statusOut.Info("Stopping...")

			snap := receiver.Stats()
			statusOut.Info(fmt.Sprintf("Received %d messages in %s",
				snap.Total, snap.Elapsed.Round(time.Second)))
			for _, addr := range snap.Addresses() {
				statusOut.Info(fmt.Sprintf("  %s: %d", addr, snap.PerAddress[addr]))
			}

			if formatter != nil {
				formatter.WriteEvent("stop", fmt.Sprintf("received %d messages", snap.Total))
				formatter.Flush()
			}
			return nil

		case <-ticker.C:
			if !receiver.Running() {
				if showStatus {
					_ = statusOut.Finalize()
				}
				return fmt.Errorf("receiver stopped unexpectedly")
			}
			if !showStatus {
				continue
			}

			total := receiver.MessageCount()
			rate := float64(total - lastTotal)
			lastTotal = total

			vol := 0.0
			if playback != nil {
				vol = playback.Volume()
			}
			line := output.StatusLine{
				Elapsed:  time.Since(start),
				Messages: total,
				Rate:     rate,
				AudioOn:  playback != nil,
				Volume:   vol,
				Level:    meter.Level(),
			}
			statusOut.Status(line.String())
		}
	}
}

// logMessage routes one text/analysis message to the formatter, or straight
// to the console in console mode after clearing the status line.
func (l *Listener) logMessage(formatter output.Formatter, statusOut *output.ConsoleOutput, msg output.ReceivedMessage) {
	if formatter != nil {
		if err := formatter.WriteMessage(msg); err != nil {
			statusOut.Error(fmt.Sprintf("Failed to write message: %v", err))
		}
		return
	}

	_ = statusOut.Clear()
	_ = statusOut.Write(fmt.Sprintf("%s %s", msg.Channel, msg.Payload()))
}

// printLocalAddrs lists the machine's non-loopback IPv4 addresses so the
// sending side knows where to point its stream.
func printLocalAddrs(out *output.ConsoleOutput, port int) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			out.Info(fmt.Sprintf("  reachable at %s:%d", ip4, port))
		}
	}
}
