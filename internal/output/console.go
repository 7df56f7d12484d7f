// Package output renders user-facing text for the stream tools: timestamped
// console lines, the receiver's one-second status line, and pluggable
// formatters for logging received messages.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleOutput handles writing status and message lines to the console
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &ConsoleOutput{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{
		ShowTimestamp: true,
		Writer:        os.Stdout,
	})
}

// Write writes one line, prefixed with a timestamp when configured
func (c *ConsoleOutput) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		timestamp := time.Now().Format("15:04:05")
		fmt.Fprintf(c.writer, "[%s] %s\n", timestamp, text)
	} else {
		fmt.Fprintf(c.writer, "%s\n", text)
	}

	return nil
}

// Status writes a status message that overwrites the current line
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %s", msg)
}

// Finalize moves off a status line (adds newline)
func (c *ConsoleOutput) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.writer)
	return nil
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ") // Clear line
	return nil
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message to stderr
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg)
}

// StatusLine is the receiver's periodic one-line summary. String renders it
// in the fixed layout the status ticker overwrites in place.
type StatusLine struct {
	Elapsed  time.Duration
	Messages uint64
	Rate     float64 // messages per second
	AudioOn  bool
	Volume   float64
	Level    float64 // RMS of the latest audio buffer, 0..1
}

// String renders e.g.
// "Time: 01:23 | Messages: 4210 | Rate: 50.2 msg/s | Audio: ON (vol: 0.5) |======    |".
func (s StatusLine) String() string {
	secs := int(s.Elapsed.Seconds())
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %02d:%02d | Messages: %d | Rate: %.1f msg/s",
		secs/60, secs%60, s.Messages, s.Rate)

	if s.AudioOn {
		fmt.Fprintf(&b, " | Audio: ON (vol: %.1f) %s", s.Volume, LevelBar(s.Level, 10))
	} else {
		b.WriteString(" | Audio: OFF")
	}
	return b.String()
}

// LevelBar renders a level in [0, 1] as a fixed-width bar like "|====      |".
// Levels outside the range are clamped so the bar never overflows.
func LevelBar(level float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := int(level * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "|" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "|"
}
