// Package config loads the yaml configuration shared by the sender and
// receiver binaries. Values resolve explicit path > ~/.wavelinkrc >
// /etc/wavelink/config.yaml > built-in defaults; command-line flags override
// whatever the file provided.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Sender settings (producer side)
	Sender struct {
		Host       string  `yaml:"host"`
		Port       int     `yaml:"port"`
		Address    string  `yaml:"address"`
		SampleRate int     `yaml:"sample_rate"`
		FrameCount int     `yaml:"frame_count"`
		TickMs     int     `yaml:"tick_ms"`
		Frequency  float64 `yaml:"frequency"`
		Amplitude  float64 `yaml:"amplitude"`
		ChunkSize  int     `yaml:"chunk_size"`
		MaxChunks  int     `yaml:"max_chunks"`
		Source     string  `yaml:"source"`
		Device     string  `yaml:"device"`
		Hotkey     string  `yaml:"hotkey"`
		GRPCPort   int     `yaml:"grpc_port"`
	} `yaml:"sender"`

	// Receiver settings (consumer side)
	Receiver struct {
		Port         int     `yaml:"port"`
		Volume       float64 `yaml:"volume"`
		Silent       bool    `yaml:"silent"`
		SampleRate   int     `yaml:"sample_rate"`
		PeriodFrames int     `yaml:"period_frames"`
		QueueDepth   int     `yaml:"queue_depth"`
		Format       string  `yaml:"format"`
		File         string  `yaml:"file"`
		Device       string  `yaml:"device"`
	} `yaml:"receiver"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Sender defaults: 441 frames every 10ms keeps the stream real-time at
	// 44.1kHz, and 128-sample chunks keep each datagram UDP-safe.
	cfg.Sender.Host = "127.0.0.1"
	cfg.Sender.Port = 8000
	cfg.Sender.Address = "/audio/stream"
	cfg.Sender.SampleRate = 44100
	cfg.Sender.FrameCount = 441
	cfg.Sender.TickMs = 10
	cfg.Sender.Frequency = 440.0
	cfg.Sender.Amplitude = 0.5
	cfg.Sender.ChunkSize = 128
	cfg.Sender.MaxChunks = 32
	cfg.Sender.Source = "sine"
	cfg.Sender.Device = ""
	cfg.Sender.Hotkey = ""
	cfg.Sender.GRPCPort = 0

	// Receiver defaults
	cfg.Receiver.Port = 8000
	cfg.Receiver.Volume = 0.5
	cfg.Receiver.Silent = false
	cfg.Receiver.SampleRate = 44100
	cfg.Receiver.PeriodFrames = 512
	cfg.Receiver.QueueDepth = 10
	cfg.Receiver.Format = "console"
	cfg.Receiver.File = ""
	cfg.Receiver.Device = ""

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.wavelinkrc > /etc/wavelink/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	// If explicit path is provided, use it
	if explicitPath != "" {
		return Load(explicitPath)
	}

	// Try user config (~/.wavelinkrc)
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".wavelinkrc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	// Try system config (/etc/wavelink/config.yaml)
	systemConfigPath := "/etc/wavelink/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
