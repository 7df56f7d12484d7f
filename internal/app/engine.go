// Package app wires the library packages into the toolkit's two runnable
// halves: the Engine drives a sample source through the render loop into the
// UDP sender, and the Listener drives the UDP receiver into playback and the
// message log.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emmett/wavelink/internal/audio"
	"github.com/emmett/wavelink/internal/stream"
	"github.com/emmett/wavelink/internal/synth"
)

// Sample source kinds accepted by EngineConfig.Source.
const (
	SourceSine = "sine"
	SourceMic  = "mic"
)

// Default channel addresses for the non-audio channels. The receiving side
// classifies by substring, so the names carry their class.
const (
	DefaultTextAddress     = "/text/stream"
	DefaultAnalysisAddress = "/analysis/stream"
)

// EngineConfig assembles the producer: the signal source, the render
// cadence, and the UDP destination.
type EngineConfig struct {
	// SampleRate is the synthesis/capture rate in Hz.
	SampleRate int

	// FrameCount is the number of samples rendered per tick.
	FrameCount int

	// InletCount and OutletCount size the pool's per-channel scratch buffers.
	InletCount  int
	OutletCount int

	// Tick is the render cadence. The defaults pair 441 frames with 10ms to
	// keep 44.1kHz real time.
	Tick time.Duration

	// Frequency and Amplitude configure the sine source; ignored for mic.
	Frequency float64
	Amplitude float64

	// Source selects the sample source, SourceSine or SourceMic.
	Source string

	// DeviceName selects the capture device for SourceMic by partial name
	// match. Empty uses the system default.
	DeviceName string

	// TextAddress and AnalysisAddress are the channel addresses SendText and
	// SendFeatures publish on.
	TextAddress     string
	AnalysisAddress string

	// Sender holds the UDP destination and datagram framing.
	Sender stream.SenderConfig

	// StartStreaming enables sending as soon as Start runs. Leave false when
	// a hotkey or control surface gates the stream.
	StartStreaming bool
}

// DefaultEngineConfig returns the producer defaults: a 440 Hz half-amplitude
// sine at 44.1kHz, 441 samples every 10ms, streamed to 127.0.0.1:8000.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate:      44100,
		FrameCount:      441,
		Tick:            stream.DefaultTick,
		Frequency:       440,
		Amplitude:       0.5,
		Source:          SourceSine,
		TextAddress:     DefaultTextAddress,
		AnalysisAddress: DefaultAnalysisAddress,
		Sender:          stream.DefaultSenderConfig(),
	}
}

// Engine owns the producer pipeline end to end: a sample source, the shared
// buffer pool, the UDP sender, and the render loop that ties them together.
// Every mutator is safe to call from control-surface goroutines (gRPC, MCP,
// hotkey) while the loop renders. The engine is one-shot: once stopped it
// cannot be started again.
type Engine struct {
	config  EngineConfig
	osc     *synth.Oscillator    // nil for SourceMic
	capture *audio.CaptureSource // nil for SourceSine
	pool    *audio.BufferPool
	sender  *stream.Sender
	loop    *stream.RenderLoop

	mu      sync.Mutex
	running bool
	stopped bool
	started time.Time
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// EngineStatus is a point-in-time snapshot for the control surfaces and the
// status line.
type EngineStatus struct {
	Host      string
	Port      int
	Address   string
	Source    string
	Device    string // resolved capture device, "" for sine or system default
	Frequency float64
	Amplitude float64
	Streaming bool
	Running   bool
	Sent      uint64
	Uptime    time.Duration
}

// NewEngine builds the pipeline and dials the destination. The capture
// device, when configured, is not opened until Start.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	base := DefaultEngineConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = base.SampleRate
	}
	if cfg.FrameCount <= 0 {
		cfg.FrameCount = base.FrameCount
	}
	if cfg.Tick <= 0 {
		cfg.Tick = base.Tick
	}
	if cfg.Source == "" {
		cfg.Source = base.Source
	}
	if cfg.TextAddress == "" {
		cfg.TextAddress = base.TextAddress
	}
	if cfg.AnalysisAddress == "" {
		cfg.AnalysisAddress = base.AnalysisAddress
	}
	if cfg.Sender.Host == "" {
		cfg.Sender.Host = base.Sender.Host
	}
	if cfg.Sender.Port <= 0 {
		cfg.Sender.Port = base.Sender.Port
	}
	if cfg.Sender.Address == "" {
		cfg.Sender.Address = base.Sender.Address
	}

	e := &Engine{config: cfg}

	var source stream.Source
	switch cfg.Source {
	case SourceSine:
		e.osc = synth.NewOscillator(float64(cfg.SampleRate), cfg.Frequency, cfg.Amplitude)
		source = e.osc
	case SourceMic:
		e.capture = audio.NewCaptureSource(audio.CaptureConfig{
			SampleRate:   uint32(cfg.SampleRate),
			Channels:     1,
			PeriodFrames: uint32(cfg.FrameCount),
			DeviceName:   cfg.DeviceName,
		})
		source = e.capture
	default:
		return nil, fmt.Errorf("unknown source %q (valid: sine, mic)", cfg.Source)
	}

	pool, err := audio.NewBufferPool(cfg.FrameCount, cfg.InletCount, cfg.OutletCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer pool: %w", err)
	}
	e.pool = pool

	sender, err := stream.NewSender(cfg.Sender)
	if err != nil {
		return nil, err
	}
	e.sender = sender

	e.loop = stream.NewRenderLoop(source, pool, sender, cfg.Tick)
	return e, nil
}

// Start opens the capture device if one is configured and spawns the render
// loop. Streaming begins immediately when the config asks for it.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("engine is already running")
	}
	if e.stopped {
		return fmt.Errorf("engine cannot be restarted after stop")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if e.capture != nil {
		if err := e.capture.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to start capture: %w", err)
		}
		e.wg.Add(1)
		go e.drainCaptureErrors(ctx)
	}

	if err := e.loop.Start(); err != nil {
		cancel()
		if e.capture != nil {
			_ = e.capture.Stop()
		}
		e.wg.Wait()
		return err
	}

	e.loop.SetStreaming(e.config.StartStreaming)
	e.cancel = cancel
	e.running = true
	e.started = time.Now()
	return nil
}

// Stop tears the pipeline down: render loop joined, capture device closed,
// sender socket released. Idempotent; also releases the socket of an engine
// that was never started.
func (e *Engine) Stop() error {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.stopped = true
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if wasRunning {
		e.loop.Stop()
		if cancel != nil {
			cancel()
		}
		if e.capture != nil {
			_ = e.capture.Stop()
		}
		e.wg.Wait()
	}
	return e.sender.Close()
}

// UpdateDestination redirects the stream to a new host and port, effective
// from the next datagram.
func (e *Engine) UpdateDestination(host string, port int) error {
	if host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return e.sender.UpdateDestination(host, port)
}

// SetAddress changes the channel address outgoing audio is published on.
func (e *Engine) SetAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address must not be empty")
	}
	e.sender.SetDefaultAddress(address)
	return nil
}

// SetFrequency retunes the sine source without a phase reset.
func (e *Engine) SetFrequency(hz float64) error {
	if e.osc == nil {
		return fmt.Errorf("frequency control requires the sine source")
	}
	e.osc.SetFrequency(hz)
	return nil
}

// SetAmplitude adjusts the sine source's peak amplitude, clamped to [0, 1].
func (e *Engine) SetAmplitude(a float64) error {
	if e.osc == nil {
		return fmt.Errorf("amplitude control requires the sine source")
	}
	e.osc.SetAmplitude(a)
	return nil
}

// SetStreaming gates sending without stopping the render loop.
func (e *Engine) SetStreaming(on bool) {
	e.loop.SetStreaming(on)
}

// Streaming reports whether the render loop is currently sending.
func (e *Engine) Streaming() bool {
	return e.loop.Streaming()
}

// SendText publishes one verbatim text datagram on the text channel.
func (e *Engine) SendText(text string) error {
	if text == "" {
		return fmt.Errorf("text must not be empty")
	}
	return e.sender.SendText(e.config.TextAddress, text)
}

// SendFeatures publishes one feature-vector datagram on the analysis
// channel. The vector length is capped at the configured chunk size.
func (e *Engine) SendFeatures(features []float32) error {
	if len(features) == 0 {
		return fmt.Errorf("feature vector must not be empty")
	}
	return e.sender.SendFeatures(e.config.AnalysisAddress, features)
}

// Status reports the engine's current state.
func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	running := e.running
	started := e.started
	e.mu.Unlock()

	host, port := e.sender.Destination()
	st := EngineStatus{
		Host:      host,
		Port:      port,
		Address:   e.sender.DefaultAddress(),
		Source:    e.config.Source,
		Streaming: e.loop.Streaming(),
		Running:   running,
		Sent:      e.sender.SentCount(),
	}
	if e.osc != nil {
		st.Frequency = e.osc.Frequency()
		st.Amplitude = e.osc.Amplitude()
	}
	if e.capture != nil {
		st.Device = e.capture.DeviceName()
	}
	if running {
		st.Uptime = time.Since(started)
	}
	return st
}

// drainCaptureErrors surfaces capture diagnostics (queue overflow) without
// letting the unread channel stall the device callback.
func (e *Engine) drainCaptureErrors(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-e.capture.Errors():
			slog.Warn("capture diagnostic", "error", err)
		}
	}
}
