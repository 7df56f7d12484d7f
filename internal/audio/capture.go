package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// CaptureConfig holds configuration for the microphone source.
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz).
	SampleRate uint32

	// Channels is the number of capture channels. The stream is mono, so 1.
	Channels uint32

	// PeriodFrames is the number of frames per device callback.
	// Smaller = lower latency, higher CPU usage.
	PeriodFrames uint32

	// QueueDepth is the capacity of the bounded queue between the device
	// callback and the render loop. Overflow evicts the oldest frames.
	QueueDepth int

	// DeviceName selects a capture device by case-insensitive partial name
	// match. Empty uses the system default.
	DeviceName string
}

// DefaultCaptureConfig returns capture defaults matched to the render tick:
// 441 frames is 10ms at 44.1kHz.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   44100,
		Channels:     1,
		PeriodFrames: 441,
		QueueDepth:   DefaultQueueDepth,
	}
}

// CaptureSource feeds microphone audio to the render loop. The malgo device
// callback converts each captured period to float32 and pushes it into a
// bounded queue; Fill drains that queue on the render loop's schedule. The
// two sides never share a buffer, so neither can stall the other.
type CaptureSource struct {
	config CaptureConfig
	queue  *BoundedQueue
	errors chan error

	// current/cursor carry a partially drained buffer across Fill calls and
	// are owned by the render goroutine alone.
	current []float32
	cursor  int

	mu           sync.RWMutex
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	deviceName   string
	running      bool
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewCaptureSource creates a microphone source. The device is not opened
// until Start.
func NewCaptureSource(config CaptureConfig) *CaptureSource {
	if config.SampleRate == 0 {
		config.SampleRate = 44100
	}
	if config.Channels == 0 {
		config.Channels = 1
	}
	if config.PeriodFrames == 0 {
		config.PeriodFrames = 441
	}

	return &CaptureSource{
		config:   config,
		queue:    NewBoundedQueue(config.QueueDepth),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}
}

// Start begins audio capture. The context cancels capture when it is done;
// Stop does the same explicitly.
func (c *CaptureSource) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("capture is already running")
	}
	c.running = true
	c.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		c.setStopped()
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = c.config.Channels
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.PeriodFrames

	c.deviceName = ""
	if c.config.DeviceName != "" {
		id, name, err := deviceByName(malgoCtx, malgo.Capture, c.config.DeviceName)
		if err != nil {
			malgoCtx.Uninit()
			malgoCtx.Free()
			c.setStopped()
			return err
		}
		deviceConfig.Capture.DeviceID = id
		c.deviceName = name
	}

	// Convert and copy inside the callback so the device buffer is never
	// retained past it.
	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		samples := s16ToFloat32(pInputSamples)
		if len(samples) == 0 {
			return
		}
		if evicted := c.queue.Push(samples); evicted {
			select {
			case c.errors <- fmt.Errorf("capture queue overflow, dropping frames"):
			default:
			}
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		malgoCtx.Uninit()
		malgoCtx.Free()
		c.setStopped()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		malgoCtx.Uninit()
		malgoCtx.Free()
		c.setStopped()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	c.mu.Lock()
	c.malgoContext = malgoCtx
	c.device = device
	c.mu.Unlock()

	// Honor context cancellation without burdening the caller.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.stopChan:
		}
	}()

	return nil
}

// Stop stops capture and releases the device. Safe to call twice.
func (c *CaptureSource) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	device := c.device
	malgoCtx := c.malgoContext
	c.device = nil
	c.malgoContext = nil
	c.mu.Unlock()

	close(c.stopChan)

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if malgoCtx != nil {
		malgoCtx.Uninit()
		malgoCtx.Free()
	}

	c.wg.Wait()
	return nil
}

// IsRunning returns true while capture is active.
func (c *CaptureSource) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// DeviceName reports the resolved capture device name, or "" when the
// system default is in use.
func (c *CaptureSource) DeviceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceName
}

// Errors returns the channel carrying capture diagnostics such as queue
// overflow. The channel is buffered and never blocks the device callback.
func (c *CaptureSource) Errors() <-chan error {
	return c.errors
}

// Fill drains captured audio into buf and returns the number of samples
// written, which may be less than len(buf) when the microphone has not yet
// produced enough. Never blocks. Called from the render goroutine only.
func (c *CaptureSource) Fill(buf []float32) int {
	filled := 0
	for filled < len(buf) {
		if c.cursor >= len(c.current) {
			next, ok := c.queue.Pop()
			if !ok {
				break
			}
			c.current = next
			c.cursor = 0
		}

		n := copy(buf[filled:], c.current[c.cursor:])
		c.cursor += n
		filled += n
	}
	return filled
}

func (c *CaptureSource) setStopped() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// s16ToFloat32 converts little-endian signed 16-bit PCM bytes to normalized
// float32 samples in [-1, 1).
func s16ToFloat32(data []byte) []float32 {
	sampleCount := len(data) / 2
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float32, sampleCount)
	for i := 0; i < sampleCount; i++ {
		sample := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
