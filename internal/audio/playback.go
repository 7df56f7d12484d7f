package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// PlaybackConfig holds configuration for the audio output device.
type PlaybackConfig struct {
	// SampleRate is the output rate in Hz.
	SampleRate uint32

	// Channels is the number of output channels. The stream is mono, so 1.
	Channels uint32

	// PeriodFrames is the number of frames the device requests per callback.
	// Smaller = lower latency, higher CPU usage.
	PeriodFrames uint32

	// QueueDepth is the capacity of the bounded buffer queue feeding the
	// device. Overflow evicts the oldest buffer.
	QueueDepth int

	// Volume is the initial output volume in [0, 1].
	Volume float64

	// DeviceName selects an output device by case-insensitive partial name
	// match. Empty uses the system default.
	DeviceName string
}

// DefaultPlaybackConfig returns the playback defaults used by the receiver.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		SampleRate:   44100,
		Channels:     1,
		PeriodFrames: 512,
		QueueDepth:   DefaultQueueDepth,
		Volume:       0.5,
	}
}

// Playback drains queued sample buffers into the host audio device's pull
// callback. Buffers arrive on the receive goroutine via AddAudio; the device
// thread pops them on its own cadence. The callback never blocks on anything
// but the brief queue-pop lock and never allocates.
type Playback struct {
	config PlaybackConfig
	queue  *BoundedQueue

	// current/cursor are owned by the device callback thread alone.
	current []float32
	cursor  int

	// volume holds float32 bits so the callback can read it atomically.
	volume atomic.Uint32

	mu           sync.Mutex
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	deviceName   string
	running      bool
}

// NewPlayback creates a playback sink. The device is not opened until Start.
func NewPlayback(config PlaybackConfig) *Playback {
	if config.SampleRate == 0 {
		config.SampleRate = 44100
	}
	if config.Channels == 0 {
		config.Channels = 1
	}
	if config.PeriodFrames == 0 {
		config.PeriodFrames = 512
	}

	p := &Playback{
		config: config,
		queue:  NewBoundedQueue(config.QueueDepth),
	}
	p.SetVolume(config.Volume)
	return p
}

// Start initializes the audio context and opens the default playback device.
func (p *Playback) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("playback is already running")
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = p.config.Channels
	deviceConfig.SampleRate = p.config.SampleRate
	deviceConfig.PeriodSizeInFrames = p.config.PeriodFrames

	p.deviceName = ""
	if p.config.DeviceName != "" {
		id, name, err := deviceByName(malgoCtx, malgo.Playback, p.config.DeviceName)
		if err != nil {
			malgoCtx.Uninit()
			malgoCtx.Free()
			return err
		}
		deviceConfig.Playback.DeviceID = id
		p.deviceName = name
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, framecount uint32) {
			p.renderInto(pOutputSample, framecount)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	p.malgoContext = malgoCtx
	p.device = device
	p.running = true
	return nil
}

// Stop stops the device and releases the audio context. Safe to call on a
// sink that never started.
func (p *Playback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false

	if p.device != nil {
		_ = p.device.Stop()
		p.device.Uninit()
		p.device = nil
	}
	if p.malgoContext != nil {
		p.malgoContext.Uninit()
		p.malgoContext.Free()
		p.malgoContext = nil
	}
	return nil
}

// IsRunning returns true while the device is open.
func (p *Playback) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// DeviceName returns the name of the opened output device, or "" when the
// system default is in use.
func (p *Playback) DeviceName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deviceName
}

// AddAudio queues a sample buffer for playback. Called from the receive
// goroutine; ownership of buf transfers here. When the queue is full the
// oldest buffer is evicted, which is reported as true for diagnostics.
func (p *Playback) AddAudio(buf []float32) bool {
	return p.queue.Push(buf)
}

// QueueLen returns the number of buffers waiting to be played.
func (p *Playback) QueueLen() int {
	return p.queue.Len()
}

// SetVolume stores the output volume, clamped to [0, 1]. The device callback
// reads it atomically, so no lock is involved.
func (p *Playback) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume.Store(math.Float32bits(float32(v)))
}

// Volume returns the current output volume.
func (p *Playback) Volume() float64 {
	return float64(math.Float32frombits(p.volume.Load()))
}

// renderInto fills the device's output region for one callback: zero it
// first, then copy queued samples scaled by the current volume until the
// region is full or the queue runs dry. Remaining output stays silent.
func (p *Playback) renderInto(out []byte, framecount uint32) {
	for i := range out {
		out[i] = 0
	}

	vol := math.Float32frombits(p.volume.Load())
	needed := int(framecount) * int(p.config.Channels)
	if limit := len(out) / 4; needed > limit {
		needed = limit
	}

	written := 0
	for written < needed {
		if p.cursor >= len(p.current) {
			next, ok := p.queue.Pop()
			if !ok {
				break
			}
			p.current = next
			p.cursor = 0
		}

		n := len(p.current) - p.cursor
		if rem := needed - written; n > rem {
			n = rem
		}
		for i := 0; i < n; i++ {
			bits := math.Float32bits(p.current[p.cursor+i] * vol)
			binary.LittleEndian.PutUint32(out[(written+i)*4:], bits)
		}
		p.cursor += n
		written += n
	}
}
