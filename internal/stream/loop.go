package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmett/wavelink/internal/audio"
)

// DefaultTick is the render loop cadence: 441 samples per tick at 44.1kHz.
const DefaultTick = 10 * time.Millisecond

// Source provides samples for one render tick. Fill writes up to len(buf)
// samples and returns how many it produced; zero skips the tick's send.
// Implemented by the oscillator and the microphone capture source.
type Source interface {
	Fill(buf []float32) int
}

// RenderLoop drives the producer: on every tick, while streaming is enabled,
// it borrows the pool's working buffer, asks the source to fill it, and
// hands the result straight to the sender. The loop runs on its own
// goroutine; streaming can be toggled from any other goroutine without
// stopping it.
type RenderLoop struct {
	source Source
	pool   *audio.BufferPool
	sender *Sender
	tick   time.Duration

	streaming atomic.Bool

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRenderLoop creates a loop over the given source, buffer pool and
// sender. Non-positive ticks fall back to DefaultTick. Streaming starts
// disabled.
func NewRenderLoop(source Source, pool *audio.BufferPool, sender *Sender, tick time.Duration) *RenderLoop {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &RenderLoop{
		source: source,
		pool:   pool,
		sender: sender,
		tick:   tick,
		done:   make(chan struct{}),
	}
}

// Start spawns the render goroutine. The loop is one-shot: after Stop it
// cannot be restarted.
func (l *RenderLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("render loop is already running")
	}
	select {
	case <-l.done:
		return fmt.Errorf("render loop is stopped")
	default:
	}
	l.started = true

	l.wg.Add(1)
	go l.run()
	return nil
}

// Stop signals the goroutine and waits for it to exit. Safe to call twice
// and before Start.
func (l *RenderLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

// SetStreaming enables or disables sending without stopping the loop.
func (l *RenderLoop) SetStreaming(on bool) {
	l.streaming.Store(on)
}

// Streaming reports whether sending is currently enabled.
func (l *RenderLoop) Streaming() bool {
	return l.streaming.Load()
}

func (l *RenderLoop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if !l.streaming.Load() {
				continue
			}

			buf := l.pool.AudioBuffer()
			n := l.source.Fill(buf)
			if n == 0 {
				continue
			}

			// A concurrent Stop must be observed promptly, so check right
			// around the only call that can take a while.
			if l.stopRequested() {
				return
			}
			if err := l.sender.SendAudio(buf[:n]); err != nil {
				slog.Debug("render tick send failed", "error", err)
			}
			if l.stopRequested() {
				return
			}
		}
	}
}

func (l *RenderLoop) stopRequested() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
