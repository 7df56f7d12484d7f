package audio

import (
	"fmt"
	"sync"
)

// BufferPool pre-allocates the sample buffers the producer reuses on every
// render tick, so the streaming path never allocates per frame. It holds one
// shared working buffer plus a configured number of per-channel inlet and
// outlet buffers, all zero-initialized.
type BufferPool struct {
	mu      sync.Mutex
	shared  []float32
	inlets  [][]float32
	outlets [][]float32
}

// NewBufferPool allocates the shared working buffer plus inletCount and
// outletCount per-channel buffers of bufferSize samples each. Invalid sizes
// are a construction error; nothing is allocated on failure.
func NewBufferPool(bufferSize, inletCount, outletCount int) (*BufferPool, error) {
	if bufferSize <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", bufferSize)
	}
	if inletCount < 0 || outletCount < 0 {
		return nil, fmt.Errorf("channel counts must be non-negative, got %d inlets, %d outlets",
			inletCount, outletCount)
	}

	p := &BufferPool{
		shared:  make([]float32, bufferSize),
		inlets:  make([][]float32, inletCount),
		outlets: make([][]float32, outletCount),
	}
	for i := range p.inlets {
		p.inlets[i] = make([]float32, bufferSize)
	}
	for i := range p.outlets {
		p.outlets[i] = make([]float32, bufferSize)
	}
	return p, nil
}

// AudioBuffer hands out the shared working buffer. The lock covers the
// handoff only; callers own the buffer for the duration of their synchronous
// work and must not retain it past it. The render loop is the only caller
// while streaming runs.
func (p *BufferPool) AudioBuffer() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared
}

// InletBuffer returns the per-channel inlet buffer at index i, or an error
// when the index is out of range.
func (p *BufferPool) InletBuffer(i int) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.inlets) {
		return nil, fmt.Errorf("inlet index %d out of range (have %d)", i, len(p.inlets))
	}
	return p.inlets[i], nil
}

// OutletBuffer returns the per-channel outlet buffer at index i, or an error
// when the index is out of range.
func (p *BufferPool) OutletBuffer(i int) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.outlets) {
		return nil, fmt.Errorf("outlet index %d out of range (have %d)", i, len(p.outlets))
	}
	return p.outlets[i], nil
}

// ClearBuffers zeroes the shared buffer and every channel buffer.
func (p *BufferPool) ClearBuffers() {
	p.mu.Lock()
	defer p.mu.Unlock()

	zero(p.shared)
	for _, buf := range p.inlets {
		zero(buf)
	}
	for _, buf := range p.outlets {
		zero(buf)
	}
}

// BufferSize returns the length of every buffer in the pool.
func (p *BufferPool) BufferSize() int {
	return len(p.shared)
}

// InletCount returns the number of inlet channel buffers.
func (p *BufferPool) InletCount() int {
	return len(p.inlets)
}

// OutletCount returns the number of outlet channel buffers.
func (p *BufferPool) OutletCount() int {
	return len(p.outlets)
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
