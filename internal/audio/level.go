package audio

import (
	"math"
	"sync"
)

// RMS calculates the root-mean-square energy of a sample buffer, in [0, 1]
// for samples within [-1, 1].
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value in the buffer.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Meter tracks the level of the most recent audio buffer for status display.
// Update runs on the receive goroutine, Level on the status goroutine.
type Meter struct {
	mu    sync.RWMutex
	level float64
}

// Update recomputes the level from the given buffer.
func (m *Meter) Update(samples []float32) {
	level := RMS(samples)
	m.mu.Lock()
	m.level = level
	m.mu.Unlock()
}

// Level returns the most recently measured RMS level.
func (m *Meter) Level() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// Reset clears the measured level.
func (m *Meter) Reset() {
	m.mu.Lock()
	m.level = 0
	m.mu.Unlock()
}
