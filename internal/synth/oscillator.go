// Package synth generates test signals for the streaming pipeline.
package synth

import (
	"math"
	"sync"
)

const twoPi = 2 * math.Pi

// DefaultSampleRate is used when a caller passes a non-positive rate.
const DefaultSampleRate = 44100

// Oscillator is a phase-accumulator sine generator. Frequency and amplitude
// may be changed from other goroutines while a render loop is pulling
// samples; changes take effect on the next sample without resetting phase,
// so retunes stay click-free.
type Oscillator struct {
	mu         sync.Mutex
	sampleRate float64
	frequency  float64
	amplitude  float64
	phase      float64
}

// NewOscillator creates a generator at the given sample rate. Non-positive
// sample rates fall back to DefaultSampleRate, negative frequencies are
// treated as zero, and amplitude is clamped to [0, 1].
func NewOscillator(sampleRate, frequency, amplitude float64) *Oscillator {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if frequency < 0 {
		frequency = 0
	}
	return &Oscillator{
		sampleRate: sampleRate,
		frequency:  frequency,
		amplitude:  clampAmplitude(amplitude),
	}
}

// SetFrequency retunes the oscillator. The accumulated phase is preserved.
func (o *Oscillator) SetFrequency(hz float64) {
	if hz < 0 {
		hz = 0
	}
	o.mu.Lock()
	o.frequency = hz
	o.mu.Unlock()
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frequency
}

// SetAmplitude sets the peak amplitude, clamped to [0, 1].
func (o *Oscillator) SetAmplitude(a float64) {
	o.mu.Lock()
	o.amplitude = clampAmplitude(a)
	o.mu.Unlock()
}

// Amplitude returns the current peak amplitude.
func (o *Oscillator) Amplitude() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.amplitude
}

// SampleRate returns the configured sample rate in Hz.
func (o *Oscillator) SampleRate() float64 {
	return o.sampleRate
}

// Fill writes len(buf) samples and advances the phase accumulator. It always
// fills the whole buffer and returns len(buf), satisfying the sample source
// contract shared with capture-backed sources.
func (o *Oscillator) Fill(buf []float32) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	inc := twoPi * o.frequency / o.sampleRate
	for i := range buf {
		buf[i] = float32(o.amplitude * math.Sin(o.phase))
		o.phase += inc
		if o.phase >= twoPi {
			o.phase = math.Mod(o.phase, twoPi)
		}
	}
	return len(buf)
}

func clampAmplitude(a float64) float64 {
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}
