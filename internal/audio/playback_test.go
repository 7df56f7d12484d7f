package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeF32 reads the float32 little-endian frames renderInto wrote.
func decodeF32(t *testing.T, out []byte) []float32 {
	t.Helper()
	require.Zero(t, len(out)%4)
	samples := make([]float32, len(out)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	return samples
}

func TestSetVolumeClamps(t *testing.T) {
	t.Parallel()

	p := NewPlayback(DefaultPlaybackConfig())

	tests := []struct {
		in   float64
		want float64
	}{
		{-5, 0},
		{9, 1},
		{0, 0},
		{1, 1},
		{0.25, 0.25},
	}
	for _, tt := range tests {
		p.SetVolume(tt.in)
		assert.InDelta(t, tt.want, p.Volume(), 1e-6, "input %v", tt.in)
	}
}

func TestRenderIntoSilenceWhenEmpty(t *testing.T) {
	t.Parallel()

	p := NewPlayback(DefaultPlaybackConfig())
	out := make([]byte, 64*4)
	for i := range out {
		out[i] = 0xAA // stale device memory
	}

	p.renderInto(out, 64)

	for _, s := range decodeF32(t, out) {
		assert.Zero(t, s)
	}
}

func TestRenderIntoAppliesVolume(t *testing.T) {
	t.Parallel()

	cfg := DefaultPlaybackConfig()
	cfg.Volume = 0.5
	p := NewPlayback(cfg)

	p.AddAudio([]float32{1, -1, 0.5, 0})
	out := make([]byte, 4*4)
	p.renderInto(out, 4)

	got := decodeF32(t, out)
	want := []float32{0.5, -0.5, 0.25, 0}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "sample %d", i)
	}
}

func TestRenderIntoDrainsAcrossCallbacks(t *testing.T) {
	t.Parallel()

	cfg := DefaultPlaybackConfig()
	cfg.Volume = 1
	p := NewPlayback(cfg)

	// One 6-sample buffer drained by two 4-frame callbacks: the second
	// callback picks up mid-buffer and pads the tail with silence.
	p.AddAudio([]float32{1, 2, 3, 4, 5, 6})

	out := make([]byte, 4*4)
	p.renderInto(out, 4)
	assert.Equal(t, []float32{1, 2, 3, 4}, decodeF32(t, out))

	p.renderInto(out, 4)
	assert.Equal(t, []float32{5, 6, 0, 0}, decodeF32(t, out))
}

func TestRenderIntoSpansQueuedBuffers(t *testing.T) {
	t.Parallel()

	cfg := DefaultPlaybackConfig()
	cfg.Volume = 1
	p := NewPlayback(cfg)

	p.AddAudio([]float32{1, 2})
	p.AddAudio([]float32{3, 4})
	p.AddAudio([]float32{5})

	out := make([]byte, 8*4)
	p.renderInto(out, 8)

	assert.Equal(t, []float32{1, 2, 3, 4, 5, 0, 0, 0}, decodeF32(t, out))
	assert.Equal(t, 0, p.QueueLen())
}

func TestAddAudioEvictsOldest(t *testing.T) {
	t.Parallel()

	cfg := DefaultPlaybackConfig()
	cfg.QueueDepth = 2
	cfg.Volume = 1
	p := NewPlayback(cfg)

	assert.False(t, p.AddAudio([]float32{1}))
	assert.False(t, p.AddAudio([]float32{2}))
	assert.True(t, p.AddAudio([]float32{3}))

	out := make([]byte, 2*4)
	p.renderInto(out, 2)
	assert.Equal(t, []float32{2, 3}, decodeF32(t, out))
}

func TestPlaybackStopWithoutStart(t *testing.T) {
	t.Parallel()

	p := NewPlayback(DefaultPlaybackConfig())
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}
