package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/emmett/wavelink/internal/stream"
)

// TestMain verifies the engine joins its render loop and capture drain
// goroutines on Stop.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLoopbackReceiver(t *testing.T, sinks stream.Sinks) *stream.Receiver {
	t.Helper()

	r := stream.NewReceiver(stream.ReceiverConfig{}, sinks)
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func recvBuffer(t *testing.T, ch <-chan []float32) []float32 {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a buffer")
		panic("unreachable")
	}
}

func TestEngineStreamsSineToReceiver(t *testing.T) {
	t.Parallel()

	audioCh := make(chan []float32, 256)
	textCh := make(chan string, 4)
	featCh := make(chan []float32, 4)

	r := newLoopbackReceiver(t, stream.Sinks{
		Audio:    func(samples []float32) { audioCh <- samples },
		Text:     func(_, text string) { textCh <- text },
		Analysis: func(_ string, features []float32) { featCh <- features },
	})

	cfg := DefaultEngineConfig()
	cfg.FrameCount = 64
	cfg.Tick = 5 * time.Millisecond
	cfg.Sender.Port = r.Port()
	cfg.Sender.Address = "/chan1/audio"
	cfg.StartStreaming = true

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	defer engine.Stop()

	require.NoError(t, engine.Start())

	for i := 0; i < 3; i++ {
		assert.Len(t, recvBuffer(t, audioCh), 64)
	}

	require.NoError(t, engine.SendText("hello"))
	select {
	case text := <-textCh:
		assert.Equal(t, "hello", text)
	case <-time.After(2 * time.Second):
		t.Fatal("text message never arrived")
	}

	require.NoError(t, engine.SendFeatures([]float32{0.5, -0.5}))
	features := recvBuffer(t, featCh)
	require.Len(t, features, 2)
	assert.InDelta(t, 0.5, features[0], 0.0005)

	st := engine.Status()
	assert.True(t, st.Running)
	assert.True(t, st.Streaming)
	assert.Equal(t, "127.0.0.1", st.Host)
	assert.Equal(t, r.Port(), st.Port)
	assert.Equal(t, "/chan1/audio", st.Address)
	assert.Equal(t, SourceSine, st.Source)
	assert.InDelta(t, 440.0, st.Frequency, 0.001)
	assert.Positive(t, st.Sent)
	assert.Positive(t, st.Uptime)

	require.NoError(t, engine.Stop())
	assert.False(t, engine.Status().Running)
}

func TestEngineChunksFullTick(t *testing.T) {
	t.Parallel()

	audioCh := make(chan []float32, 256)
	r := newLoopbackReceiver(t, stream.Sinks{
		Audio: func(samples []float32) { audioCh <- samples },
	})

	cfg := DefaultEngineConfig()
	cfg.Sender.Port = r.Port()
	cfg.StartStreaming = true

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	defer engine.Stop()
	require.NoError(t, engine.Start())

	// One 441-sample tick splits at the 128 default: 128+128+128+57.
	got := make([]int, 0, 4)
	for len(got) < 4 {
		got = append(got, len(recvBuffer(t, audioCh)))
	}
	assert.Equal(t, []int{128, 128, 128, 57}, got)
}

func TestEngineStreamingToggle(t *testing.T) {
	t.Parallel()

	r := newLoopbackReceiver(t, stream.Sinks{})

	cfg := DefaultEngineConfig()
	cfg.FrameCount = 64
	cfg.Tick = 5 * time.Millisecond
	cfg.Sender.Port = r.Port()

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	defer engine.Stop()
	require.NoError(t, engine.Start())

	assert.False(t, engine.Streaming(), "engine boots paused without StartStreaming")
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, engine.Status().Sent)

	engine.SetStreaming(true)
	require.Eventually(t, func() bool { return engine.Status().Sent > 0 },
		2*time.Second, 5*time.Millisecond)

	engine.SetStreaming(false)
	assert.False(t, engine.Streaming())
}

func TestEngineSineControls(t *testing.T) {
	t.Parallel()

	r := newLoopbackReceiver(t, stream.Sinks{})

	cfg := DefaultEngineConfig()
	cfg.Sender.Port = r.Port()

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	defer engine.Stop()

	require.NoError(t, engine.SetFrequency(880))
	require.NoError(t, engine.SetAmplitude(0.25))

	st := engine.Status()
	assert.InDelta(t, 880.0, st.Frequency, 0.001)
	assert.InDelta(t, 0.25, st.Amplitude, 0.001)

	require.NoError(t, engine.SetAddress("/left/audio"))
	assert.Equal(t, "/left/audio", engine.Status().Address)

	require.Error(t, engine.SetAddress(""))
	require.Error(t, engine.UpdateDestination("", 8000))
	require.Error(t, engine.UpdateDestination("127.0.0.1", 0))
	require.Error(t, engine.UpdateDestination("127.0.0.1", 70000))
	require.NoError(t, engine.UpdateDestination("127.0.0.1", r.Port()))

	require.Error(t, engine.SendText(""))
	require.Error(t, engine.SendFeatures(nil))
}

func TestEngineRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	cfg := DefaultEngineConfig()
	cfg.Source = "square"

	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestEngineMicControlsRequireSine(t *testing.T) {
	t.Parallel()

	cfg := DefaultEngineConfig()
	cfg.Source = SourceMic

	// Construction must not touch the capture device; only Start opens it.
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	defer engine.Stop()

	require.Error(t, engine.SetFrequency(880))
	require.Error(t, engine.SetAmplitude(0.2))

	st := engine.Status()
	assert.Equal(t, SourceMic, st.Source)
	assert.Zero(t, st.Frequency)
}

func TestEngineDoubleStartAndStop(t *testing.T) {
	t.Parallel()

	r := newLoopbackReceiver(t, stream.Sinks{})

	cfg := DefaultEngineConfig()
	cfg.Sender.Port = r.Port()

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	require.NoError(t, engine.Start())
	require.Error(t, engine.Start())
	require.NoError(t, engine.Stop())
	require.NoError(t, engine.Stop())

	// Stopping released the socket; the engine must not come back.
	require.Error(t, engine.Start())
}
