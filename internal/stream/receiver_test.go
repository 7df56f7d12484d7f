package stream

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/emmett/wavelink/internal/audio"
)

// TestMain verifies every test in this package joins its goroutines; the
// socket-close-then-join shutdown in particular must not strand the receive
// goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dialReceiver(t *testing.T, r *Receiver) *net.UDPConn {
	t.Helper()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: r.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *net.UDPConn, payload string) {
	t.Helper()

	_, err := conn.Write([]byte(payload))
	require.NoError(t, err)
}

func recvOn[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		panic("unreachable")
	}
}

func TestReceiverDispatchesByClass(t *testing.T) {
	t.Parallel()

	audioCh := make(chan []float32, 4)
	textCh := make(chan string, 4)
	analysisCh := make(chan []float32, 4)

	r := NewReceiver(ReceiverConfig{}, Sinks{
		Audio:    func(samples []float32) { audioCh <- samples },
		Text:     func(_, text string) { textCh <- text },
		Analysis: func(_ string, features []float32) { analysisCh <- features },
	})
	require.NoError(t, r.Start())
	defer r.Stop()

	conn := dialReceiver(t, r)

	send(t, conn, "/chan1/audio 0.500 0.250 ")
	samples := recvOn(t, audioCh)
	require.Len(t, samples, 2)
	assert.InDelta(t, 0.5, samples[0], 0.0005)
	assert.InDelta(t, 0.25, samples[1], 0.0005)

	send(t, conn, "/chat/text hello there")
	assert.Equal(t, "hello there", recvOn(t, textCh))

	send(t, conn, "/fx/features 0.125 -0.125 ")
	features := recvOn(t, analysisCh)
	require.Len(t, features, 2)
	assert.InDelta(t, -0.125, features[1], 0.0005)

	// Unknown addresses and unparseable payloads are dropped without
	// dispatch, but still count toward the total.
	send(t, conn, "/video/frame 1 2 3")
	send(t, conn, "/chan1/audio abc def")

	require.Eventually(t, func() bool { return r.MessageCount() == 5 },
		2*time.Second, 10*time.Millisecond)
	assert.Empty(t, audioCh)
	assert.Empty(t, textCh)
	assert.Empty(t, analysisCh)

	snap := r.Stats()
	assert.Equal(t, uint64(5), snap.Total)
	assert.Equal(t, uint64(2), snap.PerAddress["/chan1/audio"])
	assert.Equal(t, uint64(1), snap.PerAddress["/chat/text"])
	assert.Equal(t, uint64(1), snap.PerAddress["/video/frame"])
}

func TestReceiverLatestAudioIsACopy(t *testing.T) {
	t.Parallel()

	audioCh := make(chan []float32, 1)
	r := NewReceiver(ReceiverConfig{}, Sinks{
		Audio: func(samples []float32) { audioCh <- samples },
	})
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Nil(t, r.LatestAudio())

	conn := dialReceiver(t, r)
	send(t, conn, "/chan1/audio 0.500 -0.500 ")
	recvOn(t, audioCh)

	first := r.LatestAudio()
	require.Len(t, first, 2)
	first[0] = 99

	second := r.LatestAudio()
	assert.InDelta(t, 0.5, second[0], 0.0005)
}

func TestReceiverStopWithoutTraffic(t *testing.T) {
	t.Parallel()

	r := NewReceiver(ReceiverConfig{}, Sinks{})
	require.NoError(t, r.Start())
	assert.True(t, r.Running())

	done := make(chan struct{})
	go func() {
		_ = r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within 2s")
	}
	assert.False(t, r.Running())

	// Idempotent.
	require.NoError(t, r.Stop())
}

func TestReceiverRestart(t *testing.T) {
	t.Parallel()

	textCh := make(chan string, 1)
	r := NewReceiver(ReceiverConfig{}, Sinks{
		Text: func(_, text string) { textCh <- text },
	})
	require.NoError(t, r.Start())
	require.NoError(t, r.Stop())

	require.NoError(t, r.Start())
	defer r.Stop()

	conn := dialReceiver(t, r)
	send(t, conn, "/chat/text back again")
	assert.Equal(t, "back again", recvOn(t, textCh))
}

func TestReceiverDoubleStart(t *testing.T) {
	t.Parallel()

	r := NewReceiver(ReceiverConfig{}, Sinks{})
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Error(t, r.Start())
}

func TestReceiverPort(t *testing.T) {
	t.Parallel()

	r := NewReceiver(ReceiverConfig{}, Sinks{})
	assert.Equal(t, 0, r.Port(), "unstarted receiver has no bound port")

	require.NoError(t, r.Start())
	defer r.Stop()

	assert.NotZero(t, r.Port(), "ephemeral bind must report the actual port")
}

func TestReceiverFeedsPlaybackQueue(t *testing.T) {
	t.Parallel()

	// AddAudio is a pure queue push; no device is opened.
	playback := audio.NewPlayback(audio.DefaultPlaybackConfig())

	r := NewReceiver(ReceiverConfig{}, Sinks{
		Audio: func(samples []float32) { playback.AddAudio(samples) },
	})
	require.NoError(t, r.Start())
	defer r.Stop()

	conn := dialReceiver(t, r)
	send(t, conn, "/chan1/audio_0 0.500 0.500 ")
	send(t, conn, "/chan1/audio_1 0.500 0.500 ")
	send(t, conn, "/chan1/audio_2 0.500 ")

	// One queue entry per audio datagram.
	require.Eventually(t, func() bool {
		return playback.QueueLen() == 3
	}, 2*time.Second, 10*time.Millisecond)
}
