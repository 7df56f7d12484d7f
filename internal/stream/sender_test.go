package stream

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/wavelink/internal/wire"
)

// newTestListener binds an ephemeral loopback socket tests read raw
// datagrams from.
func newTestListener(t *testing.T) (*net.UDPConn, int) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func readDatagram(t *testing.T, conn *net.UDPConn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestSenderChunksAudio(t *testing.T) {
	t.Parallel()

	conn, port := newTestListener(t)

	s, err := NewSender(SenderConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Address:   "/chan1/audio",
		ChunkSize: 128,
		MaxChunks: 32,
	})
	require.NoError(t, err)
	defer s.Close()

	samples := make([]float32, 300)
	for i := range samples {
		samples[i] = 0.5
	}
	require.NoError(t, s.SendAudio(samples))

	wantSizes := []int{128, 128, 44}
	for i, want := range wantSizes {
		msg := wire.Parse(readDatagram(t, conn))
		require.True(t, msg.Valid, "chunk %d", i)
		assert.Equal(t, "/chan1/audio", msg.Address)
		assert.Equal(t, i, msg.Chunk)
		assert.Equal(t, wire.ClassAudio, msg.Class)
		require.Len(t, msg.Floats, want)
		for _, v := range msg.Floats {
			assert.InDelta(t, 0.5, v, 0.0005)
		}
	}
	assert.Equal(t, uint64(3), s.SentCount())
}

func TestSenderSingleChunkOmitsSuffix(t *testing.T) {
	t.Parallel()

	conn, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, Address: "/audio/stream"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendAudio([]float32{0.1, 0.2, 0.3}))

	payload := readDatagram(t, conn)
	assert.True(t, strings.HasPrefix(payload, "/audio/stream "), "payload %q", payload)
}

func TestSenderRefusesOversizedSend(t *testing.T) {
	t.Parallel()

	_, port := newTestListener(t)

	s, err := NewSender(SenderConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Address:   "/audio/stream",
		ChunkSize: 128,
		MaxChunks: 4,
	})
	require.NoError(t, err)
	defer s.Close()

	err = s.SendAudio(make([]float32, 128*4+1))
	require.Error(t, err)
	assert.Equal(t, uint64(0), s.SentCount(), "a refused send must not transmit partial chunks")
}

func TestSenderEmptyInputIsNoOp(t *testing.T) {
	t.Parallel()

	_, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, Address: "/audio/stream"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendAudio(nil))
	require.NoError(t, s.SendText("/chat/text", ""))
	require.NoError(t, s.SendFeatures("/fx/features", nil))
	assert.Equal(t, uint64(0), s.SentCount())
}

func TestSenderClosedIsNoOp(t *testing.T) {
	t.Parallel()

	_, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, Address: "/audio/stream"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.NoError(t, s.SendAudio([]float32{0.1}))
	assert.NoError(t, s.SendText("/chat/text", "hello"))
	assert.Equal(t, uint64(0), s.SentCount())
}

func TestSenderTextAndFeatures(t *testing.T) {
	t.Parallel()

	conn, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, Address: "/audio/stream"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendText("/chat/text", "hello stream"))
	msg := wire.Parse(readDatagram(t, conn))
	require.True(t, msg.Valid)
	assert.Equal(t, wire.ClassText, msg.Class)
	assert.Equal(t, "hello stream", msg.Text)

	require.NoError(t, s.SendFeatures("/fx/features", []float32{0.25, -0.75}))
	msg = wire.Parse(readDatagram(t, conn))
	require.True(t, msg.Valid)
	assert.Equal(t, wire.ClassAnalysis, msg.Class)
	require.Len(t, msg.Floats, 2)
	assert.InDelta(t, 0.25, msg.Floats[0], 0.0005)
	assert.InDelta(t, -0.75, msg.Floats[1], 0.0005)

	assert.Equal(t, uint64(2), s.SentCount())
}

func TestSenderFeatureVectorCap(t *testing.T) {
	t.Parallel()

	_, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, ChunkSize: 4})
	require.NoError(t, err)
	defer s.Close()

	require.Error(t, s.SendFeatures("/fx/features", make([]float32, 5)))
	assert.Equal(t, uint64(0), s.SentCount())
}

func TestSenderUpdateDestination(t *testing.T) {
	t.Parallel()

	connA, portA := newTestListener(t)
	connB, portB := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: portA, Address: "/audio/stream"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendAudio([]float32{0.1}))
	readDatagram(t, connA)

	require.NoError(t, s.UpdateDestination("127.0.0.1", portB))
	host, port := s.Destination()
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, portB, port)

	require.NoError(t, s.SendAudio([]float32{0.2}))
	msg := wire.Parse(readDatagram(t, connB))
	require.True(t, msg.Valid)
	require.Len(t, msg.Floats, 1)
	assert.InDelta(t, 0.2, msg.Floats[0], 0.0005)
}

func TestSenderDefaultAddress(t *testing.T) {
	t.Parallel()

	conn, port := newTestListener(t)

	s, err := NewSender(SenderConfig{Host: "127.0.0.1", Port: port, Address: "/audio/stream"})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "/audio/stream", s.DefaultAddress())

	s.SetDefaultAddress("/left/audio")
	assert.Equal(t, "/left/audio", s.DefaultAddress())

	require.NoError(t, s.SendAudio([]float32{0.3}))
	msg := wire.Parse(readDatagram(t, conn))
	assert.Equal(t, "/left/audio", msg.Address)
}
