package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/emmett/wavelink/internal/wire"
)

// readBufferSize is the fixed receive buffer; datagrams larger than one
// formatted chunk never occur, so 4096 leaves ample headroom.
const readBufferSize = 4096

// DefaultPort is the receiver's default listening port.
const DefaultPort = 8000

// ReceiverConfig holds the listening socket parameters.
type ReceiverConfig struct {
	// Port is the UDP port to bind; 0 binds an ephemeral port.
	Port int

	// SocketBuffer is the kernel receive buffer size in bytes; 0 keeps the
	// system default.
	SocketBuffer int
}

// DefaultReceiverConfig returns the receiver defaults.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Port:         DefaultPort,
		SocketBuffer: 1 << 16,
	}
}

// Sinks are the per-channel handlers a receiver dispatches to. Each valid
// message reaches exactly one sink, exactly once, synchronously on the
// receive goroutine; nil sinks drop their channel's messages. Audio buffers
// transfer ownership to the sink.
type Sinks struct {
	Audio    func(samples []float32)
	Text     func(address, text string)
	Analysis func(address string, features []float32)
}

// Receiver binds a UDP port and classifies inbound datagrams on a dedicated
// goroutine. Stop closes the socket first — that is what unblocks the
// otherwise-indefinite read — and then joins the goroutine.
type Receiver struct {
	config ReceiverConfig
	sinks  Sinks
	stats  *Statistics

	running atomic.Bool

	mu      sync.Mutex
	conn    *net.UDPConn
	started bool
	wg      sync.WaitGroup

	latestMu sync.RWMutex
	latest   []float32
}

// NewReceiver creates a receiver with its sinks registered up front.
func NewReceiver(config ReceiverConfig, sinks Sinks) *Receiver {
	if config.Port < 0 {
		config.Port = DefaultPort
	}
	return &Receiver{
		config: config,
		sinks:  sinks,
		stats:  NewStatistics(),
	}
}

// Start binds the port and spawns the receive goroutine. On failure nothing
// is left running. A receiver whose goroutine has exited after a socket
// error can be Stop()ed and started again.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("receiver is already running")
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", r.config.Port))
	if err != nil {
		return fmt.Errorf("failed to bind udp port %d: %w", r.config.Port, err)
	}
	conn := pc.(*net.UDPConn)
	if r.config.SocketBuffer > 0 {
		if err := conn.SetReadBuffer(r.config.SocketBuffer); err != nil {
			slog.Debug("could not grow socket buffer", "bytes", r.config.SocketBuffer, "error", err)
		}
	}

	r.conn = conn
	r.started = true
	r.running.Store(true)

	r.wg.Add(1)
	go r.receiveLoop(conn)
	return nil
}

// Stop flips the running flag, closes the socket to cancel the blocking
// read, and joins the receive goroutine. Idempotent, bounded time even when
// no datagram ever arrived.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.running.Store(false)
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	r.wg.Wait()
	return nil
}

// Running reports whether the receive goroutine should still be serving.
// A fatal socket error flips this false before the goroutine exits.
func (r *Receiver) Running() bool {
	return r.running.Load()
}

// Port returns the bound UDP port, or 0 when the receiver is not started.
// Differs from the configured port when that was 0 (ephemeral bind).
func (r *Receiver) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return 0
	}
	return r.conn.LocalAddr().(*net.UDPAddr).Port
}

// MessageCount returns the total number of datagrams received.
func (r *Receiver) MessageCount() uint64 {
	return r.stats.Total()
}

// Stats returns a snapshot of the receive statistics.
func (r *Receiver) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// LatestAudio returns a copy of the most recent audio payload, or nil when
// none has arrived yet.
func (r *Receiver) LatestAudio() []float32 {
	r.latestMu.RLock()
	defer r.latestMu.RUnlock()

	if r.latest == nil {
		return nil
	}
	out := make([]float32, len(r.latest))
	copy(out, r.latest)
	return out
}

func (r *Receiver) receiveLoop(conn *net.UDPConn) {
	defer r.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Stop() flips running before closing the socket, so an error
			// observed while still running is a genuine failure.
			if r.running.Load() {
				slog.Error("udp receive failed, stopping", "error", err)
				r.running.Store(false)
			}
			return
		}
		if n == 0 {
			continue
		}
		r.dispatch(string(buf[:n]))
	}
}

// dispatch parses one datagram and routes it. Malformed or unknown messages
// are dropped silently; they must never disturb the loop.
func (r *Receiver) dispatch(line string) {
	msg := wire.Parse(line)
	r.stats.Record(msg.Address)
	if !msg.Valid {
		return
	}

	switch msg.Class {
	case wire.ClassAudio:
		r.setLatest(msg.Floats)
		if r.sinks.Audio != nil {
			r.sinks.Audio(msg.Floats)
		}
	case wire.ClassText:
		if r.sinks.Text != nil {
			r.sinks.Text(msg.Address, msg.Text)
		}
	case wire.ClassAnalysis:
		if r.sinks.Analysis != nil {
			r.sinks.Analysis(msg.Address, msg.Floats)
		}
	}
}

// setLatest keeps a private copy; the original buffer's ownership moves to
// the audio sink right after.
func (r *Receiver) setLatest(samples []float32) {
	r.latestMu.Lock()
	r.latest = append(r.latest[:0], samples...)
	r.latestMu.Unlock()
}
