// Package stream moves audio over UDP: a sender that chunks sample buffers
// into text datagrams, a ticker-driven render loop that feeds it, and a
// receiver that classifies inbound datagrams and dispatches them to typed
// sinks. Transport is fire-and-forget; loss shows up as short audio glitches
// and is tolerated by design.
package stream

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/emmett/wavelink/internal/wire"
)

// SenderConfig holds the destination and framing knobs for outgoing audio.
type SenderConfig struct {
	// Host and Port identify the destination.
	Host string
	Port int

	// Address is the channel address used when none is given explicitly.
	Address string

	// ChunkSize is the number of samples per datagram.
	ChunkSize int

	// MaxChunks caps how many datagrams a single send may produce; a send
	// needing more is refused outright.
	MaxChunks int
}

// DefaultSenderConfig returns the sender defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Host:      "127.0.0.1",
		Port:      8000,
		Address:   "/audio/stream",
		ChunkSize: wire.DefaultChunkSize,
		MaxChunks: wire.DefaultMaxChunks,
	}
}

// Sender owns a connected UDP socket and a mutable destination. Destination
// swaps are not atomic with in-flight sends; a racing send may land on
// either destination, which the transport tolerates.
type Sender struct {
	mu        sync.RWMutex
	conn      *net.UDPConn
	host      string
	port      int
	address   string
	chunkSize int
	maxChunks int

	sent atomic.Uint64
}

// NewSender dials the configured destination. UDP "connect" only means the
// socket is ready, not that anyone is listening.
func NewSender(config SenderConfig) (*Sender, error) {
	if config.ChunkSize <= 0 {
		config.ChunkSize = wire.DefaultChunkSize
	}
	if config.MaxChunks <= 0 {
		config.MaxChunks = wire.DefaultMaxChunks
	}

	s := &Sender{
		host:      config.Host,
		port:      config.Port,
		address:   config.Address,
		chunkSize: config.ChunkSize,
		maxChunks: config.MaxChunks,
	}
	if err := s.UpdateDestination(config.Host, config.Port); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateDestination tears down the current socket and dials the new
// destination. On failure the sender is left closed and sends become no-ops
// until a later update succeeds.
func (s *Sender) UpdateDestination(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s:%d: %w", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s:%d: %w", host, port, err)
	}

	s.conn = conn
	s.host = host
	s.port = port
	return nil
}

// SetDefaultAddress changes the channel address used by SendAudio.
func (s *Sender) SetDefaultAddress(address string) {
	s.mu.Lock()
	s.address = address
	s.mu.Unlock()
}

// DefaultAddress returns the current default channel address.
func (s *Sender) DefaultAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Destination returns the current destination host and port.
func (s *Sender) Destination() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host, s.port
}

// SendAudio transmits samples on the default channel address.
func (s *Sender) SendAudio(samples []float32) error {
	return s.SendAudioTo(s.DefaultAddress(), samples)
}

// SendAudioTo chunks samples into datagrams and transmits them. A closed
// sender or empty input is a silent no-op. A send that would exceed the
// chunk cap is refused whole. A mid-send write failure drops the
// remaining chunks; the next render tick supersedes them anyway.
func (s *Sender) SendAudioTo(address string, samples []float32) error {
	conn := s.connection()
	if conn == nil || len(samples) == 0 {
		return nil
	}

	msgs, err := wire.FormatAudioChunks(address, samples, s.chunkSize, s.maxChunks)
	if err != nil {
		slog.Debug("audio send refused", "address", address, "error", err)
		return err
	}

	for i, msg := range msgs {
		if _, err := conn.Write([]byte(msg)); err != nil {
			slog.Debug("audio send failed", "address", address, "chunk", i, "error", err)
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(msgs), err)
		}
		if n := s.sent.Add(1); n%100 == 0 {
			slog.Debug("audio streaming", "messages", n, "address", address)
		}
	}
	return nil
}

// SendText transmits one verbatim text datagram.
func (s *Sender) SendText(address, text string) error {
	conn := s.connection()
	if conn == nil || text == "" {
		return nil
	}

	if _, err := conn.Write([]byte(wire.FormatText(address, text))); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	s.sent.Add(1)
	return nil
}

// SendFeatures transmits one feature-vector datagram. The vector is not
// chunked, so its length is capped at the configured chunk size.
func (s *Sender) SendFeatures(address string, features []float32) error {
	conn := s.connection()
	if conn == nil || len(features) == 0 {
		return nil
	}
	if len(features) > s.chunkSize {
		return fmt.Errorf("feature vector of %d exceeds the %d per-message cap", len(features), s.chunkSize)
	}

	if _, err := conn.Write([]byte(wire.FormatMessage(address, features))); err != nil {
		return fmt.Errorf("failed to send features: %w", err)
	}
	s.sent.Add(1)
	return nil
}

// SentCount returns the number of datagrams sent so far.
func (s *Sender) SentCount() uint64 {
	return s.sent.Load()
}

// Close releases the socket. Safe to call twice; subsequent sends no-op.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Sender) connection() *net.UDPConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}
