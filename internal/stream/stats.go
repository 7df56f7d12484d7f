package stream

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks receive-side counters for diagnostic output. The counts
// never affect correctness; they feed the periodic status line and the
// shutdown summary.
type Statistics struct {
	total atomic.Uint64

	mu         sync.Mutex
	perAddress map[string]uint64
	started    time.Time
}

// NewStatistics creates an empty counter set anchored at now.
func NewStatistics() *Statistics {
	return &Statistics{
		perAddress: make(map[string]uint64),
		started:    time.Now(),
	}
}

// Record counts one received datagram under its channel address. Datagrams
// without a recognizable address still count toward the total.
func (s *Statistics) Record(address string) {
	s.total.Add(1)
	if address == "" {
		return
	}
	s.mu.Lock()
	s.perAddress[address]++
	s.mu.Unlock()
}

// Total returns the datagram count so far.
func (s *Statistics) Total() uint64 {
	return s.total.Load()
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Total      uint64
	PerAddress map[string]uint64
	Elapsed    time.Duration
}

// Snapshot copies the counters; the caller may retain the result freely.
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	per := make(map[string]uint64, len(s.perAddress))
	for addr, n := range s.perAddress {
		per[addr] = n
	}
	return StatsSnapshot{
		Total:      s.total.Load(),
		PerAddress: per,
		Elapsed:    time.Since(s.started),
	}
}

// Addresses returns the snapshot's channel addresses in stable order.
func (s StatsSnapshot) Addresses() []string {
	addrs := make([]string, 0, len(s.PerAddress))
	for addr := range s.PerAddress {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
