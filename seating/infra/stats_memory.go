package infra

import (
	"context"
	"sync"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

type Counters struct {
	Seated    int64
	Released  int64
	Rejected  int64
	Cancelled int64
	Waited    time.Duration
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e para o relatório final da simulação.
//
// Não faz expiração.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	bySize     map[int]Counters
	tableUsage map[domain.CapacityClass]int64

	trackSizes bool
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackSizes liga os contadores por tamanho de grupo.
func WithTrackSizes(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackSizes = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		bySize:     make(map[int]Counters),
		tableUsage: make(map[domain.CapacityClass]int64),
		trackSizes: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.SeatingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bump(&s.total, ev)
	if ev.Kind == domain.EventSeated {
		s.tableUsage[ev.Class]++
	}
	if s.trackSizes {
		c := s.bySize[ev.GroupSize]
		bump(&c, ev)
		s.bySize[ev.GroupSize] = c
	}
	return nil
}

func bump(c *Counters, ev domain.SeatingEvent) {
	switch ev.Kind {
	case domain.EventSeated:
		c.Seated++
		c.Waited += ev.Waited
	case domain.EventReleased:
		c.Released++
	case domain.EventRejected:
		c.Rejected++
	case domain.EventCancelled:
		c.Cancelled++
		c.Waited += ev.Waited
	}
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) BySize() map[int]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]Counters, len(s.bySize))
	for k, v := range s.bySize {
		out[k] = v
	}
	return out
}

// TableUsage conta quantas vezes uma mesa de cada classe foi ocupada.
func (s *MemoryStatsStore) TableUsage() map[domain.CapacityClass]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.CapacityClass]int64, len(s.tableUsage))
	for k, v := range s.tableUsage {
		out[k] = v
	}
	return out
}
