package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

// SeatingService concentra a regra de aquisição/liberação de mesas com timeout,
// sem saber nada sobre como o allocator sincroniza.
type SeatingService struct {
	Seater         domain.Seater
	Stats          domain.StatsStore
	AcquireTimeout time.Duration

	// NoWait recusa o grupo na hora quando não há mesa livre, em vez de esperar.
	// Exige um Seater que também seja domain.TrySeater.
	NoWait bool
	Clock  func() time.Time
}

// Seat tenta sentar um grupo.
//   - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
//   - Se `AcquireTimeout > 0`, espera até o timeout.
//   - Se `NoWait`, não espera: sem mesa livre retorna domain.ErrNoTable.
//
// Timeout e cancelamento voltam como erro que embrulha domain.ErrCancelled.
func (s SeatingService) Seat(ctx context.Context, groupSize int) (*domain.Handle, error) {
	if s.Seater == nil {
		return nil, fmt.Errorf("%w: no seater configured", domain.ErrConfig)
	}

	if s.NoWait {
		return s.trySeat(ctx, groupSize)
	}

	start := s.now()
	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	h, err := s.Seater.Acquire(acqCtx, groupSize)
	waited := s.now().Sub(start)
	switch {
	case err == nil:
		s.record(ctx, domain.SeatingEvent{
			Kind:      domain.EventSeated,
			GroupSize: groupSize,
			Class:     h.Class(),
			Table:     h.Table(),
			Waited:    waited,
		})
	case errors.Is(err, domain.ErrCancelled):
		s.record(ctx, domain.SeatingEvent{Kind: domain.EventCancelled, GroupSize: groupSize, Waited: waited})
	case errors.Is(err, domain.ErrInvalidSize):
		s.record(ctx, domain.SeatingEvent{Kind: domain.EventRejected, GroupSize: groupSize})
	}
	return h, err
}

func (s SeatingService) trySeat(ctx context.Context, groupSize int) (*domain.Handle, error) {
	ts, ok := s.Seater.(domain.TrySeater)
	if !ok {
		return nil, fmt.Errorf("%w: seater does not support non-blocking seating", domain.ErrConfig)
	}

	h, err := ts.TryAcquire(groupSize)
	switch {
	case err == nil:
		s.record(ctx, domain.SeatingEvent{
			Kind:      domain.EventSeated,
			GroupSize: groupSize,
			Class:     h.Class(),
			Table:     h.Table(),
		})
	case errors.Is(err, domain.ErrNoTable), errors.Is(err, domain.ErrInvalidSize):
		s.record(ctx, domain.SeatingEvent{Kind: domain.EventRejected, GroupSize: groupSize})
	}
	return h, err
}

// Leave devolve a mesa do grupo.
func (s SeatingService) Leave(ctx context.Context, h *domain.Handle) error {
	if s.Seater == nil {
		return fmt.Errorf("%w: no seater configured", domain.ErrConfig)
	}
	if err := s.Seater.Release(h); err != nil {
		return err
	}
	s.record(ctx, domain.SeatingEvent{
		Kind:      domain.EventReleased,
		GroupSize: h.GroupSize(),
		Class:     h.Class(),
		Table:     h.Table(),
	})
	return nil
}

func (s SeatingService) record(ctx context.Context, ev domain.SeatingEvent) {
	if s.Stats == nil {
		return
	}
	ev.At = s.now()
	// o evento vale mesmo que o chamador já tenha desistido (timeout, fechamento)
	_ = s.Stats.Record(context.WithoutCancel(ctx), ev)
}

func (s SeatingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
