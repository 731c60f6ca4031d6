package seating

import (
	"context"
	"errors"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

// fanout repassa cada evento a todos os stores e junta os erros.
type fanout []domain.StatsStore

func (f fanout) Record(ctx context.Context, ev domain.SeatingEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
