package infra

import (
	"context"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

type chanDoor struct {
	sem chan struct{}
}

// NewDoor cria uma porta baseada em channel que deixa no máximo `max` grupos
// dentro do restaurante ao mesmo tempo.
func NewDoor(max int) domain.Door {
	return &chanDoor{sem: make(chan struct{}, max)}
}

func (d *chanDoor) Enter(ctx context.Context) (func(), bool) {
	select {
	case d.sem <- struct{}{}:
		return func() { <-d.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}
