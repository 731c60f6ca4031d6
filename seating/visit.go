package seating

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"

	"github.com/sirupsen/logrus"
)

// Group é um grupo de clientes que chega junto.
type Group struct {
	ID   int
	Size int
}

// Occupy é o que o grupo faz sentado (pedir, comer, pagar). Fica fora do salão.
type Occupy func(ctx context.Context, h *domain.Handle) error

// Visit conduz um grupo: porta, mesa, ocupação e saída.
//
// Cancelamento e timeout na espera não são falha: Visit retorna um erro que
// embrulha domain.ErrCancelled e o chamador decide o que fazer. Com o salão
// recusando na chegada, um grupo sem mesa volta com domain.ErrNoTable.
func (r *Restaurant) Visit(ctx context.Context, g Group, occupy Occupy, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"group": g.ID, "size": g.Size})

	if r.Door != nil {
		leave, ok := r.Door.Enter(ctx)
		if !ok {
			return fmt.Errorf("%w: door: %w", domain.ErrCancelled, ctx.Err())
		}
		defer leave()
	}

	h, err := r.Service.Seat(ctx, g.Size)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCancelled):
			log.Info("group left without a table")
		case errors.Is(err, domain.ErrNoTable):
			log.Info("group turned away, no free table")
		}
		return err
	}
	log.WithFields(logrus.Fields{"table": h.Table(), "class": h.Class().String()}).Info("group seated")

	var occErr error
	if occupy != nil {
		occErr = occupy(ctx, h)
	}

	// a mesa é devolvida mesmo que a ocupação falhe
	if err := r.Service.Leave(context.WithoutCancel(ctx), h); err != nil {
		log.WithError(err).Error("release failed")
		return errors.Join(occErr, err)
	}
	log.Info("group left")
	return occErr
}
