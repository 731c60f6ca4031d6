package infra

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Allocator serializa todas as mutações do pool sob um único lock e entrega
// mesas aos grupos em espera.
//
// Regras:
//   - encaixe: a menor mesa livre com capacidade >= tamanho do grupo
//   - espera: cada grupo entra na fila da menor classe que o comporta, mas pode
//     ser atendido por qualquer mesa maior que for liberada
//   - desempate: entre os pedidos que a mesa liberada comporta, vence o de
//     menor sequência de chegada
//   - uma mesa liberada acorda no máximo um pedido
//
// Invariante: uma mesa livre nunca coexiste com um pedido em espera que ela
// comporta. Por isso o caminho rápido nunca passa na frente de ninguém.
type Allocator struct {
	mu    sync.Mutex
	pool  *Pool
	queue *waitQueue
	live  map[*domain.Handle]domain.TableID
	seq   uint64

	log logrus.FieldLogger
	now func() time.Time
}

var _ domain.TrySeater = (*Allocator)(nil)

type allocatorOptions struct {
	capacities [domain.ClassCount]int
	log        logrus.FieldLogger
}

type Option func(*allocatorOptions)

// WithCapacities troca as capacidades padrão (2, 4, 6, 8) de cada classe.
func WithCapacities(c [domain.ClassCount]int) Option {
	return func(o *allocatorOptions) { o.capacities = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *allocatorOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewAllocator cria o allocator com as quatro contagens fixas do salão.
// Retorna *domain.ConfigError para contagens negativas.
func NewAllocator(small, medium, large, banquet int, opts ...Option) (*Allocator, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := allocatorOptions{
		capacities: domain.DefaultCapacities,
		log:        discard,
	}
	for _, opt := range opts {
		opt(&o)
	}

	layout := domain.NewLayout(small, medium, large, banquet)
	layout.Capacities = o.capacities

	pool, err := NewPool(layout)
	if err != nil {
		return nil, err
	}
	return &Allocator{
		pool:  pool,
		queue: newWaitQueue(),
		live:  make(map[*domain.Handle]domain.TableID),
		log:   o.log,
		now:   time.Now,
	}, nil
}

// Layout retorna o layout imutável do salão.
func (a *Allocator) Layout() domain.Layout { return a.pool.Layout() }

// Request é um pedido de mesa já submetido.
type Request struct {
	a *Allocator
	w *waiter
}

func (r *Request) ID() domain.RequestID { return r.w.id }

// seated reporta se o pedido já recebeu mesa.
func (r *Request) seated() bool {
	select {
	case <-r.w.ready:
		return r.w.handle != nil
	default:
		return false
	}
}

// Wait bloqueia até o pedido ser atendido ou cancelado, ou até o ctx encerrar.
// Deve ser chamado uma única vez por pedido.
//
// Se o ctx encerrar durante a espera, o pedido sai da fila e o erro embrulha
// domain.ErrCancelled e ctx.Err(). Se a mesa chegou no mesmo instante do
// cancelamento, ela volta para o pool e segue para o próximo da fila.
func (r *Request) Wait(ctx context.Context) (*domain.Handle, error) {
	w := r.w
	select {
	case <-w.ready:
		return w.handle, w.err
	default:
	}

	select {
	case <-w.ready:
		return w.handle, w.err
	case <-ctx.Done():
	}

	a := r.a
	a.mu.Lock()
	defer a.mu.Unlock()

	cancelled := fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	select {
	case <-w.ready:
		if w.err != nil {
			return nil, w.err
		}
		a.log.WithFields(logrus.Fields{
			"request": w.id.String(),
			"table":   w.handle.Table(),
		}).Debug("seated after cancellation, returning table")
		if err := a.releaseLocked(w.handle); err != nil {
			return nil, err
		}
		return nil, cancelled
	default:
	}

	a.queue.remove(w)
	w.settle(nil, cancelled)
	a.log.WithFields(logrus.Fields{
		"request":    w.id.String(),
		"group_size": w.size,
	}).Debug("wait cancelled")
	return nil, cancelled
}

// Acquire submete o pedido e espera a mesa.
func (a *Allocator) Acquire(ctx context.Context, groupSize int) (*domain.Handle, error) {
	req, err := a.Submit(groupSize)
	if err != nil {
		return nil, err
	}
	return req.Wait(ctx)
}

// Submit registra o pedido. Se houver mesa livre que comporte o grupo, ele já
// sai sentado; caso contrário entra na fila. Nunca bloqueia.
func (a *Allocator) Submit(groupSize int) (*Request, error) {
	if err := a.checkSize(groupSize); err != nil {
		return nil, err
	}
	class, _ := a.pool.Layout().ClassFor(groupSize)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	w := &waiter{
		id:       domain.RequestID(uuid.New()),
		seq:      a.seq,
		size:     groupSize,
		class:    class,
		enqueued: a.now(),
		ready:    make(chan struct{}),
	}

	if id, ok := a.pool.FindFree(groupSize); ok {
		h, err := a.seatLocked(id, groupSize)
		if err != nil {
			return nil, err
		}
		w.settle(h, nil)
		return &Request{a: a, w: w}, nil
	}

	a.queue.push(w)
	a.log.WithFields(logrus.Fields{
		"request":    w.id.String(),
		"group_size": groupSize,
		"class":      class.String(),
		"seq":        w.seq,
	}).Debug("waiting for table")
	return &Request{a: a, w: w}, nil
}

// TryAcquire entrega uma mesa livre ou falha com domain.ErrNoTable. Nunca bloqueia.
func (a *Allocator) TryAcquire(groupSize int) (*domain.Handle, error) {
	if err := a.checkSize(groupSize); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.pool.FindFree(groupSize)
	if !ok {
		return nil, domain.ErrNoTable
	}
	return a.seatLocked(id, groupSize)
}

// Release devolve a mesa e entrega-a ao pedido vencedor, se houver.
// Nunca bloqueia esperando mesa.
func (a *Allocator) Release(h *domain.Handle) error {
	if h == nil {
		return fmt.Errorf("%w: nil handle", domain.ErrInvalidHandle)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releaseLocked(h)
}

// Cancel tira da fila um pedido em espera. Não depende de nenhum Release.
// O Wait do pedido retorna domain.ErrCancelled.
func (a *Allocator) Cancel(id domain.RequestID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.queue.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotWaiting, id)
	}
	a.queue.remove(w)
	w.settle(nil, domain.ErrCancelled)
	a.log.WithField("request", id.String()).Debug("request cancelled")
	return nil
}

// CancelAll cancela todos os pedidos em espera (sinal de evacuação).
// Retorna quantos foram cancelados. Mesas ocupadas não são afetadas.
func (a *Allocator) CancelAll() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	ws := a.queue.drain()
	for _, w := range ws {
		w.settle(nil, domain.ErrCancelled)
	}
	if len(ws) > 0 {
		a.log.WithField("count", len(ws)).Info("all waiting requests cancelled")
	}
	return len(ws)
}

// Snapshot fotografa o salão sob o lock.
func (a *Allocator) Snapshot() domain.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	layout := a.pool.Layout()
	var s domain.Snapshot
	for _, class := range domain.Classes {
		free, occupied := a.pool.Counts(class)
		s.Classes[class] = domain.ClassSnapshot{
			Class:    class,
			Capacity: layout.Capacity(class),
			Total:    layout.Counts[class],
			Free:     free,
			Occupied: occupied,
			Waiting:  a.queue.len(class),
		}
	}
	return s
}

func (a *Allocator) checkSize(groupSize int) error {
	largest := a.pool.Layout().MaxCapacity()
	if groupSize <= 0 || groupSize > largest {
		return &domain.InvalidSizeError{Size: groupSize, Max: largest}
	}
	return nil
}

func (a *Allocator) seatLocked(id domain.TableID, groupSize int) (*domain.Handle, error) {
	if err := a.pool.MarkOccupied(id); err != nil {
		a.log.WithError(err).WithField("table", id).Error("pool inconsistent")
		return nil, err
	}
	t, _ := a.pool.Table(id)
	h := domain.NewHandle(t, groupSize)
	a.live[h] = id

	a.log.WithFields(logrus.Fields{
		"table":      id,
		"class":      t.Class.String(),
		"group_size": groupSize,
	}).Debug("group seated")
	return h, nil
}

func (a *Allocator) releaseLocked(h *domain.Handle) error {
	id, ok := a.live[h]
	if !ok {
		a.log.WithFields(logrus.Fields{
			"handle": h.ID().String(),
			"table":  h.Table(),
		}).Warn("release of unknown or already released handle")
		return fmt.Errorf("%w: %s", domain.ErrInvalidHandle, h.ID())
	}
	delete(a.live, h)

	if err := a.pool.MarkFree(id); err != nil {
		a.log.WithError(err).WithField("table", id).Error("pool inconsistent")
		return err
	}
	a.log.WithField("table", id).Debug("table released")

	return a.dispatchLocked(id)
}

// dispatchLocked entrega a mesa recém liberada ao vencedor da fila.
// É chamado em todo release, haja ou não alguém esperando.
func (a *Allocator) dispatchLocked(id domain.TableID) error {
	t, _ := a.pool.Table(id)
	w := a.queue.winner(a.pool.Layout(), t.Capacity)
	if w == nil {
		return nil
	}
	a.queue.remove(w)

	h, err := a.seatLocked(id, w.size)
	if err != nil {
		w.settle(nil, err)
		return err
	}
	a.log.WithFields(logrus.Fields{
		"request": w.id.String(),
		"waited":  a.now().Sub(w.enqueued).String(),
	}).Debug("waiter woken")
	w.settle(h, nil)
	return nil
}
