package infra

import (
	"container/list"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

// waiter é um pedido em espera. ready é fechado exatamente uma vez, quando o
// pedido recebe mesa (handle != nil) ou é cancelado (err != nil).
type waiter struct {
	id       domain.RequestID
	seq      uint64
	size     int
	class    domain.CapacityClass
	enqueued time.Time

	ready  chan struct{}
	handle *domain.Handle
	err    error

	elem *list.Element
}

func (w *waiter) settle(h *domain.Handle, err error) {
	w.handle = h
	w.err = err
	close(w.ready)
}

// waitQueue mantém uma fila FIFO por classe, indexada pela menor classe que
// comporta o grupo.
type waitQueue struct {
	classes [domain.ClassCount]*list.List
	byID    map[domain.RequestID]*waiter
}

func newWaitQueue() *waitQueue {
	q := &waitQueue{byID: make(map[domain.RequestID]*waiter)}
	for i := range q.classes {
		q.classes[i] = list.New()
	}
	return q
}

func (q *waitQueue) push(w *waiter) {
	w.elem = q.classes[w.class].PushBack(w)
	q.byID[w.id] = w
}

// remove tira w da fila. Retorna false se w já tinha saído.
func (q *waitQueue) remove(w *waiter) bool {
	if w.elem == nil {
		return false
	}
	q.classes[w.class].Remove(w.elem)
	w.elem = nil
	delete(q.byID, w.id)
	return true
}

func (q *waitQueue) get(id domain.RequestID) (*waiter, bool) {
	w, ok := q.byID[id]
	return w, ok
}

// winner escolhe, entre os pedidos que cabem numa mesa de capacidade
// capacity, o de menor sequência. Basta olhar a cabeça de cada fila elegível.
func (q *waitQueue) winner(layout domain.Layout, capacity int) *waiter {
	var best *waiter
	for _, class := range domain.Classes {
		if layout.Capacity(class) > capacity {
			break
		}
		front := q.classes[class].Front()
		if front == nil {
			continue
		}
		w := front.Value.(*waiter)
		if best == nil || w.seq < best.seq {
			best = w
		}
	}
	return best
}

func (q *waitQueue) len(class domain.CapacityClass) int { return q.classes[class].Len() }

func (q *waitQueue) drain() []*waiter {
	out := make([]*waiter, 0, len(q.byID))
	for _, l := range q.classes {
		for e := l.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*waiter))
		}
	}
	for _, w := range out {
		q.remove(w)
	}
	return out
}
