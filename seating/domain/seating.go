package domain

import (
	"context"

	"github.com/google/uuid"
)

// RequestID identifica um pedido de mesa pendente (usado por Cancel).
type RequestID uuid.UUID

func (id RequestID) String() string { return uuid.UUID(id).String() }

// Handle é o token de posse de uma mesa ocupada.
//
// Só o allocator cria handles válidos; a validação no release é feita pela
// tabela de handles vivos do allocator, nunca pelos campos do handle.
// Não copie: passe o ponteiro de volta para Release exatamente uma vez.
type Handle struct {
	id        uuid.UUID
	table     TableID
	class     CapacityClass
	capacity  int
	groupSize int
}

// NewHandle é usado pela infra ao entregar uma mesa.
func NewHandle(table Table, groupSize int) *Handle {
	return &Handle{
		id:        uuid.New(),
		table:     table.ID,
		class:     table.Class,
		capacity:  table.Capacity,
		groupSize: groupSize,
	}
}

func (h *Handle) ID() uuid.UUID        { return h.id }
func (h *Handle) Table() TableID       { return h.table }
func (h *Handle) Class() CapacityClass { return h.class }
func (h *Handle) Capacity() int        { return h.capacity }
func (h *Handle) GroupSize() int       { return h.groupSize }

// Seater é o contrato de alocação usado pelos colaboradores externos.
//
// A semântica é: Acquire bloqueia até uma mesa que comporte o grupo ser
// entregue ou até o ctx encerrar. O handle retornado deve ser devolvido a
// Release exatamente uma vez.
type Seater interface {
	Acquire(ctx context.Context, groupSize int) (*Handle, error)
	Release(h *Handle) error
}

// TrySeater é o Seater que também sabe recusar na hora, sem bloquear.
// Sem mesa livre que comporte o grupo, TryAcquire retorna ErrNoTable.
type TrySeater interface {
	Seater
	TryAcquire(groupSize int) (*Handle, error)
}

// ClassSnapshot é a fotografia de uma classe num instante.
type ClassSnapshot struct {
	Class    CapacityClass
	Capacity int
	Total    int
	Free     int
	Occupied int
	Waiting  int
}

// Snapshot é a fotografia do salão inteiro, tirada sob o lock do allocator.
type Snapshot struct {
	Classes [ClassCount]ClassSnapshot
}

// Waiting soma os pedidos em espera de todas as classes.
func (s Snapshot) Waiting() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Waiting
	}
	return n
}
