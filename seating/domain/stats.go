package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventSeated    EventKind = "seated"
	EventReleased  EventKind = "released"
	EventRejected  EventKind = "rejected"
	EventCancelled EventKind = "cancelled"
)

// SeatingEvent representa uma decisão do allocator vista pela camada application.
//
// Class e Table só são preenchidos para eventos com mesa (seated/released).
type SeatingEvent struct {
	Kind      EventKind
	GroupSize int
	Class     CapacityClass
	Table     TableID
	Waited    time.Duration

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do salão.
//
// Implementações podem armazenar em Redis, memória, etc.
// O serviço trata erro como best-effort (não derruba o atendimento).
type StatsStore interface {
	Record(ctx context.Context, ev SeatingEvent) error
}

// Door limita quantos grupos estão dentro do restaurante ao mesmo tempo.
//
// Enter bloqueia até haver vaga ou até o ctx encerrar. Ao entrar, retorna uma
// função leave que deve ser chamada exatamente uma vez.
type Door interface {
	Enter(ctx context.Context) (leave func(), ok bool)
}
