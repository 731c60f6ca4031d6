package infra

import (
	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
)

// Pool guarda o layout do salão e o estado de cada mesa.
//
// Não é seguro para uso concorrente: confia no chamador (o Allocator) para
// segurar o lock em toda leitura e escrita.
type Pool struct {
	layout  domain.Layout
	tables  []domain.Table
	byClass [domain.ClassCount][]domain.TableID
	free    [domain.ClassCount]int
}

// NewPool cria counts[i] mesas livres por classe. Os ids seguem a ordem das classes.
func NewPool(layout domain.Layout) (*Pool, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		layout: layout,
		tables: make([]domain.Table, 0, layout.Total()),
	}
	for _, class := range domain.Classes {
		n := layout.Counts[class]
		p.byClass[class] = make([]domain.TableID, 0, n)
		for i := 0; i < n; i++ {
			id := domain.TableID(len(p.tables) + 1)
			p.tables = append(p.tables, domain.Table{
				ID:       id,
				Class:    class,
				Capacity: layout.Capacity(class),
				State:    domain.Free,
			})
			p.byClass[class] = append(p.byClass[class], id)
		}
		p.free[class] = n
	}
	return p, nil
}

func (p *Pool) Layout() domain.Layout { return p.layout }

// FindFree procura a partir da menor classe com capacidade >= minCapacity e
// sobe; devolve a primeira mesa livre encontrada.
func (p *Pool) FindFree(minCapacity int) (domain.TableID, bool) {
	start, ok := p.layout.ClassFor(minCapacity)
	if !ok {
		return 0, false
	}
	for class := start; class <= domain.Banquet; class++ {
		if p.free[class] == 0 {
			continue
		}
		for _, id := range p.byClass[class] {
			if p.tables[id-1].State == domain.Free {
				return id, true
			}
		}
	}
	return 0, false
}

// Table retorna a mesa id. ok=false para ids fora do pool.
func (p *Pool) Table(id domain.TableID) (domain.Table, bool) {
	if id < 1 || int(id) > len(p.tables) {
		return domain.Table{}, false
	}
	return p.tables[id-1], true
}

func (p *Pool) MarkOccupied(id domain.TableID) error {
	return p.transition(id, domain.Occupied, "mark occupied")
}

func (p *Pool) MarkFree(id domain.TableID) error {
	return p.transition(id, domain.Free, "mark free")
}

func (p *Pool) transition(id domain.TableID, to domain.TableState, op string) error {
	t, ok := p.Table(id)
	if !ok {
		return &domain.InvariantError{Table: id, Op: op}
	}
	if t.State == to {
		return &domain.InvariantError{Table: id, Op: op, State: t.State}
	}

	p.tables[id-1].State = to
	if to == domain.Free {
		p.free[t.Class]++
	} else {
		p.free[t.Class]--
	}
	return nil
}

// Counts retorna (livres, ocupadas) da classe.
func (p *Pool) Counts(class domain.CapacityClass) (free, occupied int) {
	free = p.free[class]
	return free, p.layout.Counts[class] - free
}
