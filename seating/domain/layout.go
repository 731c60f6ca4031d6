package domain

import "fmt"

// CapacityClass é uma das quatro classes fixas de mesa.
type CapacityClass int

const (
	Small CapacityClass = iota
	Medium
	Large
	Banquet
)

// ClassCount é o número de classes de capacidade.
const ClassCount = 4

// Classes lista as classes em ordem crescente de capacidade.
var Classes = [ClassCount]CapacityClass{Small, Medium, Large, Banquet}

// DefaultCapacities é a ocupação máxima padrão de cada classe.
var DefaultCapacities = [ClassCount]int{2, 4, 6, 8}

func (c CapacityClass) String() string {
	switch c {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	case Banquet:
		return "banquet"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Valid reporta se c é uma das quatro classes conhecidas.
func (c CapacityClass) Valid() bool { return c >= Small && c <= Banquet }

// Layout descreve o salão: quantas mesas existem por classe e quantas pessoas
// cabem em cada uma. É imutável depois da construção do pool.
type Layout struct {
	Counts     [ClassCount]int
	Capacities [ClassCount]int
}

// NewLayout monta um Layout com as capacidades padrão.
func NewLayout(small, medium, large, banquet int) Layout {
	return Layout{
		Counts:     [ClassCount]int{small, medium, large, banquet},
		Capacities: DefaultCapacities,
	}
}

// Validate retorna *ConfigError quando alguma contagem é negativa ou quando as
// capacidades não são positivas e estritamente crescentes.
func (l Layout) Validate() error {
	for i, n := range l.Counts {
		if n < 0 {
			return &ConfigError{Class: Classes[i], Field: "count", Value: n}
		}
	}
	prev := 0
	for i, c := range l.Capacities {
		if c <= prev {
			return &ConfigError{Class: Classes[i], Field: "capacity", Value: c}
		}
		prev = c
	}
	return nil
}

// Capacity retorna a ocupação máxima de uma mesa da classe c.
func (l Layout) Capacity(c CapacityClass) int { return l.Capacities[c] }

// Total retorna o número de mesas do salão.
func (l Layout) Total() int {
	n := 0
	for _, c := range l.Counts {
		n += c
	}
	return n
}

// MaxCapacity é a capacidade da maior classe que tem ao menos uma mesa.
// Retorna 0 para um salão vazio.
func (l Layout) MaxCapacity() int {
	for i := ClassCount - 1; i >= 0; i-- {
		if l.Counts[i] > 0 {
			return l.Capacities[i]
		}
	}
	return 0
}

// ClassFor retorna a menor classe cuja capacidade comporta size.
// ok=false quando nenhuma classe comporta (independente das contagens).
func (l Layout) ClassFor(size int) (CapacityClass, bool) {
	for i, c := range l.Capacities {
		if c >= size {
			return Classes[i], true
		}
	}
	return 0, false
}
