package domain

// TableID identifica uma mesa. Os ids começam em 1 e seguem a ordem das classes.
type TableID int

type TableState int

const (
	Free TableState = iota
	Occupied
)

func (s TableState) String() string {
	if s == Occupied {
		return "occupied"
	}
	return "free"
}

// Table é a visão somente leitura de uma mesa do pool.
type Table struct {
	ID       TableID
	Class    CapacityClass
	Capacity int
	State    TableState
}
