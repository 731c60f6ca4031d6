package seating

import (
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/application"
	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
	"github.com/Marti-code/pizzeria-operating-systems/seating/infra"

	"github.com/sirupsen/logrus"
)

// Config descreve o salão. Capacities zerado usa domain.DefaultCapacities.
type Config struct {
	Counts         [domain.ClassCount]int
	Capacities     [domain.ClassCount]int
	MaxActive      int
	AcquireTimeout time.Duration
	// RejectWhenFull recusa o grupo na chegada se não houver mesa livre.
	RejectWhenFull bool
}

// Restaurant agrupa as peças montadas. É uma instância explícita, passada a
// cada grupo; não existe estado global.
type Restaurant struct {
	Allocator *infra.Allocator
	Service   application.SeatingService
	Door      domain.Door
	Stats     *infra.MemoryStatsStore
}

// New monta o salão. stats extra (ex.: Redis) recebem os mesmos eventos que o
// contador em memória.
func New(cfg Config, log logrus.FieldLogger, stats ...domain.StatsStore) (*Restaurant, error) {
	capacities := cfg.Capacities
	if capacities == ([domain.ClassCount]int{}) {
		capacities = domain.DefaultCapacities
	}

	opts := []infra.Option{infra.WithCapacities(capacities)}
	if log != nil {
		opts = append(opts, infra.WithLogger(log))
	}
	alloc, err := infra.NewAllocator(cfg.Counts[domain.Small], cfg.Counts[domain.Medium],
		cfg.Counts[domain.Large], cfg.Counts[domain.Banquet], opts...)
	if err != nil {
		return nil, err
	}

	mem := infra.NewMemoryStatsStore()
	r := &Restaurant{
		Allocator: alloc,
		Stats:     mem,
		Service: application.SeatingService{
			Seater:         alloc,
			Stats:          fanout(append([]domain.StatsStore{mem}, stats...)),
			AcquireTimeout: cfg.AcquireTimeout,
			NoWait:         cfg.RejectWhenFull,
		},
	}
	if cfg.MaxActive > 0 {
		r.Door = infra.NewDoor(cfg.MaxActive)
	}
	return r, nil
}
