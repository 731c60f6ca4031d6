package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating"
	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"
	"github.com/Marti-code/pizzeria-operating-systems/seating/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	// .env é opcional; variáveis já exportadas têm precedência
	_ = godotenv.Load()

	log := newLogger()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.logLevel); err == nil {
		log.SetLevel(lvl)
	}

	var extra []domain.StatsStore
	if cfg.statsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		extra = append(extra, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackSizes(cfg.statsTrackSizes),
		))
	}

	r, err := seating.New(seating.Config{
		Counts:         cfg.counts,
		Capacities:     cfg.capacities,
		MaxActive:      cfg.maxActive,
		AcquireTimeout: cfg.acquireTimeout,
		RejectWhenFull: cfg.rejectWhenFull,
	}, log, extra...)
	if err != nil {
		log.Fatalf("layout error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.runFor > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, cfg.runFor)
		defer stop()
	}

	go watchEvacuation(ctx, r.Allocator, log)

	log.Infof("pizzeria open: tables=%v capacities=%v", cfg.counts, r.Allocator.Layout().Capacities)
	log.Infof("arrivals: rps=%.3f burst=%d groupSize=%d..%d maxActive=%d", cfg.arrivalRPS, cfg.arrivalBurst, cfg.groupMin, cfg.groupMax, cfg.maxActive)
	log.Infof("seating: acquireTimeout=%s rejectWhenFull=%v meal=%s..%s runFor=%s", cfg.acquireTimeout, cfg.rejectWhenFull, cfg.mealMin, cfg.mealMax, cfg.runFor)

	if err := run(ctx, r, cfg, log); err != nil {
		log.Errorf("simulation stopped: %v", err)
	}
	report(r, log)
}

// run gera chegadas no ritmo configurado até o ctx encerrar.
func run(ctx context.Context, r *seating.Restaurant, cfg config, log *logrus.Logger) error {
	limiter := rate.NewLimiter(rate.Limit(cfg.arrivalRPS), cfg.arrivalBurst)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	g, gctx := errgroup.WithContext(ctx)
	for id := 1; ; id++ {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		group := seating.Group{ID: id, Size: cfg.groupMin + rnd.Intn(cfg.groupMax-cfg.groupMin+1)}
		meal := cfg.mealMin
		if span := cfg.mealMax - cfg.mealMin; span > 0 {
			meal += time.Duration(rnd.Int63n(int64(span)))
		}

		g.Go(func() error {
			err := r.Visit(gctx, group, eat(meal), log)
			switch {
			case err == nil, errors.Is(err, domain.ErrCancelled), errors.Is(err, domain.ErrInvalidSize), errors.Is(err, domain.ErrNoTable):
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			default:
				return err
			}
		})
	}

	r.Allocator.CancelAll()
	return g.Wait()
}

// eat segura a mesa pelo tempo da refeição ou até o fechamento.
func eat(d time.Duration) seating.Occupy {
	return func(ctx context.Context, _ *domain.Handle) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watchEvacuation cancela todos os grupos em espera a cada sinal de evacuação.
func watchEvacuation(ctx context.Context, a *infra.Allocator, log *logrus.Logger) {
	ch := evacuationSignal()
	if ch == nil {
		return
	}
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			n := a.CancelAll()
			log.Warnf("evacuation signal: %d waiting groups sent away", n)
		}
	}
}

func report(r *seating.Restaurant, log *logrus.Logger) {
	total := r.Stats.Total()
	log.WithFields(logrus.Fields{
		"seated":    total.Seated,
		"released":  total.Released,
		"rejected":  total.Rejected,
		"cancelled": total.Cancelled,
		"waited":    total.Waited.String(),
	}).Info("final stats")

	bySize := r.Stats.BySize()
	sizes := make([]int, 0, len(bySize))
	for s := range bySize {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)
	for _, s := range sizes {
		c := bySize[s]
		log.Infof("group size %d: seated=%d cancelled=%d rejected=%d", s, c.Seated, c.Cancelled, c.Rejected)
	}

	usage := r.Stats.TableUsage()
	for _, class := range domain.Classes {
		log.Infof("table class %s: used %d times", class, usage[class])
	}
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

type config struct {
	counts         [domain.ClassCount]int
	capacities     [domain.ClassCount]int
	groupMin       int
	groupMax       int
	arrivalRPS     float64
	arrivalBurst   int
	maxActive      int
	acquireTimeout time.Duration
	rejectWhenFull bool
	mealMin        time.Duration
	mealMax        time.Duration
	runFor         time.Duration
	logLevel       string

	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackSizes    bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.counts = [domain.ClassCount]int{
		getenvIntDefault("TABLES_SMALL", 2),
		getenvIntDefault("TABLES_MEDIUM", 2),
		getenvIntDefault("TABLES_LARGE", 2),
		getenvIntDefault("TABLES_BANQUET", 2),
	}
	capacities, err := parseCapacities(getenvDefault("TABLE_CAPACITIES", "2,4,6,8"))
	if err != nil {
		return config{}, err
	}
	cfg.capacities = capacities
	cfg.groupMin = getenvIntDefault("GROUP_MIN", 1)
	cfg.groupMax = getenvIntDefault("GROUP_MAX", 6)
	cfg.arrivalRPS = getenvFloatDefault("ARRIVAL_RPS", 2)
	cfg.arrivalBurst = getenvIntDefault("ARRIVAL_BURST", 1)
	cfg.maxActive = getenvIntDefault("MAX_ACTIVE", 30)
	cfg.acquireTimeout = getenvDurationDefault("ACQUIRE_TIMEOUT", 0)
	cfg.rejectWhenFull = getenvBoolDefault("REJECT_WHEN_FULL", false)
	cfg.mealMin = getenvDurationDefault("MEAL_MIN", 2*time.Second)
	cfg.mealMax = getenvDurationDefault("MEAL_MAX", 5*time.Second)
	cfg.runFor = getenvDurationDefault("RUN_FOR", 0)
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "pizzeria:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackSizes = getenvBoolDefault("STATS_TRACK_SIZES", true)

	if cfg.groupMin <= 0 || cfg.groupMax < cfg.groupMin {
		return config{}, errors.New("GROUP_MIN must be > 0 and <= GROUP_MAX")
	}
	if cfg.arrivalRPS <= 0 {
		return config{}, errors.New("ARRIVAL_RPS must be > 0")
	}
	if cfg.arrivalBurst <= 0 {
		return config{}, errors.New("ARRIVAL_BURST must be > 0")
	}
	if cfg.maxActive < 0 {
		return config{}, errors.New("MAX_ACTIVE must be >= 0")
	}
	if cfg.mealMax < cfg.mealMin {
		return config{}, errors.New("MEAL_MAX must be >= MEAL_MIN")
	}
	return cfg, nil
}

// parseCapacities lê "2,4,6,8". A validação de ordem fica com o layout.
func parseCapacities(v string) ([domain.ClassCount]int, error) {
	var out [domain.ClassCount]int
	parts := strings.Split(v, ",")
	if len(parts) != domain.ClassCount {
		return out, errors.New("TABLE_CAPACITIES must have 4 comma separated values")
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, errors.New("TABLE_CAPACITIES: " + err.Error())
		}
		out[i] = n
	}
	return out, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
