package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-lookup/internal/config"
	"github.com/hackgods/appointment-lookup/internal/db"
	"github.com/hackgods/appointment-lookup/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	TokenRatio    float64
	IdentityRatio float64
	InvalidRatio  float64
	SampleLimit   int
	PostgresDSN   string
}

type sample struct {
	ID          int64
	Username    string
	IDCard      string
	AccessToken string
}

type DataPool struct {
	Samples []sample
}

func (dp *DataPool) Random(rng *rand.Rand) sample {
	return dp.Samples[rng.Intn(len(dp.Samples))]
}

// OperationMetrics counts outcomes by HTTP status class for one kind of lookup.
type OperationMetrics struct {
	Total     int64
	Found     int64
	NotFound  int64
	Rejected  int64 // 400 and 429
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusOK:
		atomic.AddInt64(&om.Found, 1)
	case status == http.StatusNotFound:
		atomic.AddInt64(&om.NotFound, 1)
	case status == http.StatusBadRequest, status == http.StatusTooManyRequests:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = percentile(latencies, 50)
	p95 = percentile(latencies, 95)

	return avg, min, max, p50, p95
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type Metrics struct {
	Token        OperationMetrics
	TokenWithID  OperationMetrics
	Identity     OperationMetrics
	Insufficient OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		fallback := logging.New("prod", "info")
		fallback.Fatal().Err(err).Msg("failed to load base config")
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel)

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("token", cfg.TokenRatio).
		Float64("identity", cfg.IdentityRatio).
		Float64("invalid", cfg.InvalidRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}

	logger.Info().Int("samples", len(dataPool.Samples)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(baseCfg config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:    config.GetEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      config.GetDuration("SIM_DURATION", 30*time.Second),
		Workers:       config.GetInt("SIM_WORKERS", 10),
		TokenRatio:    config.GetFloat("SIM_TOKEN_RATIO", 0.6),
		IdentityRatio: config.GetFloat("SIM_IDENTITY_RATIO", 0.35),
		InvalidRatio:  config.GetFloat("SIM_INVALID_RATIO", 0.05),
		SampleLimit:   config.GetInt("SIM_SAMPLE_LIMIT", 2000),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.TokenRatio + cfg.IdentityRatio + cfg.InvalidRatio
	if total > 0 {
		cfg.TokenRatio /= total
		cfg.IdentityRatio /= total
		cfg.InvalidRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

// loadDataPool reads real rows so lookups hit both live and expired tokens.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id, username, id_card, access_token FROM appointment LIMIT $1
	`, cfg.SampleLimit)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s sample
		if err := rows.Scan(&s.ID, &s.Username, &s.IDCard, &s.AccessToken); err != nil {
			return nil, err
		}
		dataPool.Samples = append(dataPool.Samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}

	if len(dataPool.Samples) == 0 {
		return nil, fmt.Errorf("no appointments loaded, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			smp := s.pool.Random(rng)
			r := rng.Float64()
			switch {
			case r < s.config.TokenRatio && rng.Intn(2) == 0:
				s.doLookup(ctx, &s.metrics.Token, url.Values{"access_token": {smp.AccessToken}})
			case r < s.config.TokenRatio:
				s.doLookup(ctx, &s.metrics.TokenWithID, url.Values{
					"access_token":   {smp.AccessToken},
					"appointment_id": {strconv.FormatInt(smp.ID, 10)},
				})
			case r < s.config.TokenRatio+s.config.IdentityRatio:
				s.doLookup(ctx, &s.metrics.Identity, url.Values{
					"username": {smp.Username},
					"id_card":  {smp.IDCard},
				})
			default:
				s.doLookup(ctx, &s.metrics.Insufficient, url.Values{"username": {smp.Username}})
			}
		}
	}
}

func (s *Simulator) doLookup(ctx context.Context, om *OperationMetrics, params url.Values) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointments/lookup?"+params.Encode(), nil)
	if err != nil {
		return
	}

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		// Requests cut off by the end of the run are not counted.
		if ctx.Err() == nil {
			om.Record(latency, 0)
		}
		return
	}
	defer resp.Body.Close()

	om.Record(latency, resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("LOOKUP SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Token", &s.metrics.Token)
	printOperationReport("Token + appointment ID", &s.metrics.TokenWithID)
	printOperationReport("Name + ID card", &s.metrics.Identity)
	printOperationReport("Insufficient input", &s.metrics.Insufficient)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	found := atomic.LoadInt64(&om.Found)
	notFound := atomic.LoadInt64(&om.NotFound)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Found: %d (%.1f%%)\n", found, pct(found))
	fmt.Printf("  Not found: %d (%.1f%%)\n", notFound, pct(notFound))
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
