package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password-1"

// sessionState tracks the live refresh token of one logged-in session.
type sessionState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of sessions to seed through Login")
		users       = flag.Int("users", 50, "number of distinct users")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate, refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, emails, err := buildEngine(client, *prefix, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions for %d users...\n", *sessions, *users)
	startSeed := time.Now()
	if err := seed(ctx, engine, emails, states, *concurrency); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(states, *ops, *concurrency, func(s *sessionState) error {
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})
	refreshStats := runPhase(states, *ops, *concurrency, func(s *sessionState) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("reuse_detected=%d store_errors=%d\n",
		snap.Counters[goSession.MetricRefreshReuseDetected],
		snap.Counters[goSession.MetricStoreError],
	)
}

func buildEngine(client redis.UniversalClient, prefix string, users int) (*goSession.Engine, []string, error) {
	// cheapest accepted parameters; this tool measures sessions, not hashing
	hasher, err := password.NewArgon2(password.Config{
		Memory:           8 * 1024,
		Time:             1,
		Parallelism:      1,
		SaltLength:       16,
		KeyLength:        16,
		MaxPasswordBytes: 1024,
	})
	if err != nil {
		return nil, nil, err
	}

	dir := directory.NewMemory(hasher)
	emails := make([]string, users)
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		if _, err := dir.Add(emails[i], loadPassword, true); err != nil {
			return nil, nil, err
		}
	}

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789abcdef")
	cfg.Session.RedisPrefix = prefix
	cfg.Login.EnableThrottle = false

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(dir).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, emails, nil
}

func seed(ctx context.Context, engine *goSession.Engine, emails []string, states []sessionState, concurrency int) error {
	var (
		wg       sync.WaitGroup
		cursor   int64
		failed   atomic.Bool
		errOnce  sync.Once
		firstErr error
	)
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) || failed.Load() {
					return
				}
				res, err := engine.Login(ctx, emails[i%len(emails)], loadPassword, "")
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					failed.Store(true)
					return
				}
				states[i].access = res.AccessToken
				states[i].refresh = res.RefreshToken
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func runPhase(states []sessionState, ops, concurrency int, op func(*sessionState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				err := op(state)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
