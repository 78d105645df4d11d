// Command opsauth-loadtest measures the redis session backend under many
// consoles saving and restoring sessions concurrently. Each console owns its
// own key prefix, as separate opsctl installs sharing one redis would.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
)

type consoleState struct {
	idx   int
	store *session.RedisStore
	mu    sync.Mutex
	saves int
}

func main() {
	var (
		consoles    = flag.Int("consoles", 10000, "number of consoles to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (restore + save)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, OPSAUTH_REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *consoles <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "consoles, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("OPSAUTH_REDIS_ADDR")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	states := make([]consoleState, *consoles)
	fmt.Printf("seeding %d consoles...\n", *consoles)
	startSeed := time.Now()
	for i := range states {
		states[i].idx = i
		states[i].store = session.NewRedisStore(client, fmt.Sprintf("%s:%d", *prefix, i))
		if err := states[i].store.Save(ctx, buildRecord(i, 0)); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	restoreStats := runPhase(states, *ops, *concurrency, 7919, func(s *consoleState) error {
		_, err := s.store.Load(ctx)
		return err
	})
	saveStats := runPhase(states, *ops, *concurrency, 6151, func(s *consoleState) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.saves++
		return s.store.Save(ctx, buildRecord(s.idx, s.saves))
	})
	corrupt := verify(ctx, states)

	fmt.Println("---- results ----")
	printStats("restore", restoreStats)
	printStats("save", saveStats)
	fmt.Printf("verify: consoles=%d unreadable=%d\n", len(states), corrupt)
	if corrupt > 0 {
		os.Exit(1)
	}
}

func runPhase(states []consoleState, ops, concurrency int, seed int64, op func(*consoleState) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				err := op(&states[idx])
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// verify reloads every console and counts sessions that no longer decode.
func verify(ctx context.Context, states []consoleState) int {
	bad := 0
	for i := range states {
		if _, err := states[i].store.Load(ctx); err != nil && !errors.Is(err, session.ErrNotFound) {
			bad++
		}
	}
	return bad
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
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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

var loadRoles = []permission.Role{
	permission.RoleAdministrator,
	permission.RoleOperator,
	permission.RoleBookingAgent,
	permission.RolePassenger,
}

func buildRecord(i, generation int) session.Record {
	now := time.Now().UTC()
	return session.Record{
		Token:     fmt.Sprintf("lt-%d-%d-%s", i, generation, uuid.NewString()),
		ExpiresAt: now.Add(24 * time.Hour),
		User: session.User{
			ID:        uuid.NewString(),
			Email:     fmt.Sprintf("console%d@x.com", i),
			Name:      fmt.Sprintf("Console %d", i),
			Role:      loadRoles[(i+generation)%len(loadRoles)],
			Active:    true,
			CreatedAt: now,
		},
	}
}
