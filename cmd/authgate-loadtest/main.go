// Command authgate-loadtest benchmarks the two hot paths of the engine:
// token authentication and password login. It runs fully self-contained
// against the in-memory store and miniredis.
//
//	go run ./cmd/authgate-loadtest -users 10000 -ops 50000 -concurrency 128
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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dawmanager/authgate"
	"github.com/dawmanager/authgate/store/memory"
)

const seedPassword = "correct-horse-battery-staple"

func main() {
	var (
		users       = flag.Int("users", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
		os.Exit(1)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := memory.NewStore()
	engine, err := authgate.New().
		WithSecret([]byte("loadtest-secret-loadtest-secret-")).
		WithStore(store).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	emails, tokens := seed(ctx, engine, store, *users)
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Authenticate(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Login(ctx, emails[r.Intn(len(emails))], seedPassword)
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("login", loginStats)
}

// seed creates users through the store with one shared pre-computed digest;
// hashing the password per user would measure argon2, not the engine.
func seed(ctx context.Context, engine *authgate.Engine, store *memory.Store, n int) (emails, tokens []string) {
	first, err := engine.Register(ctx, authgate.RegisterRequest{
		Email:     "user-0@example.com",
		Password:  seedPassword,
		FirstName: "Load",
		LastName:  "Test",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed register failed: %v\n", err)
		os.Exit(1)
	}

	record, err := store.GetUserByID(ctx, first.User.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed lookup failed: %v\n", err)
		os.Exit(1)
	}
	digest := record.PasswordHash

	emails = make([]string, 0, n)
	tokens = make([]string, 0, n)
	emails = append(emails, first.User.Email)
	tokens = append(tokens, first.AccessToken)

	for i := 1; i < n; i++ {
		email := fmt.Sprintf("user-%d@example.com", i)
		if _, err := store.CreateUser(ctx, authgate.CreateUserInput{
			Email:        email,
			PasswordHash: digest,
			Role:         authgate.RoleUser,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed create failed: %v\n", err)
			os.Exit(1)
		}
		emails = append(emails, email)
	}

	// One more login per 100 users gives the authenticate phase a spread
	// of distinct tokens without paying argon2 for every account.
	for i := 0; i < n; i += 100 {
		result, err := engine.Login(ctx, emails[i], seedPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		tokens = append(tokens, result.AccessToken)
	}

	return emails, tokens
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
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
				t0 := time.Now()
				err := op(r)
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
