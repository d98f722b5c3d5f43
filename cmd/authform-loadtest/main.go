package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authform"
	"github.com/MrEthical07/authform/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 2000, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "sign-in submissions")
		racers      = flag.Int("racers", 32, "concurrent submits per form in the race phase")
		forms       = flag.Int("forms", 200, "forms raced in the race phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 || *forms <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops, racers and forms must be > 0")
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

	// Minimum argon2 cost; this measures the form, not the hash.
	hasher, err := identity.NewHasher(identity.HashConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(1)
	}
	provider := identity.NewMemory(hasher)

	cfg := authform.DefaultConfig()
	cfg.State.Enabled = true

	engine, err := authform.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityService(provider).
		WithNavigator(authform.NavigatorFunc(func(context.Context, string) {})).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	registerStats := runPhase(*accounts, *concurrency, func(i int) error {
		form, err := engine.NewForm(authform.ModeRegistration)
		if err != nil {
			return err
		}
		_, err = form.Submit(ctx, registrationFields(i))
		return err
	})

	loginStats := runPhase(*ops, *concurrency, func(i int) error {
		form, err := engine.NewForm(authform.ModeLogin)
		if err != nil {
			return err
		}
		_, err = form.Submit(ctx, loginFields(i%*accounts))
		return err
	})

	raceCalls, raceRejected := runRacePhase(ctx, engine, *forms, *racers, *accounts)

	fmt.Println("---- results ----")
	printStats("register", registerStats)
	printStats("login", loginStats)
	fmt.Printf("race: forms=%d racers=%d accepted=%d in_flight_rejected=%d\n",
		*forms, *racers, raceCalls, raceRejected)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: submit_started=%d in_flight_rejected=%d login_success=%d registration_success=%d\n",
		snap.Counters[authform.MetricSubmitStarted],
		snap.Counters[authform.MetricSubmitInFlightRejected],
		snap.Counters[authform.MetricLoginSuccess],
		snap.Counters[authform.MetricRegistrationSuccess],
	)
}

// runRacePhase fires racers concurrent submits at each form and reports how many
// were accepted versus refused as in flight. A racer that starts after the winner
// returned is accepted too, so accepted may exceed forms.
func runRacePhase(ctx context.Context, engine *authform.Engine, forms, racers, accounts int) (int64, int64) {
	var accepted, rejected int64

	for f := 0; f < forms; f++ {
		form, err := engine.NewForm(authform.ModeLogin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "new form: %v\n", err)
			os.Exit(1)
		}

		fields := loginFields(f % accounts)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := form.Submit(ctx, fields)
				if authform.KindOf(err) == authform.KindInFlight {
					atomic.AddInt64(&rejected, 1)
				} else if err == nil {
					atomic.AddInt64(&accepted, 1)
				}
			}()
		}
		close(start)
		wg.Wait()
	}

	return accepted, rejected
}

func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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

func registrationFields(i int) authform.Fields {
	return authform.Fields{
		authform.FieldFirstName:   "Load",
		authform.FieldLastName:    "Tester",
		authform.FieldAddress1:    fmt.Sprintf("%d Bench Street", i),
		authform.FieldCity:        "Patna",
		authform.FieldState:       "Bihar",
		authform.FieldPostalCode:  "800001",
		authform.FieldDateOfBirth: "01/01/1990",
		authform.FieldSSN:         "1234",
		authform.FieldEmail:       emailFor(i),
		authform.FieldPassword:    "load-test-password",
	}
}

func loginFields(i int) authform.Fields {
	return authform.Fields{
		authform.FieldEmail:    emailFor(i),
		authform.FieldPassword: "load-test-password",
	}
}

func emailFor(i int) string {
	return fmt.Sprintf("user%d@example.com", i)
}
