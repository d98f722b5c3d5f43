// Command authform-server runs the sign-up / sign-in form API locally.
//
// It is backed by miniredis (no external Redis required unless REDIS_ADDR is
// set) and an in-memory identity provider, unless -identity-url points at a
// remote identity service.
//
// Endpoints:
//
//	POST   /forms             JSON {"mode":"sign-up"|"sign-in"}
//	GET    /forms/{id}        current view
//	POST   /forms/{id}/submit JSON {"fields":{...}}
//	DELETE /forms/{id}        unmount
//	GET    /metrics           Prometheus text format
//	GET    /healthz           Redis availability
//
// Run:
//
//	go run ./cmd/authform-server
//
// Then:
//
//	curl -s -X POST localhost:8080/forms -d '{"mode":"sign-in"}'
//	curl -i -X POST localhost:8080/forms/<ID>/submit \
//	  -d '{"fields":{"email":"alice@example.com","password":"correct-horse"}}'
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authform"
	"github.com/MrEthical07/authform/httpform"
	"github.com/MrEthical07/authform/identity"
	"github.com/MrEthical07/authform/metrics/export/prometheus"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		identityURL = flag.String("identity-url", "", "remote identity service; if empty, an in-memory provider is used")
		rootPath    = flag.String("root", "/", "redirect target after sign-in")
	)
	flag.Parse()

	// ---------- infrastructure ----------
	client, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	svc, err := identityService(*identityURL)
	if err != nil {
		log.Fatal("identity:", err)
	}

	// ---------- config ----------
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatal("link token key:", err)
	}

	cfg := authform.DefaultConfig()
	cfg.Form.RootPath = *rootPath
	cfg.Form.SubmitTimeout = 10 * time.Second
	cfg.LinkToken.Enabled = true
	cfg.LinkToken.PrivateKey = priv
	cfg.LinkToken.PublicKey = priv.Public().(ed25519.PublicKey)
	cfg.State.Enabled = true
	cfg.Throttle.Enabled = true
	cfg.Audit.Enabled = true

	// ---------- build engine ----------
	engine, err := authform.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityService(svc).
		WithNavigator(httpform.RedirectNavigator{}).
		WithAuditSink(authform.NewJSONWriterSink(os.Stderr)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		log.Fatal("engine build:", err)
	}
	defer engine.Close()

	// ---------- routes ----------
	forms := httpform.NewHandler(engine)
	mux := http.NewServeMux()
	mux.Handle("/forms", forms)
	mux.Handle("/forms/", forms)
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	mux.HandleFunc("GET /healthz", healthHandler(engine))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("listening on %s\n", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func identityService(url string) (authform.IdentityService, error) {
	if url != "" {
		fmt.Printf("using identity service at %s\n", url)
		return identity.NewClient(url), nil
	}

	hasher, err := identity.NewHasher(identity.DefaultHashConfig())
	if err != nil {
		return nil, err
	}
	mem := identity.NewMemory(hasher)

	// Seed one account so sign-in works before any sign-up.
	_, err = mem.CreateAccount(context.Background(), authform.RegistrationPayload{
		FirstName: "Alice",
		LastName:  "Example",
		Email:     "alice@example.com",
		Password:  "correct-horse",
	})
	if err != nil {
		return nil, fmt.Errorf("seed account: %w", err)
	}
	return mem, nil
}

func healthHandler(engine *authform.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := engine.Health(r.Context())
		if status.RedisConfigured && !status.RedisAvailable {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok redis_latency=%s\n", status.RedisLatency)
	}
}
