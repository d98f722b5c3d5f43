package authform

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubIdentity struct {
	createCalls atomic.Int64
	authCalls   atomic.Int64

	mu          sync.Mutex
	lastPayload RegistrationPayload
	lastCreds   Credentials

	record  *AccountRecord
	session *SessionResult
	err     error

	// gate, when set, blocks each call until closed; entered is signalled first.
	gate    chan struct{}
	entered chan struct{}
	// inFlightSeen records f.InFlight() during the call when watched is set.
	watched      *Form
	inFlightSeen atomic.Bool
}

func (s *stubIdentity) CreateAccount(ctx context.Context, payload RegistrationPayload) (*AccountRecord, error) {
	s.createCalls.Add(1)
	s.mu.Lock()
	s.lastPayload = payload
	s.mu.Unlock()
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.record, s.err
}

func (s *stubIdentity) Authenticate(ctx context.Context, creds Credentials) (*SessionResult, error) {
	s.authCalls.Add(1)
	s.mu.Lock()
	s.lastCreds = creds
	s.mu.Unlock()
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.session, s.err
}

func (s *stubIdentity) wait(ctx context.Context) error {
	if s.watched != nil {
		s.inFlightSeen.Store(s.watched.InFlight())
	}
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate == nil {
		return nil
	}
	select {
	case <-s.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubIdentity) calls() int64 {
	return s.createCalls.Load() + s.authCalls.Load()
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) GoTo(_ context.Context, path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEngine(t *testing.T, identity IdentityService, nav Navigator, mutate func(*Builder)) *Engine {
	t.Helper()

	b := New().
		WithIdentityService(identity).
		WithNavigator(nav)
	if mutate != nil {
		mutate(b)
	}
	b.WithMetricsEnabled(true)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func validRegistrationFields() Fields {
	return Fields{
		FieldFirstName:   "Ada",
		FieldLastName:    "Lovelace",
		FieldAddress1:    "12 Analytical Row",
		FieldCity:        "London",
		FieldState:       "NY",
		FieldPostalCode:  "10001",
		FieldDateOfBirth: "10/12/1985",
		FieldSSN:         "1234",
		FieldEmail:       "ada@example.com",
		FieldPassword:    "correct-horse",
	}
}

func validLoginFields() Fields {
	return Fields{
		FieldEmail:    "ada@example.com",
		FieldPassword: "correct-horse",
	}
}

func submitKind(t *testing.T, err error) ErrorKind {
	t.Helper()

	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SubmitError, got %T (%v)", err, err)
	}
	return serr.Kind
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
