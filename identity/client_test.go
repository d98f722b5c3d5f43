package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/authform"
)

func payloadFor(email string) authform.RegistrationPayload {
	return authform.RegistrationPayload{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Address1:    "12 Analytical Row",
		City:        "London",
		State:       "NY",
		PostalCode:  "10001",
		DateOfBirth: "10/12/1985",
		SSN:         "1234",
		Email:       email,
		Password:    "correct-horse",
	}
}

func newMemoryServer(t *testing.T) (*Client, *Memory) {
	t.Helper()

	mem := NewMemory(newTestHasher(t))
	srv := httptest.NewServer(NewServer(mem))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/"), mem
}

func TestClientRoundTripThroughServer(t *testing.T) {
	client, mem := newMemoryServer(t)
	ctx := context.Background()

	record, err := client.CreateAccount(ctx, payloadFor("ada@example.com"))
	if err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	if record.UserID == "" || record.Email != "ada@example.com" || record.FirstName != "Ada" {
		t.Fatalf("unexpected record %+v", record)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected 1 stored account, got %d", mem.Len())
	}

	if _, err := client.CreateAccount(ctx, payloadFor("ada@example.com")); !errors.Is(err, authform.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	session, err := client.Authenticate(ctx, authform.Credentials{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if !session.Authenticated || session.UserID != record.UserID || session.SessionID == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	_, err = client.Authenticate(ctx, authform.Credentials{Email: "ada@example.com", Password: "wrong-horse"})
	if !errors.Is(err, authform.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, err = client.Authenticate(ctx, authform.Credentials{Email: "nobody@example.com", Password: "correct-horse"})
	if !errors.Is(err, authform.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestClientMapsServerFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "bad gateway", status: http.StatusBadGateway, want: authform.ErrIdentityUnavailable},
		{name: "internal", status: http.StatusInternalServerError, want: authform.ErrIdentityUnavailable},
		{name: "conflict", status: http.StatusConflict, want: authform.ErrAccountExists},
		{name: "unauthorized", status: http.StatusUnauthorized, want: authform.ErrInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).CreateAccount(context.Background(), payloadFor("a@example.com"))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientEmptyBodyIsNilResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sessions" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("null"))
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	record, err := client.CreateAccount(context.Background(), payloadFor("a@example.com"))
	if err != nil || record != nil {
		t.Fatalf("expected nil record and nil error, got %+v %v", record, err)
	}
	session, err := client.Authenticate(context.Background(), authform.Credentials{Email: "a@example.com", Password: "x"})
	if err != nil || session != nil {
		t.Fatalf("expected nil session and nil error, got %+v %v", session, err)
	}
}

func TestClientTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Authenticate(ctx, authform.Credentials{Email: "a@example.com", Password: "x"})
	if !errors.Is(err, authform.ErrIdentityUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable deadline error, got %v", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	_, err = NewClient(url).Authenticate(context.Background(), authform.Credentials{Email: "a@example.com", Password: "x"})
	if !errors.Is(err, authform.ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable for refused connection, got %v", err)
	}
}

func TestClientDrivesForm(t *testing.T) {
	client, _ := newMemoryServer(t)

	engine, err := authform.New().WithIdentityService(client).Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer engine.Close()

	form, err := engine.NewForm(authform.ModeRegistration)
	if err != nil {
		t.Fatalf("NewForm error: %v", err)
	}
	p := payloadFor("grace@example.com")
	outcome, err := form.Submit(context.Background(), authform.Fields{
		authform.FieldFirstName:   p.FirstName,
		authform.FieldLastName:    p.LastName,
		authform.FieldAddress1:    p.Address1,
		authform.FieldCity:        p.City,
		authform.FieldState:       p.State,
		authform.FieldPostalCode:  p.PostalCode,
		authform.FieldDateOfBirth: p.DateOfBirth,
		authform.FieldSSN:         p.SSN,
		authform.FieldEmail:       p.Email,
		authform.FieldPassword:    p.Password,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if outcome.View.Kind != authform.ViewLinking || outcome.View.Account.Email != "grace@example.com" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	login, _ := engine.NewForm(authform.ModeLogin)
	_, err = login.Submit(context.Background(), authform.Fields{
		authform.FieldEmail:    "grace@example.com",
		authform.FieldPassword: "not-the-password",
	})
	if authform.KindOf(err) != authform.KindRejected {
		t.Fatalf("expected KindRejected, got %v", err)
	}
}
