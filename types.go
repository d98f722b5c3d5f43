package authform

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/authform/internal/audit"
)

// Mode selects which of the two supported flows a form instance runs.
// It is fixed for the lifetime of a [Form].
type Mode uint8

const (
	// ModeRegistration creates an account and then offers account linking.
	ModeRegistration Mode = iota + 1
	// ModeLogin authenticates existing credentials and navigates to the root path.
	ModeLogin
)

// String returns the route-style name used by the original form ("sign-up" / "sign-in").
func (m Mode) String() string {
	switch m {
	case ModeRegistration:
		return "sign-up"
	case ModeLogin:
		return "sign-in"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	return m == ModeRegistration || m == ModeLogin
}

// ParseMode accepts "sign-up"/"registration" and "sign-in"/"login".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sign-up", "signup", "registration", "register":
		return ModeRegistration, nil
	case "sign-in", "signin", "login":
		return ModeLogin, nil
	default:
		return 0, ErrInvalidMode
	}
}

// Field names shared by the schema, payload builders and HTTP surface.
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldAddress1    = "address1"
	FieldCity        = "city"
	FieldState       = "state"
	FieldPostalCode  = "postalCode"
	FieldDateOfBirth = "dateOfBirth"
	FieldSSN         = "ssn"
	FieldEmail       = "email"
	FieldPassword    = "password"
)

// Fields maps a field name to its raw string value as typed by the user.
type Fields map[string]string

// Clone returns an independent copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// SubmissionState is the in-flight flag of a form.
type SubmissionState uint8

const (
	// StateIdle means the submit control is enabled.
	StateIdle SubmissionState = iota
	// StateInFlight means a remote call is outstanding and the submit control is disabled.
	StateInFlight
)

func (s SubmissionState) String() string {
	if s == StateInFlight {
		return "in_flight"
	}
	return "idle"
}

// ViewKind tags the branch of [View] that is currently rendered.
type ViewKind uint8

const (
	// ViewCredentials renders the credentials form for the form's mode.
	ViewCredentials ViewKind = iota
	// ViewLinking renders the external account linking affordance. Terminal.
	ViewLinking
)

func (k ViewKind) String() string {
	if k == ViewLinking {
		return "linking"
	}
	return "credentials"
}

// View is a tagged union over {Credentials, Linking(AccountRecord)}.
// Account and LinkToken are set only when Kind is ViewLinking.
type View struct {
	Kind      ViewKind
	Account   *AccountRecord
	LinkToken *LinkToken
}

// Title mirrors the heading shown for the view.
func (v View) Title(mode Mode) string {
	if v.Kind == ViewLinking {
		return "Link Account"
	}
	if mode == ModeLogin {
		return "Sign In"
	}
	return "Sign Up"
}

// Subtitle mirrors the supporting line shown under the heading.
func (v View) Subtitle() string {
	if v.Kind == ViewLinking {
		return "Link your Account to get Started"
	}
	return "Please enter your details."
}

// RegistrationPayload is sent to [IdentityService.CreateAccount]. Every field is
// required by the registration schema before the payload is built.
type RegistrationPayload struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// Credentials is sent to [IdentityService.Authenticate].
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountRecord is returned by a successful registration and becomes the
// linked-account candidate of the form.
type AccountRecord struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// SessionResult is returned by [IdentityService.Authenticate]. A nil result or
// Authenticated == false is treated as a falsy sign-in.
type SessionResult struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
}

// LinkToken is the short-lived signed handoff token attached to the linking view.
type LinkToken struct {
	Value     string    `json:"value"`
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IdentityService is the external account provider the form delegates to.
//
// Implementations should return [ErrAccountExists], [ErrInvalidCredentials] or
// [ErrIdentityUnavailable] (wrapped is fine) so the form can classify failures.
type IdentityService interface {
	CreateAccount(ctx context.Context, payload RegistrationPayload) (*AccountRecord, error)
	Authenticate(ctx context.Context, creds Credentials) (*SessionResult, error)
}

// Navigator moves the user to another location. Fire-and-forget.
type Navigator interface {
	GoTo(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, path string)

// GoTo calls f(ctx, path).
func (f NavigatorFunc) GoTo(ctx context.Context, path string) {
	f(ctx, path)
}

// Outcome describes the observable result of an accepted submission.
type Outcome struct {
	Mode       Mode
	View       View
	Session    *SessionResult
	Navigated  bool
	RedirectTo string
	Duration   time.Duration
}

// FieldDescriptor carries presentation hints for one field of a mode.
type FieldDescriptor struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret,omitempty"`
}

// HealthStatus reports backend availability for the optional Redis features.
type HealthStatus struct {
	RedisConfigured bool
	RedisAvailable  bool
	RedisLatency    time.Duration
}

// AuditEvent is a structured diagnostic record emitted for every submission.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers events into a channel; see [NewChannelSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line; see [NewJSONWriterSink].
type JSONWriterSink = internalaudit.JSONWriterSink
