package authform

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by authform APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Form      FormConfig
	Schema    SchemaConfig
	LinkToken LinkTokenConfig
	State     StateConfig
	Throttle  ThrottleConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
FORM CONFIG
====================================
*/

// FormConfig controls submission behavior shared by every form.
type FormConfig struct {
	// RootPath is where a successful login navigates.
	RootPath string
	// SubmitTimeout bounds the identity service call. Zero leaves only the caller's
	// context, and the lease TTL when State is enabled.
	SubmitTimeout time.Duration
}

// SchemaConfig tunes field constraints that vary between deployments.
type SchemaConfig struct {
	PasswordMinLength int
	// DateLayouts are tried in order when parsing dateOfBirth.
	DateLayouts []string
}

/*
====================================
LINK TOKEN CONFIG
====================================
*/

// LinkTokenConfig defines a public type used by authform APIs.
//
// LinkTokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LinkTokenConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

/*
====================================
STATE CONFIG
====================================
*/

// StateConfig controls Redis persistence of form snapshots and the in-flight lease.
type StateConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
	// LeaseTTL caps how long a crashed replica can keep a form in flight. It also
	// bounds every identity service call made under the lease.
	LeaseTTL time.Duration
}

// ThrottleConfig defines a public type used by authform APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	Enabled                  bool
	RedisPrefix              string
	MaxSubmissions           int
	Window                   time.Duration
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool
}

// AuditConfig defines a public type used by authform APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authform APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Redis-backed features, link
// tokens, audit and metrics start disabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Form: FormConfig{
			RootPath:      "/",
			SubmitTimeout: 0,
		},
		Schema: defaultSchemaConfig(),
		LinkToken: LinkTokenConfig{
			Enabled:       false,
			TTL:           30 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "authform",
		},
		State: StateConfig{
			Enabled:     false,
			RedisPrefix: "af",
			TTL:         30 * time.Minute,
			LeaseTTL:    30 * time.Second,
		},
		Throttle: ThrottleConfig{
			Enabled:                  false,
			RedisPrefix:              "afr",
			MaxSubmissions:           10,
			Window:                   15 * time.Minute,
			EnableIPThrottle:         true,
			EnableIdentifierThrottle: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func defaultSchemaConfig() SchemaConfig {
	return SchemaConfig{
		PasswordMinLength: 8,
		DateLayouts:       []string{"02/01/2006", "2006-01-02"},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.LinkToken.PrivateKey = cloneBytes(cfg.LinkToken.PrivateKey)
	out.LinkToken.PublicKey = cloneBytes(cfg.LinkToken.PublicKey)
	if cfg.Schema.DateLayouts != nil {
		out.Schema.DateLayouts = append([]string(nil), cfg.Schema.DateLayouts...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistency in c. It does not check that Redis is
// reachable; [Builder.Build] enforces that a client exists when a Redis feature is on.
func (c *Config) Validate() error {
	// Form
	if !strings.HasPrefix(c.Form.RootPath, "/") {
		return errors.New("Form RootPath must be an absolute path")
	}
	if c.Form.SubmitTimeout < 0 {
		return errors.New("Form SubmitTimeout must be >= 0")
	}

	// Schema
	if c.Schema.PasswordMinLength < 1 || c.Schema.PasswordMinLength > 128 {
		return errors.New("Schema PasswordMinLength must be between 1 and 128")
	}
	if len(c.Schema.DateLayouts) == 0 {
		return errors.New("Schema DateLayouts must not be empty")
	}
	for _, layout := range c.Schema.DateLayouts {
		if strings.TrimSpace(layout) == "" {
			return errors.New("Schema DateLayouts must not contain empty layouts")
		}
	}

	// Link token
	if c.LinkToken.Enabled {
		if c.LinkToken.TTL <= 0 {
			return errors.New("LinkToken TTL must be > 0")
		}
		switch c.LinkToken.SigningMethod {
		case "ed25519":
			if len(c.LinkToken.PrivateKey) == 0 {
				return errors.New("ed25519 requires PrivateKey")
			}
			if len(c.LinkToken.PublicKey) == 0 {
				return errors.New("ed25519 requires PublicKey")
			}
		case "hs256":
			if len(c.LinkToken.PrivateKey) == 0 {
				return errors.New("hs256 requires PrivateKey")
			}
			if len(c.LinkToken.PrivateKey) < 32 {
				return errors.New("hs256 PrivateKey must be at least 32 bytes")
			}
		default:
			return errors.New("unsupported LinkToken signing method")
		}
	}

	// State
	if c.State.Enabled {
		if strings.TrimSpace(c.State.RedisPrefix) == "" {
			return errors.New("State RedisPrefix must not be empty")
		}
		if c.State.TTL <= 0 {
			return errors.New("State TTL must be > 0")
		}
		if c.State.LeaseTTL <= 0 {
			return errors.New("State LeaseTTL must be > 0")
		}
		if c.Form.SubmitTimeout > 0 && c.State.LeaseTTL < c.Form.SubmitTimeout {
			return errors.New("State LeaseTTL must cover Form SubmitTimeout")
		}
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxSubmissions <= 0 {
			return errors.New("Throttle MaxSubmissions must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
		if !c.Throttle.EnableIPThrottle && !c.Throttle.EnableIdentifierThrottle {
			return errors.New("Throttle requires IP or identifier throttling")
		}
		if c.State.Enabled && c.Throttle.RedisPrefix == c.State.RedisPrefix {
			return errors.New("Throttle RedisPrefix must differ from State RedisPrefix")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c *Config) requiresRedis() bool {
	return c.State.Enabled || c.Throttle.Enabled
}
