package authform

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authform/formstate"
	internalaudit "github.com/MrEthical07/authform/internal/audit"
	"github.com/MrEthical07/authform/internal/rate"
	"github.com/MrEthical07/authform/linktoken"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identity  IdentityService
	navigator Navigator
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by form state persistence and the submission
// throttle. Any go-redis client (single node, cluster, ring) is accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityService sets the account provider. Required.
func (b *Builder) WithIdentityService(svc IdentityService) *Builder {
	b.identity = svc
	return b
}

// WithNavigator sets where successful logins navigate. Without one, navigation is
// reported only through [Outcome.RedirectTo].
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithAuditSink sets the diagnostic sink. Only used when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every collaborator.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.identity == nil {
		return nil, fmt.Errorf("%w: identity service required", ErrEngineNotReady)
	}

	if b.redis == nil && cfg.requiresRedis() {
		if cfg.State.Enabled {
			return nil, errors.New("State requires redis client")
		}
		return nil, errors.New("Throttle requires redis client")
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		identity:  b.identity,
		navigator: b.navigator,
		redis:     b.redis,
		schemas: map[Mode]*Schema{
			ModeRegistration: newSchema(ModeRegistration, cfg.Schema),
			ModeLogin:        newSchema(ModeLogin, cfg.Schema),
		},
	}

	if cfg.State.Enabled {
		engine.store = formstate.NewStore(b.redis, cfg.State.RedisPrefix)
	}

	if cfg.Throttle.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:                   cfg.Throttle.RedisPrefix,
			EnableIPThrottle:         cfg.Throttle.EnableIPThrottle,
			EnableIdentifierThrottle: cfg.Throttle.EnableIdentifierThrottle,
			MaxSubmissions:           cfg.Throttle.MaxSubmissions,
			Window:                   cfg.Throttle.Window,
		})
	}

	if cfg.LinkToken.Enabled {
		lm, err := linktoken.NewManager(linktoken.Config{
			TTL:           cfg.LinkToken.TTL,
			SigningMethod: linktoken.SigningMethod(cfg.LinkToken.SigningMethod),
			PrivateKey:    cloneBytes(cfg.LinkToken.PrivateKey),
			PublicKey:     cloneBytes(cfg.LinkToken.PublicKey),
			Issuer:        cfg.LinkToken.Issuer,
			Audience:      cfg.LinkToken.Audience,
		})
		if err != nil {
			return nil, err
		}
		engine.linkTokens = lm
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
