package authform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authform/formstate"
	internalaudit "github.com/MrEthical07/authform/internal/audit"
	"github.com/MrEthical07/authform/internal/rate"
	"github.com/MrEthical07/authform/linktoken"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Engine hands out forms and holds the collaborators they share. It carries no
// per-form mutable state and is safe for concurrent use.
type Engine struct {
	config     Config
	identity   IdentityService
	navigator  Navigator
	redis      redis.UniversalClient
	schemas    map[Mode]*Schema
	store      *formstate.Store
	limiter    *rate.Limiter
	linkTokens *linktoken.Manager
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
}

// LinkTokenClaims is the verified content of a link token.
type LinkTokenClaims struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Close flushes queued audit events. Forms keep working afterwards but emit no audit.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDelivered returns the number of audit events handed to the sink.
func (e *Engine) AuditDelivered() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Delivered()
}

// MetricsSnapshot returns the current counters; empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Schema returns the engine-configured schema for mode, or nil for an invalid mode.
func (e *Engine) Schema(mode Mode) *Schema {
	if e == nil {
		return nil
	}
	return e.schemas[mode]
}

// NewForm initializes a form in the credentials view with empty email and password.
// It performs no I/O; call [Form.Persist] to make the form restorable.
func (e *Engine) NewForm(mode Mode) (*Form, error) {
	if e == nil || e.identity == nil {
		return nil, ErrEngineNotReady
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	f := e.newForm(uuid.NewString(), mode, time.Now())

	e.metricInc(MetricFormCreated)
	e.emitAudit(context.Background(), auditEventFormCreated, f, true, "", nil, nil)

	return f, nil
}

func (e *Engine) newForm(id string, mode Mode, createdAt time.Time) *Form {
	return &Form{
		engine:    e,
		id:        id,
		mode:      mode,
		schema:    e.schemas[mode],
		fields:    initialFields(),
		view:      View{Kind: ViewCredentials},
		createdAt: createdAt,
	}
}

func initialFields() Fields {
	return Fields{
		FieldEmail:    "",
		FieldPassword: "",
	}
}

// Restore rebuilds a form from its stored snapshot. Field input is not persisted,
// so a restored form starts with empty email and password.
func (e *Engine) Restore(ctx context.Context, formID string) (*Form, error) {
	if e == nil || e.identity == nil {
		return nil, ErrEngineNotReady
	}
	if e.store == nil {
		return nil, ErrStateDisabled
	}
	if _, err := uuid.Parse(formID); err != nil {
		return nil, ErrFormNotFound
	}

	snap, err := e.store.Get(ctx, formID)
	if err != nil {
		if errors.Is(err, formstate.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		if errors.Is(err, formstate.ErrSnapshotCorrupt) {
			return nil, fmt.Errorf("%w: %v", ErrFormNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	mode := Mode(snap.Mode)
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrFormNotFound, ErrInvalidMode)
	}

	f := e.newForm(snap.FormID, mode, time.Unix(snap.CreatedAt, 0))
	f.stored = true
	if view, ok := viewFromSnapshot(snap); ok {
		f.view = view
	}

	e.metricInc(MetricFormRestored)
	e.emitAudit(ctx, auditEventFormRestored, f, true, snap.AccountUserID, nil, nil)

	return f, nil
}

// viewFromSnapshot rebuilds the linking view. ok is false for a credentials snapshot.
func viewFromSnapshot(snap *formstate.Snapshot) (View, bool) {
	if ViewKind(snap.View) != ViewLinking || !snap.HasAccount() {
		return View{}, false
	}

	view := View{
		Kind: ViewLinking,
		Account: &AccountRecord{
			UserID:    snap.AccountUserID,
			Email:     snap.AccountEmail,
			FirstName: snap.AccountFirstName,
			LastName:  snap.AccountLastName,
		},
	}
	if snap.LinkTokenValue != "" {
		view.LinkToken = &LinkToken{
			Value:     snap.LinkTokenValue,
			ID:        snap.LinkTokenID,
			ExpiresAt: time.Unix(snap.LinkTokenExpiresAt, 0),
		}
	}
	return view, true
}

// InFlight reports whether any replica holds a submission for formID. Without
// state persistence only the form itself knows, so it returns [ErrStateDisabled].
func (e *Engine) InFlight(ctx context.Context, formID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrStateDisabled
	}
	held, err := e.store.LeaseHeld(ctx, formID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	return held, nil
}

// ParseLinkToken verifies a token attached to a linking view.
func (e *Engine) ParseLinkToken(token string) (*LinkTokenClaims, error) {
	if e == nil || e.linkTokens == nil {
		return nil, ErrLinkTokenDisabled
	}

	claims, err := e.linkTokens.Parse(token)
	if err != nil {
		return nil, err
	}

	out := &LinkTokenClaims{
		ID:     claims.ID,
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Health pings Redis when a client is configured.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}

	status := HealthStatus{RedisConfigured: true}
	if e.store != nil {
		latency, err := e.store.Ping(ctx)
		status.RedisLatency = latency
		status.RedisAvailable = err == nil
		return status
	}

	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	status.RedisLatency = time.Since(start)
	status.RedisAvailable = err == nil
	return status
}

// StateEnabled reports whether forms are persisted and restorable.
func (e *Engine) StateEnabled() bool {
	return e != nil && e.store != nil
}
