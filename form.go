package authform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authform/formstate"
	"github.com/MrEthical07/authform/internal/rate"
	"github.com/google/uuid"
)

// Form is one sign-in or sign-up form instance. Its mode is fixed at construction.
// Submissions are serialized by an atomic in-flight flag; a second Submit while one
// is outstanding fails fast instead of blocking.
type Form struct {
	engine    *Engine
	id        string
	mode      Mode
	schema    *Schema
	createdAt time.Time

	inFlight atomic.Bool

	mu        sync.Mutex
	fields    Fields
	view      View
	unmounted bool
	// stored is set once a snapshot of this form exists in Redis.
	stored bool
}

// ID returns the form identifier used by [Engine.Restore] and the HTTP surface.
func (f *Form) ID() string {
	return f.id
}

// Mode returns the form's fixed mode.
func (f *Form) Mode() Mode {
	return f.mode
}

// Schema returns the schema bound at construction.
func (f *Form) Schema() *Schema {
	return f.schema
}

// Descriptors lists the fields to render for the form's mode.
func (f *Form) Descriptors() []FieldDescriptor {
	return f.schema.Descriptors()
}

// AlternatePath is the link to the other mode's page.
func (f *Form) AlternatePath() string {
	if f.mode == ModeLogin {
		return "/" + ModeRegistration.String()
	}
	return "/" + ModeLogin.String()
}

// State reports whether a submission is outstanding.
func (f *Form) State() SubmissionState {
	if f.inFlight.Load() {
		return StateInFlight
	}
	return StateIdle
}

// InFlight reports whether the submit control should be disabled.
func (f *Form) InFlight() bool {
	return f.inFlight.Load()
}

// View returns a copy of the current view.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyView(f.view)
}

// Fields returns a copy of the current input.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields.Clone()
}

// SetField records user input for one field of the form's mode.
func (f *Form) SetField(name, value string) error {
	if !f.schema.Defines(name) {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unmounted {
		return ErrFormUnmounted
	}
	if f.view.Kind == ViewLinking {
		return ErrFormLinked
	}
	f.fields[name] = value
	return nil
}

// Persist saves the form snapshot so another request can [Engine.Restore] it.
// It is a no-op when state persistence is disabled.
func (f *Form) Persist(ctx context.Context) error {
	if f.engine.store == nil {
		return nil
	}

	f.mu.Lock()
	if f.unmounted {
		f.mu.Unlock()
		return ErrFormUnmounted
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if err := f.engine.store.Save(ctx, snap, f.engine.config.State.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	f.mu.Lock()
	f.stored = true
	f.mu.Unlock()
	return nil
}

// Unmount discards input and any stored snapshot. Later calls to Submit, SetField
// and Persist fail with [ErrFormUnmounted]. Unmount is idempotent.
func (f *Form) Unmount(ctx context.Context) error {
	f.mu.Lock()
	if f.unmounted {
		f.mu.Unlock()
		return nil
	}
	f.unmounted = true
	f.fields = initialFields()
	f.mu.Unlock()

	f.engine.emitAudit(ctx, auditEventFormUnmounted, f, true, "", nil, nil)

	if f.engine.store == nil {
		return nil
	}
	if err := f.engine.store.Delete(ctx, f.id); err != nil {
		return fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	return nil
}

// Submit validates fields and drives exactly one identity service call.
//
// A nil fields map submits the current input. Registration success switches the
// view to [ViewLinking]; login success navigates to the configured root path.
// Every failure is a *SubmitError, leaves the view unchanged and returns the form
// to idle.
func (f *Form) Submit(ctx context.Context, fields Fields) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	e := f.engine

	f.mu.Lock()
	if err := f.acceptingLocked(); err != nil {
		f.mu.Unlock()
		e.emitAudit(ctx, auditEventSubmitRejectedLinking, f, false, "", err, nil)
		return nil, f.fail(KindTerminal, err)
	}
	if fields == nil {
		fields = f.fields.Clone()
	}
	f.mu.Unlock()

	if err := f.schema.Validate(fields); err != nil {
		e.metricInc(MetricValidationFailure)
		e.emitAudit(ctx, auditEventValidationFailed, f, false, "", err, func() map[string]string {
			return validationMetadata(err)
		})
		return nil, f.fail(KindValidation, err)
	}

	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, f.rejectInFlight(ctx)
	}
	defer f.inFlight.Store(false)

	// The view may have switched while this call was validating.
	f.mu.Lock()
	err := f.acceptingLocked()
	f.mu.Unlock()
	if err != nil {
		return nil, f.fail(KindTerminal, err)
	}

	var leaseDeadline time.Time
	if e.store != nil {
		leaseDeadline = time.Now().Add(e.config.State.LeaseTTL)
		release, err := e.store.AcquireLease(ctx, f.id, uuid.NewString(), e.config.State.LeaseTTL)
		if err != nil {
			if errors.Is(err, formstate.ErrLeaseHeld) {
				return nil, f.rejectInFlight(ctx)
			}
			return nil, f.fail(KindUnavailable, fmt.Errorf("%w: %v", ErrStateUnavailable, err))
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Print("authform: release form lease: ", err)
			}
		}()

		// Another replica may have linked or unmounted the form since this copy
		// was restored.
		if err := f.reloadStored(ctx); err != nil {
			return nil, err
		}
	}

	email := normalizeField(FieldEmail, fields[FieldEmail])
	if err := e.limiter.Allow(ctx, f.mode.String(), email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.emitRateLimit(ctx, f, f.mode.String())
			return nil, f.fail(KindRateLimited, ErrSubmitRateLimited)
		}
		return nil, f.fail(KindUnavailable, fmt.Errorf("%w: %v", ErrStateUnavailable, err))
	}

	e.metricInc(MetricSubmitStarted)

	callCtx, cancel := f.callContext(ctx, leaseDeadline)
	defer cancel()

	if f.mode == ModeRegistration {
		return f.register(ctx, callCtx, fields)
	}
	return f.login(ctx, callCtx, fields)
}

func (f *Form) register(ctx, callCtx context.Context, fields Fields) (*Outcome, error) {
	e := f.engine
	payload := f.schema.registrationPayload(fields)

	start := time.Now()
	record, err := e.identity.CreateAccount(callCtx, payload)
	elapsed := time.Since(start)
	e.metricObserve(MetricSubmitLatency, elapsed)

	if err == nil && (record == nil || record.UserID == "") {
		err = ErrEmptyAccountRecord
	}
	if err != nil {
		kind := classifyRemote(ctx, err)
		if kind == KindConflict {
			e.metricInc(MetricRegistrationConflict)
		} else {
			e.metricInc(MetricRegistrationFailure)
		}
		e.emitAudit(ctx, auditEventRegistrationFailure, f, false, "", err, nil)
		return nil, f.fail(kind, err)
	}

	account := *record
	view := View{Kind: ViewLinking, Account: &account}

	if e.linkTokens != nil {
		token, err := e.linkTokens.Issue(account.UserID, account.Email)
		if err != nil {
			// The account exists; the linking view is still shown without a token.
			log.Print("authform: issue link token: ", err)
		} else {
			view.LinkToken = &LinkToken{Value: token.Value, ID: token.ID, ExpiresAt: token.ExpiresAt}
			e.metricInc(MetricLinkTokenIssued)
			e.emitAudit(ctx, auditEventLinkTokenIssued, f, true, account.UserID, nil, func() map[string]string {
				return map[string]string{"token_id": token.ID}
			})
		}
	}

	f.mu.Lock()
	f.view = view
	f.fields = initialFields()
	var snap *formstate.Snapshot
	if e.store != nil && !f.unmounted {
		snap = f.snapshotLocked()
	}
	f.mu.Unlock()

	if snap != nil {
		if err := e.store.Save(context.WithoutCancel(ctx), snap, e.config.State.TTL); err != nil {
			log.Print("authform: persist form state: ", err)
			e.metricInc(MetricStatePersistFailure)
			e.emitAudit(ctx, auditEventStatePersistFailed, f, false, account.UserID, err, nil)
		} else {
			f.mu.Lock()
			f.stored = true
			f.mu.Unlock()
		}
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistrationSuccess, f, true, account.UserID, nil, nil)

	return &Outcome{
		Mode:     f.mode,
		View:     copyView(view),
		Duration: elapsed,
	}, nil
}

func (f *Form) login(ctx, callCtx context.Context, fields Fields) (*Outcome, error) {
	e := f.engine
	creds := f.schema.credentials(fields)

	start := time.Now()
	session, err := e.identity.Authenticate(callCtx, creds)
	elapsed := time.Since(start)
	e.metricObserve(MetricSubmitLatency, elapsed)

	if err == nil && (session == nil || !session.Authenticated) {
		err = ErrAuthenticationRejected
	}
	if err != nil {
		kind := classifyRemote(ctx, err)
		if kind == KindRejected {
			e.metricInc(MetricLoginRejected)
		} else {
			e.metricInc(MetricLoginFailure)
		}
		e.emitAudit(ctx, auditEventLoginFailure, f, false, "", err, nil)
		return nil, f.fail(kind, err)
	}

	if err := e.limiter.Reset(ctx, f.mode.String(), creds.Email); err != nil {
		log.Print("authform: reset submission throttle: ", err)
	}

	root := e.config.Form.RootPath
	if e.navigator != nil {
		e.navigator.GoTo(ctx, root)
	}
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricNavigation)
	e.emitAudit(ctx, auditEventLoginSuccess, f, true, session.UserID, nil, nil)
	e.emitAudit(ctx, auditEventNavigation, f, true, session.UserID, nil, func() map[string]string {
		return map[string]string{"path": root}
	})

	s := *session
	return &Outcome{
		Mode:       f.mode,
		View:       f.View(),
		Session:    &s,
		Navigated:  true,
		RedirectTo: root,
		Duration:   elapsed,
	}, nil
}

// reloadStored refreshes the view from the stored snapshot. Must be called with
// the lease held. A form that was never stored has nothing to reload.
func (f *Form) reloadStored(ctx context.Context) error {
	e := f.engine

	f.mu.Lock()
	stored := f.stored
	f.mu.Unlock()
	if !stored {
		return nil
	}

	snap, err := e.store.Get(ctx, f.id)
	switch {
	case errors.Is(err, formstate.ErrNotFound), errors.Is(err, formstate.ErrSnapshotCorrupt):
		f.mu.Lock()
		f.unmounted = true
		f.fields = initialFields()
		f.mu.Unlock()
		e.emitAudit(ctx, auditEventSubmitRejectedLinking, f, false, "", ErrFormUnmounted, nil)
		return f.fail(KindTerminal, ErrFormUnmounted)
	case err != nil:
		return f.fail(KindUnavailable, fmt.Errorf("%w: %v", ErrStateUnavailable, err))
	}

	view, ok := viewFromSnapshot(snap)
	if !ok {
		return nil
	}

	f.mu.Lock()
	f.view = view
	f.fields = initialFields()
	f.mu.Unlock()
	e.emitAudit(ctx, auditEventSubmitRejectedLinking, f, false, snap.AccountUserID, ErrFormLinked, nil)
	return f.fail(KindTerminal, ErrFormLinked)
}

// callContext bounds the remote call by SubmitTimeout and, with state enabled,
// by the lease deadline so the call never outlives the cross-replica guard.
func (f *Form) callContext(ctx context.Context, leaseDeadline time.Time) (context.Context, context.CancelFunc) {
	deadline := leaseDeadline
	if timeout := f.engine.config.Form.SubmitTimeout; timeout > 0 {
		if d := time.Now().Add(timeout); deadline.IsZero() || d.Before(deadline) {
			deadline = d
		}
	}
	if deadline.IsZero() {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func (f *Form) acceptingLocked() error {
	if f.unmounted {
		return ErrFormUnmounted
	}
	if f.view.Kind == ViewLinking {
		return ErrFormLinked
	}
	return nil
}

func (f *Form) rejectInFlight(ctx context.Context) error {
	f.engine.metricInc(MetricSubmitInFlightRejected)
	f.engine.emitAudit(ctx, auditEventSubmitInFlight, f, false, "", ErrSubmissionInFlight, nil)
	return f.fail(KindInFlight, ErrSubmissionInFlight)
}

func (f *Form) fail(kind ErrorKind, err error) *SubmitError {
	return &SubmitError{Kind: kind, Mode: f.mode, Err: err}
}

func (f *Form) snapshotLocked() *formstate.Snapshot {
	now := time.Now().Unix()
	snap := &formstate.Snapshot{
		FormID:    f.id,
		Mode:      uint8(f.mode),
		View:      uint8(f.view.Kind),
		CreatedAt: f.createdAt.Unix(),
		UpdatedAt: now,
	}
	if a := f.view.Account; a != nil {
		snap.AccountUserID = a.UserID
		snap.AccountEmail = a.Email
		snap.AccountFirstName = a.FirstName
		snap.AccountLastName = a.LastName
	}
	if t := f.view.LinkToken; t != nil {
		snap.LinkTokenID = t.ID
		snap.LinkTokenValue = t.Value
		snap.LinkTokenExpiresAt = t.ExpiresAt.Unix()
	}
	return snap
}

// classifyRemote maps an identity service failure to its kind. The caller's
// context decides between canceled and timed out.
func classifyRemote(ctx context.Context, err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEmptyAccountRecord):
		return KindInternal
	case errors.Is(err, ErrAccountExists):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAuthenticationRejected):
		return KindRejected
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrIdentityUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

func validationMetadata(err error) map[string]string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[string]string, len(verr.Fields))
	for _, fe := range verr.Fields {
		out["field."+fe.Field] = fe.Rule
	}
	return out
}

func copyView(v View) View {
	out := View{Kind: v.Kind}
	if v.Account != nil {
		a := *v.Account
		out.Account = &a
	}
	if v.LinkToken != nil {
		t := *v.LinkToken
		out.LinkToken = &t
	}
	return out
}
