package authform

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/authform/internal/audit"
)

const (
	auditEventFormCreated           = "form_created"
	auditEventFormRestored          = "form_restored"
	auditEventFormUnmounted         = "form_unmounted"
	auditEventValidationFailed      = "validation_failed"
	auditEventSubmitInFlight        = "submit_in_flight"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
	auditEventRegistrationSuccess   = "registration_success"
	auditEventRegistrationFailure   = "registration_failure"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventNavigation            = "navigation"
	auditEventLinkTokenIssued       = "link_token_issued"
	auditEventStatePersistFailed    = "state_persist_failed"
	auditEventSubmitRejectedLinking = "submit_rejected_linking"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInFlight           AuditErrorCode = "in_flight"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrTimeout            AuditErrorCode = "timeout"
	auditErrEmptyRecord        AuditErrorCode = "empty_account_record"
	auditErrLinked             AuditErrorCode = "form_linked"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	f *Form,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := internalaudit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if f != nil {
		event.FormID = f.id
		event.Mode = f.mode.String()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, f *Form, scope string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, f, false, "", ErrSubmitRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidFields):
		return auditErrValidation
	case errors.Is(err, ErrSubmissionInFlight):
		return auditErrInFlight
	case errors.Is(err, ErrSubmitRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAuthenticationRejected):
		return auditErrRejected
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrEmptyAccountRecord):
		return auditErrEmptyRecord
	case errors.Is(err, ErrFormLinked):
		return auditErrLinked
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, context.Canceled):
		return auditErrCanceled
	case errors.Is(err, ErrIdentityUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
