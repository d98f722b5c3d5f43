package authform

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidMode is returned for a mode outside {registration, login}.
	ErrInvalidMode = errors.New("invalid form mode")
	// ErrEngineNotReady is returned when a required dependency is missing.
	ErrEngineNotReady = errors.New("form engine not ready")
	// ErrUnknownField is returned by SetField for a name the mode does not define.
	ErrUnknownField = errors.New("unknown form field")
	// ErrInvalidFields is the sentinel carried by every validation failure.
	ErrInvalidFields = errors.New("invalid form fields")
	// ErrSubmissionInFlight is returned when a second submit races an outstanding one.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrSubmitRateLimited is returned when the submission throttle denies a submit.
	ErrSubmitRateLimited = errors.New("submission rate limited")
	// ErrFormLinked is returned by Submit once the form shows the linking view.
	ErrFormLinked = errors.New("form already in linking view")
	// ErrFormUnmounted is returned by operations on an unmounted form.
	ErrFormUnmounted = errors.New("form unmounted")
	// ErrFormNotFound is returned by Restore when no snapshot exists.
	ErrFormNotFound = errors.New("form not found")
	// ErrStateDisabled is returned by Restore when form state persistence is off.
	ErrStateDisabled = errors.New("form state persistence disabled")
	// ErrStateUnavailable wraps Redis failures while loading or leasing form state.
	ErrStateUnavailable = errors.New("form state unavailable")
	// ErrLinkTokenDisabled is returned by ParseLinkToken when link tokens are off.
	ErrLinkTokenDisabled = errors.New("link token disabled")

	// ErrAuthenticationRejected covers a falsy sign-in result.
	ErrAuthenticationRejected = errors.New("authentication rejected")
	// ErrEmptyAccountRecord is returned when CreateAccount succeeds without a record.
	ErrEmptyAccountRecord = errors.New("identity service returned no account record")

	// ErrInvalidCredentials should be returned by IdentityService.Authenticate for bad credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists should be returned by IdentityService.CreateAccount for a duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrIdentityUnavailable should wrap transport or backend failures of the identity service.
	ErrIdentityUnavailable = errors.New("identity service unavailable")
)

// ErrorKind classifies why a submission failed.
type ErrorKind uint8

const (
	// KindInternal is a broken collaborator contract or an unclassified failure.
	KindInternal ErrorKind = iota
	// KindValidation means the schema rejected the input; no remote call was made.
	KindValidation
	// KindInFlight means another submission was outstanding; no remote call was made.
	KindInFlight
	// KindRateLimited means the submission throttle denied the submit; no remote call was made.
	KindRateLimited
	// KindRejected means the identity service answered with a falsy result or bad credentials.
	KindRejected
	// KindConflict means the account already exists.
	KindConflict
	// KindUnavailable means the identity service or a backend could not be reached in time.
	KindUnavailable
	// KindCanceled means the caller's context was canceled.
	KindCanceled
	// KindTerminal means the form is in a view that accepts no submissions.
	KindTerminal
)

var errorKindNames = [...]string{
	KindInternal:    "internal",
	KindValidation:  "validation",
	KindInFlight:    "in_flight",
	KindRateLimited: "rate_limited",
	KindRejected:    "rejected",
	KindConflict:    "conflict",
	KindUnavailable: "unavailable",
	KindCanceled:    "canceled",
	KindTerminal:    "terminal",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// Remote reports whether failures of this kind happened after the identity service was called.
func (k ErrorKind) Remote() bool {
	switch k {
	case KindRejected, KindConflict, KindUnavailable, KindCanceled, KindInternal:
		return true
	default:
		return false
	}
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every field the schema rejected, in descriptor order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidFields.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return ErrInvalidFields.Error() + ": " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFields
}

// Field returns the error for name, if any.
func (e *ValidationError) Field(name string) (FieldError, bool) {
	if e == nil {
		return FieldError{}, false
	}
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

// SubmitError is the typed failure returned by [Form.Submit].
type SubmitError struct {
	Kind ErrorKind
	Mode Mode
	Err  error
}

func (e *SubmitError) Error() string {
	if e.Err == nil {
		return "submit " + e.Mode.String() + ": " + e.Kind.String()
	}
	return "submit " + e.Mode.String() + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Validation returns the field errors when Kind is KindValidation.
func (e *SubmitError) Validation() *ValidationError {
	var verr *ValidationError
	if errors.As(e.Err, &verr) {
		return verr
	}
	return nil
}

// UserMessage returns text that is safe to show to the user for this failure.
func (e *SubmitError) UserMessage() string {
	switch e.Kind {
	case KindValidation:
		return "Please correct the highlighted fields."
	case KindInFlight:
		return "Your request is already being processed."
	case KindRateLimited:
		return "Too many attempts. Please wait a moment and try again."
	case KindRejected:
		if e.Mode == ModeLogin {
			return "The email or password you entered is incorrect."
		}
		return "We could not create your account with the details provided."
	case KindConflict:
		return "An account with this email already exists."
	case KindUnavailable, KindCanceled:
		return "We could not reach the server. Please try again."
	case KindTerminal:
		return "Your account is created. Continue by linking your bank account."
	default:
		return "Something went wrong. Please try again."
	}
}

// KindOf extracts the ErrorKind from err, or KindInternal when err is not a *SubmitError.
func KindOf(err error) ErrorKind {
	var serr *SubmitError
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindInternal
}
