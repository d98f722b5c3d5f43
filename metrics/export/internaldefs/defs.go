package internaldefs

import (
	"github.com/MrEthical07/authform"
)

// CounterDef binds a counter id to its exported name and help text.
type CounterDef struct {
	ID   authform.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram id to its exported name and help text.
type HistogramDef struct {
	ID   authform.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: authform.MetricSubmitStarted, Name: "authform_submit_started_total", Help: "Submissions that reached the identity service."},
	{ID: authform.MetricSubmitInFlightRejected, Name: "authform_submit_in_flight_rejected_total", Help: "Submissions refused while another was in flight."},
	{ID: authform.MetricValidationFailure, Name: "authform_validation_failure_total", Help: "Submissions rejected by the field schema."},
	{ID: authform.MetricRegistrationSuccess, Name: "authform_registration_success_total", Help: "Accounts created through the form."},
	{ID: authform.MetricRegistrationFailure, Name: "authform_registration_failure_total", Help: "Failed account creations."},
	{ID: authform.MetricRegistrationConflict, Name: "authform_registration_conflict_total", Help: "Registrations for an existing account."},
	{ID: authform.MetricLoginSuccess, Name: "authform_login_success_total", Help: "Successful sign-ins."},
	{ID: authform.MetricLoginFailure, Name: "authform_login_failure_total", Help: "Sign-ins that failed with an error."},
	{ID: authform.MetricLoginRejected, Name: "authform_login_rejected_total", Help: "Sign-ins rejected by the identity service."},
	{ID: authform.MetricNavigation, Name: "authform_navigation_total", Help: "Navigations after a successful sign-in."},
	{ID: authform.MetricRateLimitHit, Name: "authform_rate_limit_hit_total", Help: "Submissions denied by the throttle."},
	{ID: authform.MetricLinkTokenIssued, Name: "authform_link_token_issued_total", Help: "Link tokens issued after registration."},
	{ID: authform.MetricFormCreated, Name: "authform_form_created_total", Help: "Forms created."},
	{ID: authform.MetricFormRestored, Name: "authform_form_restored_total", Help: "Forms restored from stored state."},
	{ID: authform.MetricStatePersistFailure, Name: "authform_state_persist_failure_total", Help: "Form state writes that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authform.MetricSubmitLatency, Name: "authform_submit_latency_seconds", Help: "Identity service call latency."},
}

// HistogramBounds are the bucket upper bounds in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket in exporters that cannot carry an le label.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
