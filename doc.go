// Package authform is the controller behind a sign-up / sign-in form for a banking
// style application.
//
// A [Form] validates user input against the [Schema] of its [Mode], calls an
// [IdentityService] to create an account or authenticate, and then either switches
// to the account-linking view (registration) or asks a [Navigator] to go to the
// application root (login). Forms are created by an [Engine] assembled with
// [Builder.Build]; forms and engine are safe to use from multiple goroutines.
//
// # Architecture boundaries
//
// authform is the public surface. Form state persistence lives in formstate, the
// link token issuer in linktoken, and throttling and audit dispatch under internal/.
// The identity provider and the external account-linking provider are reached only
// through [IdentityService] and the [AccountRecord] / [LinkToken] handed to the
// linking view. The identity package holds an HTTP client for a remote provider and
// an in-memory provider for local runs.
//
// # Submission contract
//
// At most one submission is in flight per form. Invalid input never reaches the
// identity service. Every accepted submission makes exactly one remote call, and the
// form is idle again when [Form.Submit] returns, whatever the outcome.
package authform
