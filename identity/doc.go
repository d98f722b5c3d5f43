// Package identity provides account providers for authform forms.
//
// [Client] talks to a remote identity service over JSON/HTTP and maps its status
// codes onto the authform sentinel errors. [Memory] is a process-local provider
// that stores Argon2id password hashes, and [Server] exposes any
// authform.IdentityService over the same JSON/HTTP contract [Client] speaks.
//
// # Wire contract
//
//	POST /accounts   RegistrationPayload -> 201 AccountRecord | 409 | 422
//	POST /sessions   Credentials         -> 200 SessionResult | 401
//
// Any 5xx answer or transport failure is reported as
// authform.ErrIdentityUnavailable.
//
// # What this package must NOT do
//
//   - Log plaintext passwords or hashes.
//   - Retry a submission; the form decides whether a call happens at all.
package identity
