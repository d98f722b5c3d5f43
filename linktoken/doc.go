// Package linktoken issues and verifies the short-lived signed token handed to the
// account-linking view after a successful registration.
//
// A link token binds the newly created account id (sub) to a single linking
// session (jti). Tokens are JWTs signed with Ed25519 (default) or HS256.
package linktoken
