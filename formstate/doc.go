// Package formstate provides Redis-backed persistence of form snapshots and the
// distributed in-flight lease that keeps one submission per form across replicas.
//
// # Binary encoding
//
// Snapshots are stored as a compact versioned binary blob. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Snapshot] model. It does
// NOT validate fields, call identity services or decide state transitions; the
// authform Form does.
//
// # What this package must NOT do
//
//   - Import authform (no upward imports).
//   - Store field values. Passwords and SSNs never leave the Form.
package formstate
