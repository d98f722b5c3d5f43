// Package internal groups helpers that are private to authform.
//
// # Sub-packages
//
//   - audit: async diagnostic event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window submission throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public authform API (audit types are re-exported
//     through aliases only).
//   - Be imported by any package outside the authform module.
package internal
