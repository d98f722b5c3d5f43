// Package rate provides the Redis-backed fixed-window throttle applied to form
// submissions before any identity service call.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:<scope>:id:<identifier>: per lower-cased identifier (email)
//   - <prefix>:<scope>:ip:<ip>: per client IP
//
// scope is the form mode ("sign-in" / "sign-up") so the two flows keep separate budgets.
//
// # What this package must NOT do
//
//   - Decide what happens after a limit is hit (the Form maps it to a typed error).
//   - Be imported outside the authform module.
package rate
