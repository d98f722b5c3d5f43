// Package audit implements async diagnostic event dispatching for form submissions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, form, mode, user, IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and Form do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authform or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
