// Package httpform exposes authform forms over HTTP.
//
// Routes (Go 1.22 ServeMux patterns):
//
//	POST   /forms              create a form, body {"mode":"sign-in"|"sign-up"}
//	GET    /forms/{id}         current view and field descriptors
//	POST   /forms/{id}/submit  body {"fields":{...}}; 200 with the outcome, or
//	                           303 See Other when a successful login navigated
//	DELETE /forms/{id}         unmount
//
// Navigation is translated into a redirect by [RedirectNavigator], which the
// engine must be built with. The handler installs a per-request slot the navigator
// writes into; nothing is shared between requests.
//
// This package translates HTTP semantics into Engine and Form calls. It makes no
// validation or authentication decisions of its own.
package httpform
