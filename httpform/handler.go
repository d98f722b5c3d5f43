package httpform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/MrEthical07/authform"
)

const maxBodyBytes = 64 << 10

// Handler serves the form routes. Without form state persistence forms live in
// process memory; with it every request restores the form from Redis so any
// replica can serve it.
type Handler struct {
	engine *authform.Engine
	mux    *http.ServeMux

	mu    sync.RWMutex
	forms map[string]*authform.Form
}

// NewHandler returns a Handler for engine. The engine should be built with
// [RedirectNavigator] for login success to turn into a 303.
func NewHandler(engine *authform.Engine) *Handler {
	h := &Handler{
		engine: engine,
		mux:    http.NewServeMux(),
		forms:  make(map[string]*authform.Form),
	}
	h.mux.HandleFunc("POST /forms", h.create)
	h.mux.HandleFunc("GET /forms/{id}", h.get)
	h.mux.HandleFunc("POST /forms/{id}/submit", h.submit)
	h.mux.HandleFunc("DELETE /forms/{id}", h.unmount)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type createRequest struct {
	Mode string `json:"mode"`
}

type submitRequest struct {
	Fields authform.Fields `json:"fields"`
}

type formResponse struct {
	ID            string                     `json:"id"`
	Mode          string                     `json:"mode"`
	View          string                     `json:"view"`
	Title         string                     `json:"title"`
	Subtitle      string                     `json:"subtitle"`
	InFlight      bool                       `json:"inFlight"`
	Account       *authform.AccountRecord    `json:"account,omitempty"`
	LinkToken     *authform.LinkToken        `json:"linkToken,omitempty"`
	Fields        []authform.FieldDescriptor `json:"fields,omitempty"`
	AlternatePath string                     `json:"alternatePath"`
}

type outcomeResponse struct {
	Form       formResponse            `json:"form"`
	Session    *authform.SessionResult `json:"session,omitempty"`
	RedirectTo string                  `json:"redirectTo,omitempty"`
}

type errorResponse struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Fields  []authform.FieldError `json:"fields,omitempty"`
	// Remote is set when the identity service was called before the failure.
	Remote bool `json:"remote,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	mode, err := authform.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", "mode must be sign-in or sign-up")
		return
	}

	form, err := h.engine.NewForm(mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not create form")
		return
	}

	if h.engine.StateEnabled() {
		if err := form.Persist(requestContext(r)); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "could not store form")
			return
		}
	} else {
		h.mu.Lock()
		h.forms[form.ID()] = form
		h.mu.Unlock()
	}

	w.Header().Set("Location", "/forms/"+form.ID())
	writeJSON(w, http.StatusCreated, renderForm(form))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	out := renderForm(form)
	if h.engine.StateEnabled() && !out.InFlight {
		// A restored copy never carries the flag; the lease is shared by every replica.
		held, err := h.engine.InFlight(requestContext(r), form.ID())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "form state unavailable")
			return
		}
		out.InFlight = held
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var body submitRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	ctx, redirected := WithRedirectSlot(requestContext(r))
	outcome, err := form.Submit(ctx, body.Fields)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	if path, ok := redirected(); ok {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, outcomeResponse{
		Form:       renderForm(form),
		Session:    outcome.Session,
		RedirectTo: outcome.RedirectTo,
	})
}

func (h *Handler) unmount(w http.ResponseWriter, r *http.Request) {
	form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := form.Unmount(requestContext(r)); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "could not remove form")
		return
	}

	h.mu.Lock()
	delete(h.forms, form.ID())
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*authform.Form, bool) {
	id := r.PathValue("id")

	if h.engine.StateEnabled() {
		form, err := h.engine.Restore(requestContext(r), id)
		switch {
		case err == nil:
			return form, true
		case errors.Is(err, authform.ErrFormNotFound):
			writeError(w, http.StatusNotFound, "not_found", "form not found")
		default:
			writeError(w, http.StatusServiceUnavailable, "unavailable", "form state unavailable")
		}
		return nil, false
	}

	h.mu.RLock()
	form, ok := h.forms[id]
	h.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "form not found")
		return nil, false
	}
	return form, true
}

func renderForm(form *authform.Form) formResponse {
	view := form.View()
	out := formResponse{
		ID:            form.ID(),
		Mode:          form.Mode().String(),
		View:          view.Kind.String(),
		Title:         view.Title(form.Mode()),
		Subtitle:      view.Subtitle(),
		InFlight:      form.InFlight(),
		Account:       view.Account,
		LinkToken:     view.LinkToken,
		AlternatePath: form.AlternatePath(),
	}
	if view.Kind == authform.ViewCredentials {
		out.Fields = form.Descriptors()
	}
	return out
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var serr *authform.SubmitError
	if !errors.As(err, &serr) {
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong. Please try again.")
		return
	}

	resp := errorResponse{
		Error:   serr.Kind.String(),
		Message: serr.UserMessage(),
		Remote:  serr.Kind.Remote(),
	}
	if verr := serr.Validation(); verr != nil {
		resp.Fields = verr.Fields
	}
	writeJSON(w, statusForKind(serr.Kind), resp)
}

func statusForKind(kind authform.ErrorKind) int {
	switch kind {
	case authform.KindValidation:
		return http.StatusUnprocessableEntity
	case authform.KindInFlight, authform.KindConflict, authform.KindTerminal:
		return http.StatusConflict
	case authform.KindRateLimited:
		return http.StatusTooManyRequests
	case authform.KindRejected:
		return http.StatusUnauthorized
	case authform.KindUnavailable, authform.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestContext attaches the client IP and user agent for throttling and audit.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = authform.WithClientIP(ctx, host)
	ctx = authform.WithUserAgent(ctx, r.UserAgent())

	return ctx
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
