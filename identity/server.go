package identity

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/MrEthical07/authform"
)

const maxRequestBytes = 64 << 10

// Server exposes an authform.IdentityService over JSON/HTTP.
type Server struct {
	svc authform.IdentityService
	mux *http.ServeMux
}

// NewServer returns a handler serving svc.
func NewServer(svc authform.IdentityService) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /accounts", s.createAccount)
	s.mux.HandleFunc("POST /sessions", s.authenticate)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var payload authform.RegistrationPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		http.Error(w, "email and password are required", http.StatusUnprocessableEntity)
		return
	}

	record, err := s.svc.CreateAccount(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var creds authform.Credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	session, err := s.svc.Authenticate(r.Context(), creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authform.ErrAccountExists):
		http.Error(w, "account exists", http.StatusConflict)
	case errors.Is(err, authform.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	default:
		log.Printf("identity: request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
