package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/authform"
	"github.com/google/uuid"
)

const defaultSessionTTL = 12 * time.Hour

type memoryAccount struct {
	record       authform.AccountRecord
	passwordHash string
}

// Memory is an in-process identity provider keyed by email. Safe for concurrent use.
type Memory struct {
	hasher     *Hasher
	sessionTTL time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	accounts map[string]memoryAccount
}

// NewMemory returns an empty provider hashing passwords with hasher.
func NewMemory(hasher *Hasher) *Memory {
	return &Memory{
		hasher:     hasher,
		sessionTTL: defaultSessionTTL,
		now:        time.Now,
		accounts:   make(map[string]memoryAccount),
	}
}

// CreateAccount stores a new account. A second account for the same email
// returns authform.ErrAccountExists.
func (m *Memory) CreateAccount(ctx context.Context, payload authform.RegistrationPayload) (*authform.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	_, exists := m.accounts[payload.Email]
	m.mu.RUnlock()
	if exists {
		return nil, authform.ErrAccountExists
	}

	// Hash outside the lock; argon2 is deliberately slow.
	hash, err := m.hasher.Hash(payload.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	record := authform.AccountRecord{
		UserID:    uuid.NewString(),
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[payload.Email]; exists {
		return nil, authform.ErrAccountExists
	}
	m.accounts[payload.Email] = memoryAccount{record: record, passwordHash: hash}

	out := record
	return &out, nil
}

// Authenticate verifies creds. Unknown emails and wrong passwords both return
// authform.ErrInvalidCredentials.
func (m *Memory) Authenticate(ctx context.Context, creds authform.Credentials) (*authform.SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	account, ok := m.accounts[creds.Email]
	m.mu.RUnlock()
	if !ok {
		return nil, authform.ErrInvalidCredentials
	}

	match, err := m.hasher.Verify(creds.Password, account.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, authform.ErrInvalidCredentials
	}

	return &authform.SessionResult{
		Authenticated: true,
		UserID:        account.record.UserID,
		SessionID:     uuid.NewString(),
		ExpiresAt:     m.now().Add(m.sessionTTL),
	}, nil
}

// Len returns the number of stored accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
