package identity

import (
	"errors"
	"strings"
	"testing"
)

func fastHashConfig() HashConfig {
	return HashConfig{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(fastHashConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("correct-horse", encoded)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-horse", encoded)
	if err != nil || ok {
		t.Fatalf("expected verification to fail, got ok=%v err=%v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t)

	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, err := NewHasher(DefaultHashConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	ok, err := strong.Verify("correct-horse", encoded)
	if err != nil || !ok {
		t.Fatalf("expected cross-config verification, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	cases := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5",
	}
	for _, encoded := range cases {
		if _, err := h.Verify("x", encoded); !errors.Is(err, errMalformedHash) {
			t.Fatalf("expected errMalformedHash for %q, got %v", encoded, err)
		}
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	mutations := []func(*HashConfig){
		func(c *HashConfig) { c.Memory = 1024 },
		func(c *HashConfig) { c.Time = 0 },
		func(c *HashConfig) { c.Parallelism = 0 },
		func(c *HashConfig) { c.SaltLength = 8 },
		func(c *HashConfig) { c.KeyLength = 8 },
	}
	for i, mutate := range mutations {
		cfg := fastHashConfig()
		mutate(&cfg)
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
