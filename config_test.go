package authform

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Form.RootPath != "/" {
		t.Fatalf("expected root path /, got %q", cfg.Form.RootPath)
	}
}

func TestStateWithoutSubmitTimeoutIsValid(t *testing.T) {
	// The lease deadline bounds the remote call when SubmitTimeout is zero.
	cfg := DefaultConfig()
	cfg.State.Enabled = true
	cfg.Form.SubmitTimeout = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("state config without timeout invalid: %v", err)
	}

	cfg.Form.SubmitTimeout = cfg.State.LeaseTTL + time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected timeout beyond the lease to be rejected")
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative root path", func(c *Config) { c.Form.RootPath = "home" }},
		{"negative timeout", func(c *Config) { c.Form.SubmitTimeout = -time.Second }},
		{"zero password length", func(c *Config) { c.Schema.PasswordMinLength = 0 }},
		{"no date layouts", func(c *Config) { c.Schema.DateLayouts = nil }},
		{"link token without keys", func(c *Config) { c.LinkToken.Enabled = true }},
		{"link token bad method", func(c *Config) {
			c.LinkToken.Enabled = true
			c.LinkToken.SigningMethod = "rs256"
			c.LinkToken.PrivateKey = []byte("k")
		}},
		{"short hs256 key", func(c *Config) {
			c.LinkToken.Enabled = true
			c.LinkToken.SigningMethod = "hs256"
			c.LinkToken.PrivateKey = []byte("short")
		}},
		{"state zero ttl", func(c *Config) {
			c.State.Enabled = true
			c.State.TTL = 0
		}},
		{"lease shorter than timeout", func(c *Config) {
			c.State.Enabled = true
			c.Form.SubmitTimeout = time.Minute
			c.State.LeaseTTL = time.Second
		}},
		{"throttle zero max", func(c *Config) {
			c.Throttle.Enabled = true
			c.Throttle.MaxSubmissions = 0
		}},
		{"throttle no scope", func(c *Config) {
			c.Throttle.Enabled = true
			c.Throttle.EnableIPThrottle = false
			c.Throttle.EnableIdentifierThrottle = false
		}},
		{"shared prefix", func(c *Config) {
			c.State.Enabled = true
			c.Throttle.Enabled = true
			c.Throttle.RedisPrefix = c.State.RedisPrefix
		}},
		{"audit zero buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
		{"histograms without metrics", func(c *Config) {
			c.Metrics.EnableLatencyHistograms = true
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigValidateAcceptsEd25519LinkToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.LinkToken.Enabled = true
	cfg.LinkToken.PrivateKey = priv
	cfg.LinkToken.PublicKey = pub
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCloneConfigDetachesSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LinkToken.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	out := cloneConfig(cfg)
	cfg.LinkToken.PrivateKey[0] = 'X'
	cfg.Schema.DateLayouts[0] = "bogus"

	if out.LinkToken.PrivateKey[0] != '0' {
		t.Fatal("private key must be copied")
	}
	if out.Schema.DateLayouts[0] != "02/01/2006" {
		t.Fatal("date layouts must be copied")
	}
}
