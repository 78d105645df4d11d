package stubapi

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/MrEthical07/opsauth/internal/rate"
	"github.com/MrEthical07/opsauth/password"
	"github.com/MrEthical07/opsauth/token"
)

// DemoConfig configures NewDemo. Zero fields take defaults.
type DemoConfig struct {
	AccessTTL time.Duration
	Password  password.Config
	Limiter   *rate.Limiter
	Logger    *log.Logger
	Now       func() time.Time
}

// NewDemo returns a Server signing HS256 tokens with a random per-process
// secret and seeded with DemoAccounts.
func NewDemo(cfg DemoConfig) (*Server, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.Password == (password.Config{}) {
		cfg.Password = password.DefaultConfig()
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("stubapi secret: %w", err)
	}
	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessTTL:     cfg.AccessTTL,
		SigningMethod: token.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "opsauth-stub",
	})
	if err != nil {
		return nil, fmt.Errorf("stubapi issuer: %w", err)
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("stubapi hasher: %w", err)
	}

	s, err := New(Config{Issuer: issuer, Hasher: hasher, Limiter: cfg.Limiter, Logger: cfg.Logger, Now: cfg.Now})
	if err != nil {
		return nil, err
	}
	if err := s.SeedDemo(); err != nil {
		return nil, err
	}
	return s, nil
}
