package opsauth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/internal/logging"
	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
	"github.com/MrEthical07/opsauth/token"
)

// Gateway is the authentication API as seen by a [Manager]. *gateway.Client
// implements it.
type Gateway interface {
	Login(ctx context.Context, creds gateway.Credentials) (gateway.LoginResult, error)
	Register(ctx context.Context, u gateway.NewUser) error
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (User, error)
}

// Builder assembles a [Manager]. Dependencies not supplied are built from
// the Config. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	gateway   Gateway
	store     session.Store
	routes    *permission.RouteTable
	logger    *log.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithGateway replaces the HTTP client built from Config.Gateway.
func (b *Builder) WithGateway(g Gateway) *Builder {
	b.gateway = g
	return b
}

// WithStore replaces the backend selected by Config.Storage.
func (b *Builder) WithStore(s session.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used by the redis storage backend. Without
// it Build dials Config.Storage.RedisAddr.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRouteTable replaces the default console route table.
func (b *Builder) WithRouteTable(rt *permission.RouteTable) *Builder {
	b.routes = rt
	return b
}

func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for token expiry checks and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a ready [Manager]. The
// Manager starts unauthenticated; call Initialize to rehydrate.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	metrics := NewMetrics(cfg.Metrics)

	gw := b.gateway
	if gw == nil {
		client, err := gateway.New(
			gateway.Config{
				BaseURL:   cfg.Gateway.BaseURL,
				Timeout:   cfg.Gateway.Timeout,
				UserAgent: cfg.Gateway.UserAgent,
			},
			gateway.WithClock(now),
			gateway.WithObserver(func(_ string, elapsed time.Duration, _ error) {
				metrics.Observe(MetricGatewayLatency, elapsed)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		gw = client
	}

	var ownedRedis redis.UniversalClient
	store := b.store
	if store == nil {
		switch cfg.Storage.Backend {
		case StorageMemory:
			store = session.NewMemoryStore()
		case StorageFile:
			store = session.NewFileStore(cfg.Storage.FilePath)
		case StorageRedis:
			client := b.redis
			if client == nil {
				client = redis.NewClient(&redis.Options{
					Addr:     cfg.Storage.RedisAddr,
					Password: cfg.Storage.RedisPassword,
					DB:       cfg.Storage.RedisDB,
				})
				ownedRedis = client
			}
			store = session.NewRedisStore(client, cfg.Storage.RedisPrefix)
		}
	}

	routes := b.routes
	if routes == nil {
		routes = permission.DefaultRouteTable(cfg.Authorization.DefaultPolicy)
	}

	b.built = true
	return &Manager{
		config:     cfg,
		gateway:    gw,
		store:      store,
		validator:  token.Validator{Now: now},
		routes:     routes,
		logger:     logger,
		metrics:    metrics,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink, now),
		now:        now,
		ownedRedis: ownedRedis,
	}, nil
}
