package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dawmanager/authgate/internal/limiters"
	"github.com/dawmanager/authgate/password"
	"github.com/dawmanager/authgate/session"
	"github.com/dawmanager/authgate/token"
)

const revocationKeyPrefix = "authgate:revoked:"

// Builder assembles an [Engine]. A credential store is mandatory; redis is
// optional and only powers the best-effort logout revocation table. A
// builder is single-use.
type Builder struct {
	config Config
	store  CredentialStore
	redis  *redis.Client

	auditSink AuditSink

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Unset sections lose their
// defaults; most callers should mutate a copy of the default config instead.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the token signing secret without replacing the rest of
// the configuration.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = append([]byte(nil), secret...)
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithRedis enables the token revocation side table. Without it, Logout
// still succeeds but tokens stay valid until expiry.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
		hasher: hasher,
		tokens: tokens,
		totp:   newTOTPManager(cfg.TOTP),
		limiter: limiters.NewLoginLimiter(b.store, limiters.LoginConfig{
			MaxAttempts:   cfg.RateLimit.MaxAttempts,
			Window:        cfg.RateLimit.Window,
			BlockDuration: cfg.RateLimit.BlockDuration,
		}),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: newMetrics(cfg.Metrics),
	}

	if b.redis != nil {
		engine.revoker = session.NewRevocationStore(b.redis, revocationKeyPrefix)
	}

	b.built = true

	return engine, nil
}
