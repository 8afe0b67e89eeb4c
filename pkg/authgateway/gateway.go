// Package authgateway talks to the identity provider that issues and
// validates bearer tokens. The rest of the service only sees Gateway.
package authgateway

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Identity struct {
	ID       string         `json:"id" mapstructure:"id"`
	Email    string         `json:"email" mapstructure:"email"`
	Role     model.UserRole `json:"role" mapstructure:"role"`
	Name     string         `json:"name" mapstructure:"name"`
	Language string         `json:"language" mapstructure:"language"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Role     model.UserRole
	Language string
}

type Gateway interface {
	// Verify returns the identity behind a bearer token or util.ErrUnauthorized.
	Verify(ctx context.Context, token string) (*Identity, error)
	// SignUp registers credentials. Session is nil when the provider
	// requires confirmation before issuing tokens.
	SignUp(ctx context.Context, in SignUpInput) (*Identity, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Identity, *Session, error)
}

// New builds the gateway selected by cfg.Auth.Provider. rdb may be nil.
func New(cfg *config.Config, credentials *repository.CredentialRepository, rdb *redis.Client) (Gateway, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderLocal:
		return NewLocalGateway(credentials, cfg.Auth.JWTSecret, cfg.Auth.ExpireTime), nil
	case config.AuthProviderRemote:
		var cache TokenCache
		if rdb != nil {
			cache = NewRedisTokenCache(rdb)
		}
		ttl := time.Duration(cfg.Auth.CacheTTLSeconds) * time.Second
		return NewRemoteGateway(cfg.Auth.BaseURL, cfg.Auth.APIKey, cache, ttl), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
