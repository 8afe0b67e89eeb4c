package authgateway

import (
	"bytes"
	"context"
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/logger"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// RemoteGateway delegates to a GoTrue-compatible identity provider.
type RemoteGateway struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	Cache    TokenCache
	CacheTTL time.Duration
}

func NewRemoteGateway(baseURL, apiKey string, cache TokenCache, cacheTTL time.Duration) *RemoteGateway {
	return &RemoteGateway{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Cache:    cache,
		CacheTTL: cacheTTL,
	}
}

// statusError is a non-2xx answer from the provider.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("auth provider returned %d: %s", e.Status, e.Body)
}

type remoteUser struct {
	ID           string                 `mapstructure:"id"`
	Email        string                 `mapstructure:"email"`
	UserMetadata map[string]interface{} `mapstructure:"user_metadata"`
}

type remoteSession struct {
	AccessToken string     `mapstructure:"access_token"`
	ExpiresIn   int64      `mapstructure:"expires_in"`
	User        remoteUser `mapstructure:"user"`
}

func (u remoteUser) identity() *Identity {
	identity := &Identity{ID: u.ID, Email: u.Email}
	if u.UserMetadata != nil {
		// metadata carries name, role and language as set at sign-up
		if err := mapstructure.WeakDecode(u.UserMetadata, identity); err != nil {
			logger.Log.Warn("decode user metadata", zap.String("user_id", u.ID), zap.Error(err))
		}
		identity.ID = u.ID
		identity.Email = u.Email
	}
	return identity
}

func (s remoteSession) session() *Session {
	if s.AccessToken == "" {
		return nil
	}
	return &Session{
		AccessToken: s.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(s.ExpiresIn) * time.Second),
	}
}

func (g *RemoteGateway) sendRequest(ctx context.Context, method, path, bearer string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.APIKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Log.Warn("close auth provider response", zap.Error(closeErr))
		}
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Status: resp.StatusCode, Body: string(responseBody)}
	}

	var responseMap map[string]interface{}
	if err := json.Unmarshal(responseBody, &responseMap); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return responseMap, nil
}

func (g *RemoteGateway) Verify(ctx context.Context, token string) (*Identity, error) {
	if g.Cache != nil {
		if identity, ok := g.Cache.Get(ctx, token); ok {
			return identity, nil
		}
	}

	data, err := g.sendRequest(ctx, http.MethodGet, "/auth/v1/user", token, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			return nil, util.ErrUnauthorized
		}
		return nil, err
	}

	var user remoteUser
	if err := mapstructure.Decode(data, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, util.ErrUnauthorized
	}

	identity := user.identity()
	if g.Cache != nil && g.CacheTTL > 0 {
		g.Cache.Set(ctx, token, identity, g.CacheTTL)
	}
	return identity, nil
}

func (g *RemoteGateway) SignUp(ctx context.Context, in SignUpInput) (*Identity, *Session, error) {
	body := map[string]interface{}{
		"email":    in.Email,
		"password": in.Password,
		"data": map[string]interface{}{
			"name":     in.Name,
			"role":     string(in.Role),
			"language": in.Language,
		},
	}

	data, err := g.sendRequest(ctx, http.MethodPost, "/auth/v1/signup", "", body)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			msg := strings.ToLower(se.Body)
			if strings.Contains(msg, "already registered") {
				return nil, nil, util.ErrEmailRegistered
			}
			if strings.Contains(msg, "signup_disabled") || strings.Contains(msg, "signups not allowed") {
				return nil, nil, util.ErrNotSupported
			}
		}
		return nil, nil, err
	}

	// With email confirmation on, the provider answers with a bare user.
	if _, ok := data["access_token"]; !ok {
		var user remoteUser
		if err := mapstructure.Decode(data, &user); err != nil {
			return nil, nil, fmt.Errorf("decode user: %w", err)
		}
		return withSignUpDefaults(user.identity(), in), nil, nil
	}

	var session remoteSession
	if err := mapstructure.WeakDecode(data, &session); err != nil {
		return nil, nil, fmt.Errorf("decode session: %w", err)
	}
	return withSignUpDefaults(session.User.identity(), in), session.session(), nil
}

func withSignUpDefaults(identity *Identity, in SignUpInput) *Identity {
	if identity.Role == "" {
		identity.Role = in.Role
	}
	if identity.Name == "" {
		identity.Name = in.Name
	}
	if identity.Language == "" {
		identity.Language = in.Language
	}
	return identity
}

func (g *RemoteGateway) SignIn(ctx context.Context, email, password string) (*Identity, *Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}

	data, err := g.sendRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
			return nil, nil, util.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	var session remoteSession
	if err := mapstructure.WeakDecode(data, &session); err != nil {
		return nil, nil, fmt.Errorf("decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, nil, util.ErrInvalidCredentials
	}
	return session.User.identity(), session.session(), nil
}

var (
	_ Gateway = (*RemoteGateway)(nil)
	_ Gateway = (*LocalGateway)(nil)
)
