package authgateway

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/util"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LocalGateway keeps bcrypt credentials in the service database and signs
// HS256 tokens itself. It stands in for a hosted provider in development.
type LocalGateway struct {
	Credentials *repository.CredentialRepository
	Secret      string
	Expiration  time.Duration
}

func NewLocalGateway(credentials *repository.CredentialRepository, secret string, expiration time.Duration) *LocalGateway {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &LocalGateway{
		Credentials: credentials,
		Secret:      secret,
		Expiration:  expiration,
	}
}

func (g *LocalGateway) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := util.ParseJWT(token, g.Secret)
	if err != nil {
		return nil, util.ErrUnauthorized
	}
	return &Identity{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  model.UserRole(claims.Role),
	}, nil
}

func (g *LocalGateway) SignUp(ctx context.Context, in SignUpInput) (*Identity, *Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	_, err := g.Credentials.FindByEmail(ctx, email)
	if err == nil {
		return nil, nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	cred := &model.Credential{
		UserID:       model.GenerateUUID(),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := g.Credentials.Create(ctx, cred); err != nil {
		return nil, nil, err
	}

	identity := &Identity{
		ID:       cred.UserID,
		Email:    email,
		Role:     in.Role,
		Name:     in.Name,
		Language: in.Language,
	}
	session, err := g.issue(identity)
	if err != nil {
		return nil, nil, err
	}
	return identity, session, nil
}

// SignIn issues a token without a role; authorization reads the role from
// the profile table.
func (g *LocalGateway) SignIn(ctx context.Context, email, password string) (*Identity, *Session, error) {
	cred, err := g.Credentials.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, nil, util.ErrInvalidCredentials
	}

	identity := &Identity{ID: cred.UserID, Email: cred.Email}
	session, err := g.issue(identity)
	if err != nil {
		return nil, nil, err
	}
	return identity, session, nil
}

func (g *LocalGateway) issue(identity *Identity) (*Session, error) {
	token, expiresAt, err := util.GenerateJWT(identity.ID, identity.Email, string(identity.Role), g.Secret, g.Expiration)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresAt: expiresAt}, nil
}
