package service

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/authgateway"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// AuthService fronts the auth gateway and keeps the profile table in step
// with the identities it vouches for.
type AuthService struct {
	Gateway         authgateway.Gateway
	UserRepo        *repository.UserRepository
	DefaultLanguage string
}

func NewAuthService(gateway authgateway.Gateway, userRepo *repository.UserRepository, defaultLanguage string) *AuthService {
	return &AuthService{
		Gateway:         gateway,
		UserRepo:        userRepo,
		DefaultLanguage: defaultLanguage,
	}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=student teacher"`
	Language string `json:"language"`
}

func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*model.User, *authgateway.Session, error) {
	identity, session, err := s.Gateway.SignUp(ctx, authgateway.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     model.UserRole(req.Role),
		Language: s.language(req.Language),
	})
	if err != nil {
		return nil, nil, err
	}

	user, err := s.mirror(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login signs in through the gateway and returns the access token with the
// caller's profile, creating the profile if the provider knew the user first.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	identity, session, err := s.Gateway.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	user, err := s.UserRepo.FindByID(ctx, identity.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.mirror(ctx, identity)
	}
	if err != nil {
		return "", nil, err
	}
	return session.AccessToken, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *AuthService) mirror(ctx context.Context, identity *authgateway.Identity) (*model.User, error) {
	role := identity.Role
	if !role.Valid() {
		role = model.Student
	}
	user := &model.User{
		UUIDBase: model.UUIDBase{ID: identity.ID},
		Name:     identity.Name,
		Email:    identity.Email,
		Role:     role,
		Language: s.language(identity.Language),
	}
	if err := s.UserRepo.CreateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, identity.ID)
}

func (s *AuthService) language(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return s.DefaultLanguage
	}
	return lang
}
