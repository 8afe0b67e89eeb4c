package authgateway

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/database"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupLocalGateway(t *testing.T) *LocalGateway {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "auth.db"),
	}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewLocalGateway(repository.NewCredentialRepository(db), testSecret, time.Hour)
}

func TestLocalGatewayRoundTrip(t *testing.T) {
	gw := setupLocalGateway(t)
	ctx := context.Background()

	identity, session, err := gw.SignUp(ctx, SignUpInput{
		Email: " Grace@Example.org ", Password: "s3cret-pass", Name: "Grace", Role: model.Teacher,
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if identity.Email != "grace@example.org" || identity.Role != model.Teacher {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	verified, err := gw.Verify(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.ID != identity.ID || verified.Role != model.Teacher {
		t.Fatalf("verify returned %+v", verified)
	}

	if _, _, err := gw.SignUp(ctx, SignUpInput{Email: "grace@example.org", Password: "other-pass"}); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}

	signedIn, session, err := gw.SignIn(ctx, "GRACE@example.org", "s3cret-pass")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signedIn.ID != identity.ID || session.AccessToken == "" {
		t.Fatalf("sign in returned %+v / %+v", signedIn, session)
	}

	if _, _, err := gw.SignIn(ctx, "grace@example.org", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for a bad password, got %v", err)
	}
	if _, _, err := gw.SignIn(ctx, "nobody@example.org", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for an unknown email, got %v", err)
	}
}

func TestLocalGatewayRejectsForeignTokens(t *testing.T) {
	gw := setupLocalGateway(t)

	token, _, err := util.GenerateJWT("U1", "u1@example.org", "student", "some-other-secret-some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := gw.Verify(context.Background(), token); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	expired, _, err := util.GenerateJWT("U1", "u1@example.org", "student", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := gw.Verify(context.Background(), expired); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for an expired token, got %v", err)
	}
}
