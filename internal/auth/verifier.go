// Package auth resolves bearer credentials into campus identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"linkcamp/internal/common"
	"linkcamp/internal/config"
)

// VerifiedToken is what an identity provider vouches for.
type VerifiedToken struct {
	UID   string
	Email string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*VerifiedToken, error)
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFilePath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFilePath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase initialization failed: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*VerifiedToken, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("token has no email claim")
	}
	return &VerifiedToken{UID: tok.UID, Email: common.NormalizeEmail(email)}, nil
}

// JWTVerifier checks locally issued HS256 tokens.
type JWTVerifier struct {
	manager *common.JWTManager
}

func NewJWTVerifier(manager *common.JWTManager) *JWTVerifier {
	return &JWTVerifier{manager: manager}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*VerifiedToken, error) {
	claims, err := v.manager.ValidToken(token)
	if err != nil {
		return nil, err
	}
	return &VerifiedToken{UID: claims.Subject, Email: claims.Email}, nil
}

// NewVerifier picks the verifier named by cfg.Auth.Mode.
func NewVerifier(ctx context.Context, cfg *config.Config, manager *common.JWTManager, log *slog.Logger) (TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		log.Info("identity verifier: firebase", "project", cfg.Firebase.ProjectID)
		return NewFirebaseVerifier(ctx, cfg.Firebase)
	case config.AuthModeJWT:
		log.Warn("identity verifier: local jwt; use firebase in production")
		return NewJWTVerifier(manager), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
