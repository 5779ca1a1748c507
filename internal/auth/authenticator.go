package auth

import (
	"context"
	"log/slog"
	"slices"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmysql"
)

// ProfileFinder returns a NotFound AppError when no profile exists.
type ProfileFinder interface {
	ByEmail(ctx context.Context, email string) (*dbmysql.Profile, error)
}

// Options narrow who may pass.
type Options struct {
	Roles           []common.Role
	RequireApproved bool
}

var (
	Any      = Options{}
	Approved = Options{RequireApproved: true}
	Admin    = Options{Roles: []common.Role{common.RoleAdmin}}
)

type Authenticator struct {
	verifier TokenVerifier
	profiles ProfileFinder
	log      *slog.Logger
}

func NewAuthenticator(verifier TokenVerifier, profiles ProfileFinder, log *slog.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, profiles: profiles, log: log}
}

// Authenticate verifies token, loads the caller's profile and applies opts.
func (a *Authenticator) Authenticate(ctx context.Context, token string, opts Options) (common.Actor, error) {
	if token == "" {
		return common.Actor{}, common.NewAuthenticationError("No token provided")
	}

	verified, err := a.verifier.Verify(ctx, token)
	if err != nil {
		a.log.DebugContext(ctx, "token rejected", "error", err)
		return common.Actor{}, common.NewAuthenticationError("Invalid or expired token")
	}

	profile, err := a.profiles.ByEmail(ctx, verified.Email)
	if err != nil {
		if common.KindOf(err) == common.KindNotFound {
			return common.Actor{}, common.NewNotFoundError("User not found")
		}
		return common.Actor{}, err
	}

	actor := common.Actor{
		UID:       verified.UID,
		Email:     verified.Email,
		Role:      profile.Role,
		Verify:    profile.Verify,
		ProfileID: profile.ID,
	}
	if err := Authorize(actor, opts); err != nil {
		return common.Actor{}, err
	}
	return actor, nil
}

// Authorize applies account-state and role checks in order: blocked, pending, role.
func Authorize(actor common.Actor, opts Options) error {
	if actor.Verify == common.VerifyBlocked {
		return common.ErrBlocked
	}
	if opts.RequireApproved && !actor.IsAdmin() && actor.Verify != common.VerifyApproved {
		return common.ErrPending
	}
	if len(opts.Roles) > 0 && !slices.Contains(opts.Roles, actor.Role) {
		return common.NewAuthorizationError("", "User does not have required role")
	}
	return nil
}
