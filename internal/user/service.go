package user

import (
	"context"
	"log/slog"
	"strings"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/realtime"
)

type RegisterInput struct {
	Email      string
	Name       string
	Gender     string
	UserType   string
	UserCode   string
	Department string
	Session    string
	Photo      string
}

// ProfileUpdate carries the optional fields of PATCH /user/profile. Nil means untouched.
type ProfileUpdate struct {
	Name       *string
	Gender     *string
	UserType   *string
	UserCode   *string
	Department *string
	Session    *string
	Verify     *string
	Photo      *string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*dbmysql.Profile, error)
	Exists(ctx context.Context, email string) error
	Get(ctx context.Context, email string) (*dbmysql.Profile, error)
	UpdateName(ctx context.Context, actor common.Actor, name string) error
	UpdatePhoto(ctx context.Context, actor common.Actor, photoURL string) error
	UpdateProfile(ctx context.Context, actor common.Actor, upd ProfileUpdate) (*dbmysql.Profile, error)
	List(ctx context.Context, filter ListFilter) ([]dbmysql.Profile, int64, error)
	GetByID(ctx context.Context, id uint64) (*dbmysql.Profile, error)
	SetVerify(ctx context.Context, id uint64, verify string, role *string) error
	Summaries(ctx context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error)
}

type service struct {
	repo      ProfileRepository
	publisher common.Publisher
	log       *slog.Logger
}

func NewService(repo ProfileRepository, publisher common.Publisher, log *slog.Logger) Service {
	return &service{repo: repo, publisher: publisher, log: log}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*dbmysql.Profile, error) {
	email := common.NormalizeEmail(in.Email)
	if err := common.ValidateEmail(email); err != nil {
		return nil, err
	}

	role := common.RoleMember
	if strings.TrimSpace(in.UserType) != "" {
		r, ok := common.ParseRole(in.UserType)
		if !ok {
			return nil, common.NewValidationError("Invalid userType")
		}
		role = r
	}
	// admins are promoted, never self-registered
	if role == common.RoleAdmin {
		return nil, common.NewAuthorizationError("", "Cannot register as admin")
	}

	profile := &dbmysql.Profile{
		Email:      email,
		Name:       strings.TrimSpace(in.Name),
		Photo:      in.Photo,
		Role:       role,
		Verify:     common.VerifyPending,
		Gender:     strings.TrimSpace(in.Gender),
		UserCode:   strings.TrimSpace(in.UserCode),
		Department: strings.TrimSpace(in.Department),
		Session:    strings.TrimSpace(in.Session),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "profile registered", "email", email, "role", role)
	return profile, nil
}

func (s *service) Exists(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return common.NewValidationError("Email is required")
	}
	_, err := s.repo.ByEmail(ctx, email)
	return err
}

func (s *service) Get(ctx context.Context, email string) (*dbmysql.Profile, error) {
	return s.repo.ByEmail(ctx, email)
}

func (s *service) UpdateName(ctx context.Context, actor common.Actor, name string) error {
	if err := common.ValidateName(name); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, actor.Email, map[string]interface{}{"name": strings.TrimSpace(name)}); err != nil {
		return err
	}
	s.emitUpdated(ctx, actor.Email)
	return nil
}

func (s *service) UpdatePhoto(ctx context.Context, actor common.Actor, photoURL string) error {
	if photoURL == "" {
		return common.NewValidationError("Photo upload failed")
	}
	if err := s.repo.Update(ctx, actor.Email, map[string]interface{}{"photo": photoURL}); err != nil {
		return err
	}
	s.emitUpdated(ctx, actor.Email)
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, actor common.Actor, upd ProfileUpdate) (*dbmysql.Profile, error) {
	fields := map[string]interface{}{}

	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		if err := common.ValidateName(*upd.Name); err != nil {
			return nil, err
		}
		fields["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Gender != nil && strings.TrimSpace(*upd.Gender) != "" {
		fields["gender"] = strings.TrimSpace(*upd.Gender)
	}
	if upd.UserCode != nil {
		fields["user_code"] = strings.TrimSpace(*upd.UserCode)
	}
	if upd.Department != nil {
		fields["department"] = strings.TrimSpace(*upd.Department)
	}
	if upd.Session != nil {
		fields["session"] = strings.TrimSpace(*upd.Session)
	}
	if upd.Photo != nil && *upd.Photo != "" {
		fields["photo"] = *upd.Photo
	}

	// role and approval are admin-controlled
	if actor.IsAdmin() {
		if upd.UserType != nil && strings.TrimSpace(*upd.UserType) != "" {
			role, ok := common.ParseRole(*upd.UserType)
			if !ok {
				return nil, common.NewValidationError("Invalid userType")
			}
			fields["user_type"] = role
		}
		if upd.Verify != nil && *upd.Verify != "" {
			v := common.VerifyState(*upd.Verify)
			if !v.IsValid() {
				return nil, common.NewValidationError("Invalid verify state")
			}
			fields["verify"] = v
		}
	} else if upd.UserType != nil || upd.Verify != nil {
		s.log.DebugContext(ctx, "ignoring role/verify change from non-admin", "email", actor.Email)
	}

	if len(fields) == 0 {
		return nil, common.NewValidationError("No fields to update")
	}

	if err := s.repo.Update(ctx, actor.Email, fields); err != nil {
		return nil, err
	}
	return s.emitUpdated(ctx, actor.Email), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]dbmysql.Profile, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *service) GetByID(ctx context.Context, id uint64) (*dbmysql.Profile, error) {
	return s.repo.ByID(ctx, id)
}

func (s *service) SetVerify(ctx context.Context, id uint64, verify string, role *string) error {
	v := common.VerifyState(strings.TrimSpace(verify))
	if !v.IsValid() {
		return common.NewValidationError("Invalid verify state")
	}
	fields := map[string]interface{}{"verify": v}
	if role != nil && strings.TrimSpace(*role) != "" {
		r, ok := common.ParseRole(*role)
		if !ok {
			return common.NewValidationError("Invalid userType")
		}
		fields["user_type"] = r
	}
	if err := s.repo.UpdateByID(ctx, id, fields); err != nil {
		return err
	}
	if profile, err := s.repo.ByID(ctx, id); err == nil {
		s.publish(profile)
	}
	return nil
}

// Summaries resolves author summaries for a page of items in a single query.
func (s *service) Summaries(ctx context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error) {
	seen := make(map[string]bool, len(emails))
	unique := make([]string, 0, len(emails))
	for _, e := range emails {
		e = common.NormalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		unique = append(unique, e)
	}

	out := make(map[string]*dbmysql.AuthorSummary, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	profiles, err := s.repo.ByEmails(ctx, unique)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		out[common.NormalizeEmail(profiles[i].Email)] = profiles[i].Summary()
	}
	return out, nil
}

func (s *service) emitUpdated(ctx context.Context, email string) *dbmysql.Profile {
	profile, err := s.repo.ByEmail(ctx, email)
	if err != nil {
		s.log.WarnContext(ctx, "reload after profile update failed", "email", email, "error", err)
		return nil
	}
	s.publish(profile)
	return profile
}

func (s *service) publish(p *dbmysql.Profile) {
	name, photo, role := p.Name, p.Photo, string(p.Role)
	s.publisher.Publish(realtime.UserUpdatedEvent(realtime.UserUpdatedPayload{
		Email:    p.Email,
		Name:     &name,
		Photo:    &photo,
		UserType: &role,
	}))
}
