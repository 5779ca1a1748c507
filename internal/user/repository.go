package user

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmysql"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=user

// ListFilter drives the admin user listing.
type ListFilter struct {
	Role   common.Role
	Verify common.VerifyState
	Page   int
	Limit  int
	Desc   bool
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *dbmysql.Profile) error
	ByEmail(ctx context.Context, email string) (*dbmysql.Profile, error)
	ByID(ctx context.Context, id uint64) (*dbmysql.Profile, error)
	ByEmails(ctx context.Context, emails []string) ([]dbmysql.Profile, error)
	Update(ctx context.Context, email string, fields map[string]interface{}) error
	UpdateByID(ctx context.Context, id uint64, fields map[string]interface{}) error
	List(ctx context.Context, filter ListFilter) ([]dbmysql.Profile, int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *dbmysql.Profile) error {
	err := r.db.WithContext(ctx).Create(profile).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.NewConflictError("User already exists")
	}
	if err != nil {
		return common.NewStorageError("create profile", err)
	}
	return nil
}

func (r *profileRepository) ByEmail(ctx context.Context, email string) (*dbmysql.Profile, error) {
	var profile dbmysql.Profile
	err := r.db.WithContext(ctx).Where("email = ?", common.NormalizeEmail(email)).First(&profile).Error
	return r.found(&profile, err)
}

func (r *profileRepository) ByID(ctx context.Context, id uint64) (*dbmysql.Profile, error) {
	var profile dbmysql.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	return r.found(&profile, err)
}

func (r *profileRepository) found(profile *dbmysql.Profile, err error) (*dbmysql.Profile, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, common.NewStorageError("find profile", err)
	}
	return profile, nil
}

// ByEmails loads every profile in one query; unknown emails are skipped.
func (r *profileRepository) ByEmails(ctx context.Context, emails []string) ([]dbmysql.Profile, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var profiles []dbmysql.Profile
	if err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&profiles).Error; err != nil {
		return nil, common.NewStorageError("find profiles", err)
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, email string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbmysql.Profile{}).
		Where("email = ?", common.NormalizeEmail(email)).
		Updates(fields)
	return r.updated(res)
}

func (r *profileRepository) UpdateByID(ctx context.Context, id uint64, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbmysql.Profile{}).Where("id = ?", id).Updates(fields)
	return r.updated(res)
}

func (r *profileRepository) updated(res *gorm.DB) error {
	if res.Error != nil {
		return common.NewStorageError("update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewNotFoundError("User not found")
	}
	return nil
}

func (r *profileRepository) List(ctx context.Context, filter ListFilter) ([]dbmysql.Profile, int64, error) {
	q := r.db.WithContext(ctx).Model(&dbmysql.Profile{})
	if filter.Role != "" {
		q = q.Where("user_type = ?", filter.Role)
	}
	if filter.Verify != "" {
		q = q.Where("verify = ?", filter.Verify)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, common.NewStorageError("count profiles", err)
	}

	order := "name asc"
	if filter.Desc {
		order = "name desc"
	}

	var profiles []dbmysql.Profile
	err := q.Order(order).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, common.NewStorageError("list profiles", err)
	}
	return profiles, total, nil
}
