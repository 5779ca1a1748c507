package dbmysql

import (
	"time"

	"linkcamp/internal/common"
)

type Profile struct {
	ID         uint64             `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	Email      string             `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Name       string             `gorm:"column:name;size:100;index" json:"name"`
	Photo      string             `gorm:"column:photo;size:512" json:"photo"`
	Role       common.Role        `gorm:"column:user_type;size:16;not null;default:'member';index" json:"userType"`
	Verify     common.VerifyState `gorm:"column:verify;size:16;not null;default:'pending';index" json:"verify"`
	Gender     string             `gorm:"column:gender;size:32" json:"gender,omitempty"`
	UserCode   string             `gorm:"column:user_code;size:64" json:"user_id,omitempty"`
	Department string             `gorm:"column:department;size:128" json:"department,omitempty"`
	Session    string             `gorm:"column:session;size:64" json:"session,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Summary is the author block attached to feed items and comments.
func (p *Profile) Summary() *AuthorSummary {
	if p == nil {
		return nil
	}
	return &AuthorSummary{Name: p.Name, Photo: p.Photo, UserType: p.Role}
}

type AuthorSummary struct {
	Name     string      `json:"name"`
	Photo    string      `json:"photo"`
	UserType common.Role `json:"user_type"`
}
