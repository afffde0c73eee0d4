package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleLearner  = "learner"
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

// OTPValidity is how long an emailed one-time passcode stays usable.
const OTPValidity = 10 * time.Minute

// ResetTokenValidity is how long an emailed password-reset link stays usable.
const ResetTokenValidity = time.Hour

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username    string    `gorm:"size:30;not null;unique" json:"username"`
	Email       string    `gorm:"size:255;not null;unique" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	Role        string    `gorm:"size:20;not null;default:'learner'" json:"role"`
	FieldOfWork string    `gorm:"size:255;not null" json:"field_of_work"`
	Goal        string    `gorm:"type:text;not null" json:"goal"`

	// Avatar is stored inline rather than as a file reference.
	Avatar     []byte `gorm:"type:bytea" json:"-"`
	AvatarType string `gorm:"size:100" json:"-"`

	IsVerified   bool       `gorm:"default:false" json:"is_verified"`
	OTP          *string    `gorm:"size:6" json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	ResetPasswordToken     *string    `gorm:"size:255;unique" json:"-"`
	ResetPasswordExpiresAt *time.Time `json:"-"`

	Language         string `gorm:"size:100;not null;default:'C++'" json:"language"`
	ExplanationStyle string `gorm:"size:20;not null;default:'bullet'" json:"explanation_style"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleLearner
	}
	if u.Language == "" {
		u.Language = "C++"
	}
	if u.ExplanationStyle == "" {
		u.ExplanationStyle = "bullet"
	}
	return nil
}

func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}
