package models

import (
	"strings"
	"time"

	"equiherds-backend/auth"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account types a user may register as.
const (
	RoleUser        = "user"
	RoleSeller      = "seller"
	RoleStableOwner = "stable_owner"
)

type User struct {
	Id           string            `json:"id" gorm:"primaryKey"`
	FirstName    string            `json:"first_name" gorm:"not null"`
	LastName     string            `json:"last_name" gorm:"not null"`
	Email        string            `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string            `json:"-" gorm:"not null"`
	Role         string            `json:"role" gorm:"not null;default:user"`
	Profile      datatypes.JSONMap `json:"profile,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = RoleUser
	}
	return
}

func (user *User) SetPassword(h *auth.PasswordHasher, password string) error {
	hash, err := h.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

func (user *User) ComparePassword(h *auth.PasswordHasher, password string) bool {
	return h.Verify(password, user.PasswordHash)
}

func (user *User) FullName() string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
