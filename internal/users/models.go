package users

import (
	"errors"
	"strings"
	"time"

	"github.com/Tosino95/natours/internal/query"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var validRoles = map[string]struct{}{
	RoleUser:      {},
	RoleGuide:     {},
	RoleLeadGuide: {},
	RoleAdmin:     {},
}

// User is an account record. The password hash and reset-token fields never
// serialize outward; soft deletion flips Active instead of removing the row.
type User struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"not null;uniqueIndex" json:"email"`
	Photo string `gorm:"default:'default.jpg'" json:"photo"`
	Role  string `gorm:"default:'user'" json:"role"`

	// Password and PasswordConfirm are input-only; only the hash persists.
	Password        string `gorm:"-" json:"password,omitempty"`
	PasswordConfirm string `gorm:"-" json:"passwordConfirm,omitempty"`

	PasswordHash           string     `gorm:"not null" json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpires   *time.Time `json:"-"`

	Active *bool `gorm:"not null;default:true" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "natours.users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// Validate checks the materialized record's constraints.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("please tell us your name")
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" || !strings.Contains(email, "@") || strings.Contains(email, " ") {
		return errors.New("please provide a valid email")
	}
	if u.Role != "" {
		if _, ok := validRoles[u.Role]; !ok {
			return errors.New("role must be one of: user, guide, lead-guide, admin")
		}
	}
	return nil
}

// ValidatePassword enforces the signup/password-change rules on the plaintext
// inputs.
func (u *User) ValidatePassword() error {
	if len(u.Password) < 8 {
		return errors.New("please provide a password of at least 8 characters")
	}
	if u.Password != u.PasswordConfirm {
		return errors.New("passwords do not match")
	}
	return nil
}

// SetPassword hashes the plaintext with cost 12 and clears the inputs.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.Password = ""
	u.PasswordConfirm = ""
	return nil
}

// CorrectPassword compares a candidate against the stored hash.
func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// MarkPasswordChanged stamps the change one second in the past so a token
// minted in the same second as the change itself stays valid.
func (u *User) MarkPasswordChanged() {
	t := time.Now().Add(-1 * time.Second)
	u.PasswordChangedAt = &t
}

// AuthUser is the context representation handed to middleware and handlers.
func (u *User) AuthUser() utils.AuthUser {
	return utils.AuthUser{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		PasswordChangedAt: u.PasswordChangedAt,
	}
}

// Schema exposes users to the query pipeline. The base filter hides
// soft-deleted accounts from every default read; credential columns can never
// be selected.
func Schema() query.Schema {
	return query.Schema{
		Columns: map[string]string{
			"id":        "id",
			"name":      "name",
			"email":     "email",
			"photo":     "photo",
			"role":      "role",
			"createdAt": "created_at",
		},
		Excluded: []string{"password_hash", "password_reset_token_hash", "password_reset_expires"},
		BaseFilter: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("active = ?", true)
		},
		DefaultSort: "created_at DESC",
	}
}
