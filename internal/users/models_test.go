package users

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func validUser() User {
	return User{
		Name:            "Jonas Schmedtmann",
		Email:           "jonas@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	}
}

func TestUserValidate(t *testing.T) {
	user := validUser()
	require.NoError(t, user.Validate())

	user.Name = "  "
	assert.Error(t, user.Validate())

	user = validUser()
	user.Email = "not-an-email"
	assert.Error(t, user.Validate())

	user = validUser()
	user.Role = "superadmin"
	assert.Error(t, user.Validate())

	user = validUser()
	user.Role = RoleLeadGuide
	assert.NoError(t, user.Validate())
}

func TestValidatePassword(t *testing.T) {
	user := validUser()
	require.NoError(t, user.ValidatePassword())

	user.Password = "short"
	user.PasswordConfirm = "short"
	assert.Error(t, user.ValidatePassword())

	user = validUser()
	user.PasswordConfirm = "different1234"
	assert.Error(t, user.ValidatePassword())
}

func TestSetPassword(t *testing.T) {
	user := validUser()

	require.NoError(t, user.SetPassword("pass1234"))

	// The plaintext inputs are cleared and only the hash remains.
	assert.Empty(t, user.Password)
	assert.Empty(t, user.PasswordConfirm)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "pass1234", user.PasswordHash)

	assert.True(t, user.CorrectPassword("pass1234"))
	assert.False(t, user.CorrectPassword("wrongpass"))
}

func TestMarkPasswordChanged_Backdates(t *testing.T) {
	user := validUser()

	before := time.Now()
	user.MarkPasswordChanged()

	require.NotNil(t, user.PasswordChangedAt)
	// Stamped in the past so a token minted in the same second stays valid.
	assert.True(t, user.PasswordChangedAt.Before(before))
}

func TestBeforeCreate_NormalizesEmail(t *testing.T) {
	user := validUser()
	user.Email = "  Jonas@Example.COM "

	require.NoError(t, user.BeforeCreate(nil))

	assert.Equal(t, "jonas@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
}

// Credential fields must never appear in an externally observable
// representation.
func TestUserJSON_NeverLeaksCredentials(t *testing.T) {
	user := validUser()
	require.NoError(t, user.SetPassword("pass1234"))
	user.PasswordResetTokenHash = "abc123"

	out := marshal(t, &user)

	assert.NotContains(t, out, user.PasswordHash)
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "passwordHash")
	assert.NotContains(t, out, "active")
}

func TestUserSchema_ExcludesCredentialColumns(t *testing.T) {
	s := Schema()

	assert.Contains(t, s.Excluded, "password_hash")
	assert.Contains(t, s.Excluded, "password_reset_token_hash")
	_, ok := s.Columns["passwordHash"]
	assert.False(t, ok)
	assert.NotNil(t, s.BaseFilter)
}
