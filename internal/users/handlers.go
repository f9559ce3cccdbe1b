package users

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/config"
	"github.com/Tosino95/natours/internal/mail"
	"github.com/Tosino95/natours/internal/storage"
	"github.com/Tosino95/natours/internal/token"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Handler carries the injected collaborators for the account flows.
type Handler struct {
	DB     *gorm.DB
	Tokens *token.Service
	Mailer mail.Sender
	Photos *storage.PhotoStore
	Cfg    config.Config
}

// active scopes every default read to non-deleted accounts.
func active(tx *gorm.DB) *gorm.DB { return tx.Where("active = ?", true) }

type authResponse struct {
	Status string         `json:"status"`
	Token  string         `json:"token"`
	Data   map[string]any `json:"data"`
}

// sendToken issues a JWT, mirrors it into the jwt cookie and writes the auth
// envelope with the user (credentials already stripped by json tags).
func (h *Handler) sendToken(w http.ResponseWriter, status int, user *User) {
	tok, err := h.Tokens.Issue(user.ID)
	if err != nil {
		apperror.Respond(w, apperror.Internal("signing token", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(h.Cfg.CookieExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.Env == config.EnvProduction,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authResponse{
		Status: "success",
		Token:  tok,
		Data:   map[string]any{"user": user},
	})
}

// Signup creates an account, sends the welcome email and logs the user in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var user User
	if err := utils.DecodeJSON(r, &user); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	// Role is never taken from the signup payload.
	user.Role = RoleUser

	if err := user.ValidatePassword(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}
	if err := user.Validate(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}
	if err := user.SetPassword(user.Password); err != nil {
		apperror.Respond(w, apperror.Internal("hashing password", err))
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}

	url := fmt.Sprintf("%s://%s/me", scheme(r), r.Host)
	if err := mail.SendWelcome(r.Context(), h.Mailer, recipient(&user), url); err != nil {
		log.Printf("[users] welcome email to %s failed: %v", user.Email, err)
	}

	h.sendToken(w, http.StatusCreated, &user)
}

// Login verifies credentials and issues a fresh token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	if input.Email == "" || input.Password == "" {
		apperror.Respond(w, apperror.Validation("Please provide email and password!"))
		return
	}

	var user User
	err := active(h.DB).First(&user, "email = ?", strings.ToLower(input.Email)).Error
	if err != nil || !user.CorrectPassword(input.Password) {
		apperror.Respond(w, apperror.Unauthorized("Incorrect email or password"))
		return
	}

	h.sendToken(w, http.StatusOK, &user)
}

// Logout replaces the jwt cookie with a short-lived dummy value.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	utils.Success(w, http.StatusOK, nil)
}

// GetMe returns the authenticated user's own record.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	var user User
	if err := active(h.DB).First(&user, "id = ?", current.ID).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateMe lets users change their own name, email and photo. Password data
// is rejected here; /updateMyPassword owns that flow.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	name, email, photo, err := h.parseUpdateMe(r, current.ID)
	if err != nil {
		apperror.Respond(w, err)
		return
	}

	var user User
	if err := active(h.DB).First(&user, "id = ?", current.ID).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if photo != "" {
		user.Photo = photo
	}
	if err := user.Validate(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}

	if err := h.DB.Save(&user).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"user": user})
}

// parseUpdateMe accepts either a JSON body or a multipart form with an
// optional photo upload. Only image uploads are accepted.
func (h *Handler) parseUpdateMe(r *http.Request, userID string) (name, email, photo string, err error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var input struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"passwordConfirm"`
		}
		if decodeErr := utils.DecodeJSON(r, &input); decodeErr != nil {
			return "", "", "", apperror.Wrap(apperror.KindValidation, "invalid request body", decodeErr)
		}
		if input.Password != "" || input.PasswordConfirm != "" {
			return "", "", "", apperror.Validation("This route is not for password updates. Please use /updateMyPassword")
		}
		return input.Name, input.Email, "", nil
	}

	if parseErr := r.ParseMultipartForm(10 << 20); parseErr != nil {
		return "", "", "", apperror.Wrap(apperror.KindValidation, "invalid multipart form", parseErr)
	}
	if r.FormValue("password") != "" || r.FormValue("passwordConfirm") != "" {
		return "", "", "", apperror.Validation("This route is not for password updates. Please use /updateMyPassword")
	}
	name = r.FormValue("name")
	email = r.FormValue("email")

	file, _, fileErr := r.FormFile("photo")
	if fileErr != nil {
		return name, email, "", nil // photo is optional
	}
	defer file.Close()

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		return "", "", "", apperror.Internal("reading upload", readErr)
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", "", "", apperror.Validation("Not an image! Please upload only images.")
	}
	photo, saveErr := h.Photos.Save("users", "user", userID, data)
	if saveErr != nil {
		return "", "", "", apperror.Internal("storing photo", saveErr)
	}
	return name, email, photo, nil
}

// DeleteMe soft-deletes the account: the row stays, active flips to false and
// the user disappears from default reads.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	err := h.DB.Model(&User{}).Where("id = ?", current.ID).Update("active", false).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}
	utils.NoContent(w)
}

// UpdatePassword changes the password of a logged-in user after re-checking
// the current one, then issues a fresh token.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	var input struct {
		PasswordCurrent string `json:"passwordCurrent"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}

	var user User
	if err := active(h.DB).First(&user, "id = ?", current.ID).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}
	if !user.CorrectPassword(input.PasswordCurrent) {
		apperror.Respond(w, apperror.Unauthorized("Your current password is wrong"))
		return
	}

	user.Password = input.Password
	user.PasswordConfirm = input.PasswordConfirm
	if err := user.ValidatePassword(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}
	if err := user.SetPassword(input.Password); err != nil {
		apperror.Respond(w, apperror.Internal("hashing password", err))
		return
	}
	user.MarkPasswordChanged()

	if err := h.DB.Save(&user).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}

	h.sendToken(w, http.StatusOK, &user)
}

// ForgotPassword creates a reset token and mails the reset link. Creating a
// new token overwrites any pending one. If the email cannot be sent, the
// just-written reset fields are rolled back so no valid-but-unannounced token
// lingers.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}

	var user User
	if err := active(h.DB).First(&user, "email = ?", strings.ToLower(input.Email)).Error; err != nil {
		apperror.Respond(w, apperror.NotFound("No user with that email address"))
		return
	}

	plaintext, hash, err := token.NewResetToken()
	if err != nil {
		apperror.Respond(w, apperror.Internal("generating reset token", err))
		return
	}
	expires := time.Now().Add(token.ResetTokenTTL)
	err = h.DB.Model(&user).Updates(map[string]any{
		"password_reset_token_hash": hash,
		"password_reset_expires":    expires,
	}).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s", scheme(r), r.Host, plaintext)
	if err := mail.SendPasswordReset(r.Context(), h.Mailer, recipient(&user), resetURL); err != nil {
		// Roll back so no dangling valid token exists without a delivered mail.
		rollbackErr := h.clearResetToken(user.ID)
		if rollbackErr != nil {
			log.Printf("[users] reset-token rollback for %s failed: %v", user.ID, rollbackErr)
		}
		apperror.Respond(w, apperror.Internal("There was an error sending the email. Try again later!", err))
		return
	}

	utils.Success(w, http.StatusOK, map[string]any{"message": "Token sent to email"})
}

// ResetPassword consumes a reset token: the stored hash must match and must
// not be expired. The token is single use; its fields are cleared on success.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	hash := token.HashResetToken(chi.URLParam(r, "token"))

	var user User
	err := active(h.DB).
		Where("password_reset_token_hash = ? AND password_reset_expires > ?", hash, time.Now()).
		First(&user).Error
	if err != nil {
		apperror.Respond(w, apperror.Validation("Password reset token is invalid or has expired"))
		return
	}

	var input struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	user.Password = input.Password
	user.PasswordConfirm = input.PasswordConfirm
	if err := user.ValidatePassword(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}
	if err := user.SetPassword(input.Password); err != nil {
		apperror.Respond(w, apperror.Internal("hashing password", err))
		return
	}
	user.MarkPasswordChanged()

	err = h.DB.Model(&user).Updates(map[string]any{
		"password_hash":             user.PasswordHash,
		"password_changed_at":       user.PasswordChangedAt,
		"password_reset_token_hash": nil,
		"password_reset_expires":    nil,
	}).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "user"))
		return
	}

	h.sendToken(w, http.StatusOK, &user)
}

func (h *Handler) clearResetToken(userID string) error {
	return h.DB.Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_reset_token_hash": nil,
		"password_reset_expires":    nil,
	}).Error
}

// CreateUser exists only so the admin collection route is complete; accounts
// are created through /signup.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	apperror.Respond(w, apperror.Validation("This route is not defined! Please use /signup instead."))
}

func recipient(u *User) mail.Recipient {
	return mail.Recipient{Name: u.Name, Email: u.Email}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Resolver adapts the store to the middleware's user lookup. A soft-deleted
// account no longer resolves, so its tokens stop working.
type Resolver struct {
	DB *gorm.DB
}

func (res Resolver) FindAuthUserByID(id string) (utils.AuthUser, error) {
	var user User
	if err := active(res.DB).First(&user, "id = ?", id).Error; err != nil {
		return utils.AuthUser{}, err
	}
	return user.AuthUser(), nil
}
