package users_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Tosino95/natours/internal/config"
	"github.com/Tosino95/natours/internal/db"
	"github.com/Tosino95/natours/internal/mail"
	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/storage"
	"github.com/Tosino95/natours/internal/token"
	"github.com/Tosino95/natours/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// dbAvailable tracks whether the database connection was established.
var dbAvailable bool

// testServer is the shared httptest server for all integration tests.
var testServer *httptest.Server

var (
	testDB     *gorm.DB
	testTokens *token.Service
)

func TestMain(m *testing.M) {
	// Load .env.local relative to the repo root (two directories up).
	_ = godotenv.Load("../../.env.local")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// No database available — skip all integration tests gracefully.
		os.Exit(m.Run())
	}

	var err error
	testDB, err = db.Connect(databaseURL)
	if err != nil {
		fmt.Println("connecting to test database:", err)
		os.Exit(1)
	}
	if err := users.Setup(testDB); err != nil {
		fmt.Println("migrating users:", err)
		os.Exit(1)
	}
	dbAvailable = true

	testTokens = token.NewService("integration-test-secret", time.Hour)
	handler := &users.Handler{
		DB:     testDB,
		Tokens: testTokens,
		Mailer: mail.LogSender{},
		Photos: storage.NewPhotoStore(os.TempDir()),
		Cfg:    config.Config{Env: config.EnvDevelopment, CookieExpiresIn: time.Hour},
	}
	guard := middleware.Guard{
		Tokens: testTokens,
		Users:  users.Resolver{DB: testDB},
		Stale:  token.StaleRelativeTo,
	}

	// Mount user routes matching production setup in main.go.
	r := chi.NewRouter()
	r.Mount("/api/v1/users", handler.SetupRoutes(guard))
	testServer = httptest.NewServer(r)

	code := m.Run()
	testServer.Close()
	os.Exit(code)
}

// createTestUser inserts a unique user and registers a cleanup to remove it.
func createTestUser(t *testing.T, role string) *users.User {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	u := &users.User{
		Name:  "Test User",
		Email: fmt.Sprintf("testuser_%s@example.com", uuid.NewString()[:8]),
		Role:  role,
	}
	if err := u.SetPassword("TestPass123!"); err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if err := testDB.Create(u).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	t.Cleanup(func() {
		testDB.Exec("DELETE FROM natours.users WHERE id = ?", u.ID)
	})
	return u
}

func issueToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := testTokens.Issue(userID)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return tok
}

// doJSON sends a request with an optional JSON payload and bearer token,
// returning the response and its drained body.
func doJSON(t *testing.T, method, path, bearer string, payload any) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, testServer.URL+path, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(b)
}

// TestResetTokenIsSingleUse verifies that a reset token consumed by a
// successful password reset is cleared and cannot be replayed.
func TestResetTokenIsSingleUse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	u := createTestUser(t, users.RoleUser)

	plaintext, hash, err := token.NewResetToken()
	if err != nil {
		t.Fatalf("creating reset token: %v", err)
	}
	err = testDB.Model(&users.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"password_reset_token_hash": hash,
		"password_reset_expires":    time.Now().Add(token.ResetTokenTTL),
	}).Error
	if err != nil {
		t.Fatalf("storing reset token: %v", err)
	}

	payload := map[string]string{"password": "newpass1234", "passwordConfirm": "newpass1234"}

	resp, body := doJSON(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext, "", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from first reset, got %d; body: %s", resp.StatusCode, body)
	}

	// The token fields must be cleared on consumption.
	var row users.User
	if err := testDB.First(&row, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if row.PasswordResetTokenHash != "" || row.PasswordResetExpires != nil {
		t.Errorf("expected reset fields cleared, got hash=%q expires=%v",
			row.PasswordResetTokenHash, row.PasswordResetExpires)
	}
	if !row.CorrectPassword("newpass1234") {
		t.Error("expected the new password to be set")
	}

	// Replaying the same token must fail.
	resp, body = doJSON(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext, "", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 from replayed reset, got %d; body: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "invalid or has expired") {
		t.Errorf("expected an invalid-token message, got: %q", body)
	}
}

// TestDeleteMeSoftDeletes verifies that deleting the own account flips the
// active flag: the row persists, but the user vanishes from default reads and
// existing tokens stop working.
func TestDeleteMeSoftDeletes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	u := createTestUser(t, users.RoleUser)
	tok := issueToken(t, u.ID)

	resp, body := doJSON(t, http.MethodDelete, "/api/v1/users/deleteMe", tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from deleteMe, got %d; body: %s", resp.StatusCode, body)
	}

	// The token no longer resolves a user.
	resp, body = doJSON(t, http.MethodGet, "/api/v1/users/me", tok, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 from /me after deleteMe, got %d; body: %s", resp.StatusCode, body)
	}

	// The row itself persists with active=false.
	var row users.User
	if err := testDB.First(&row, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("expected the row to persist, got: %v", err)
	}
	if row.Active == nil || *row.Active {
		t.Errorf("expected active=false, got %v", row.Active)
	}
}

// TestAdminUpdateIgnoresPayloadID verifies that an update body carrying "id"
// cannot repoint the row: the URL's id wins and the stored row is the one
// modified.
func TestAdminUpdateIgnoresPayloadID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	admin := createTestUser(t, users.RoleAdmin)
	victim := createTestUser(t, users.RoleUser)
	tok := issueToken(t, admin.ID)

	payload := map[string]string{"id": "spoofed-id", "name": "Renamed User"}
	resp, body := doJSON(t, http.MethodPatch, "/api/v1/users/"+victim.ID, tok, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from update, got %d; body: %s", resp.StatusCode, body)
	}

	var out struct {
		Data struct {
			User struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("invalid JSON body: %s", body)
	}
	if out.Data.User.ID != victim.ID {
		t.Errorf("expected the response to echo id %q, got %q", victim.ID, out.Data.User.ID)
	}
	if out.Data.User.Name != "Renamed User" {
		t.Errorf("expected the name change to apply, got %q", out.Data.User.Name)
	}

	// The original row was modified; no row exists under the spoofed id.
	var row users.User
	if err := testDB.First(&row, "id = ?", victim.ID).Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if row.Name != "Renamed User" {
		t.Errorf("expected the stored row renamed, got %q", row.Name)
	}
	var n int64
	testDB.Model(&users.User{}).Where("id = ?", "spoofed-id").Count(&n)
	if n != 0 {
		t.Errorf("expected no row under the spoofed id, found %d", n)
	}
}
