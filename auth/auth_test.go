package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"salesboard/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestComparePassword(t *testing.T) {
	bcrypted, err := HashPassword("admin123")
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("admin123"))
	legacy := hex.EncodeToString(sum[:])

	tests := []struct {
		name   string
		hashed string
		plain  string
		want   bool
	}{
		{"bcrypt match", bcrypted, "admin123", true},
		{"bcrypt mismatch", bcrypted, "admin124", false},
		{"legacy match", legacy, "admin123", true},
		{"legacy uppercase match", strings.ToUpper(legacy), "admin123", true},
		{"legacy mismatch", legacy, "Admin123", false},
		{"empty hash", "", "admin123", false},
	}
	for _, tt := range tests {
		if got := ComparePassword(tt.hashed, tt.plain); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVerify(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.CreateOrReplace(ctx, CredentialInput{Username: "admin", Password: "admin123", DisplayName: "Administrateur", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("CreateOrReplace: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"correct", "admin", "admin123", true},
		{"wrong password", "admin", "nope", false},
		{"unknown user", "ghost", "admin123", false},
		{"empty password", "admin", "", false},
		{"case sensitive username", "Admin", "admin123", false},
	}
	for _, tt := range tests {
		res, err := s.Verify(ctx, tt.username, tt.password)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.Authenticated != tt.want {
			t.Errorf("%s: Authenticated = %v, want %v", tt.name, res.Authenticated, tt.want)
		}
		if !tt.want && (res.Role != "" || res.DisplayName != "") {
			t.Errorf("%s: failed login leaked detail %+v", tt.name, res)
		}
	}

	res, _ := s.Verify(ctx, "admin", "admin123")
	if res.Role != model.RoleAdmin || res.DisplayName != "Administrateur" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCreateOrReplaceOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.CreateOrReplace(ctx, CredentialInput{Username: "marie", Password: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOrReplace(ctx, CredentialInput{Username: "marie", Password: "two", Role: model.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	if res, _ := s.Verify(ctx, "marie", "one"); res.Authenticated {
		t.Error("old password still accepted")
	}
	res, err := s.Verify(ctx, "marie", "two")
	if err != nil || !res.Authenticated || res.Role != model.RoleAdmin {
		t.Errorf("got %+v, %v", res, err)
	}
	// No display name falls back to the username.
	if res.DisplayName != "marie" {
		t.Errorf("DisplayName = %q, want marie", res.DisplayName)
	}
}

func TestCreateOrReplaceValidates(t *testing.T) {
	s := newStore(t)
	tests := []struct {
		name  string
		in    CredentialInput
		field string
	}{
		{"missing username", CredentialInput{Password: "x"}, "username"},
		{"missing password", CredentialInput{Username: "u"}, "password"},
		{"bad role", CredentialInput{Username: "u", Password: "x", Role: "root"}, "role"},
		{"whitespace username", CredentialInput{Username: "jean dupont", Password: "x"}, "username"},
		{"password over 72 bytes", CredentialInput{Username: "u", Password: strings.Repeat("é", 40)}, "password"},
	}
	for _, tt := range tests {
		err := s.CreateOrReplace(context.Background(), tt.in)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected *model.ValidationError, got %v", tt.name, err)
		}
		if ve.Field != tt.field {
			t.Errorf("%s: Field = %q, want %q", tt.name, ve.Field, tt.field)
		}
	}
	users, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("invalid input was stored: %+v", users)
	}
}

func TestCreateListDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, CredentialInput{Username: "jean", Password: "pw", DisplayName: "Jean Dupont"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, CredentialInput{Username: "jean", Password: "other"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := s.Create(ctx, CredentialInput{Username: "admin", Password: "pw", Role: model.RoleAdmin}); err != nil {
		t.Fatal(err)
	}

	users, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Username != "admin" || users[1].DisplayName != "Jean Dupont" || users[1].Role != model.RoleUser {
		t.Fatalf("unexpected list %+v", users)
	}

	if err := s.Delete(ctx, "jean"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "jean"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestOpenMigratesLegacyUsersOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	legacy, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("admin123"))
	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, full_name TEXT, role TEXT DEFAULT 'user')`,
		`INSERT INTO users (username, password_hash, full_name, role) VALUES ('admin', '` + hex.EncodeToString(sum[:]) + `', 'Administrateur', 'admin')`,
		`INSERT INTO users (username, password_hash, full_name, role) VALUES ('old', '` + hex.EncodeToString(sum[:]) + `', '', 'superuser')`,
	}
	for _, q := range stmts {
		if err := legacy.Exec(q).Error; err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	sqlDB, _ := legacy.DB()
	sqlDB.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	res, err := s.Verify(ctx, "admin", "admin123")
	if err != nil || !res.Authenticated || res.Role != model.RoleAdmin || res.DisplayName != "Administrateur" {
		t.Fatalf("legacy admin: %+v, %v", res, err)
	}
	res, _ = s.Verify(ctx, "old", "admin123")
	if res.Role != model.RoleUser || res.DisplayName != "old" {
		t.Errorf("legacy user with unknown role: %+v", res)
	}

	var cred model.Credential
	if err := s.db.Where("username = ?", "admin").Take(&cred).Error; err != nil {
		t.Fatal(err)
	}
	if IsLegacyHash(cred.PasswordHash) || !strings.HasPrefix(cred.PasswordHash, "$2") {
		t.Errorf("legacy hash not upgraded after login: %q", cred.PasswordHash)
	}
	if res, _ := s.Verify(ctx, "admin", "admin123"); !res.Authenticated {
		t.Error("login failed after hash upgrade")
	}
	if res, _ := s.Verify(ctx, "admin", "wrong"); res.Authenticated {
		t.Error("upgraded hash accepted a wrong password")
	}

	if err := s.Delete(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if res, _ := s.Verify(ctx, "old", "admin123"); res.Authenticated {
		t.Error("deleted credential resurrected by a second migration")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	sess, token, err := m.Issue("admin", model.LoginResult{Authenticated: true, Role: model.RoleAdmin, DisplayName: "Administrateur"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.ID != sess.ID || got.Username != "admin" || !got.IsAdmin() || got.DisplayName != "Administrateur" {
		t.Errorf("got %+v, want %+v", got, sess)
	}

	other := NewSessionManager("another-secret", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("foreign secret accepted: %v", err)
	}

	m.Revoke(got)
	if _, err := m.Parse(token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("revoked session accepted: %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	m.ttl = -time.Minute
	_, token, err := m.Issue("u", model.LoginResult{Authenticated: true, Role: model.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expired session accepted: %v", err)
	}
}

func TestIssueRejectsFailedLogin(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	if _, _, err := m.Issue("u", model.LoginResult{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestMiddlewareGuards(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	mux := http.NewServeMux()
	mux.Handle("/api/data", RequireLogin(ok))
	mux.Handle("/api/users", RequireAdmin(ok))
	mux.Handle("/", RequireLogin(ok))
	h := m.Middleware(mux)

	cookieFor := func(role model.Role) *http.Cookie {
		rec := httptest.NewRecorder()
		if _, err := m.Login(rec, "u", model.LoginResult{Authenticated: true, Role: role}); err != nil {
			t.Fatal(err)
		}
		return rec.Result().Cookies()[0]
	}
	userCookie, adminCookie := cookieFor(model.RoleUser), cookieFor(model.RoleAdmin)

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		want   int
	}{
		{"anonymous api", "/api/data", nil, http.StatusUnauthorized},
		{"anonymous page", "/", nil, http.StatusSeeOther},
		{"garbage cookie", "/api/data", &http.Cookie{Name: CookieName, Value: "garbage"}, http.StatusUnauthorized},
		{"user api", "/api/data", userCookie, http.StatusNoContent},
		{"user admin api", "/api/users", userCookie, http.StatusForbidden},
		{"admin admin api", "/api/users", adminCookie, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.cookie != nil {
			req.AddCookie(tt.cookie)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestLogoutRevokesCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	if _, err := m.Login(rec, "u", model.LoginResult{Authenticated: true, Role: model.RoleUser}); err != nil {
		t.Fatal(err)
	}
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	m.Logout(out, req)

	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].Value != "" || cleared[0].MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", cleared)
	}
	if _, err := m.Parse(cookie.Value); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("logged out token still valid: %v", err)
	}
}
