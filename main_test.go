package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/auth"
	"salesboard/config"
	"salesboard/database"
	"salesboard/loader"
	"salesboard/model"
	"salesboard/views"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	config.SetConfigPath(filepath.Join(dir, "salesboard_config.json"))
	if _, err := config.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	db, err := database.Open(filepath.Join(dir, "vente.db"))
	if err != nil {
		t.Fatalf("open sales: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	opts := loader.SeedOptions{Transactions: 20, Seed: 9, Now: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), Reset: true}
	if _, err := loader.SeedSales(ctx, db, opts); err != nil {
		t.Fatalf("seed: %v", err)
	}

	users, err := auth.Open(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("open users: %v", err)
	}
	t.Cleanup(func() { users.Close() })
	for _, in := range []auth.CredentialInput{
		{Username: "admin", Password: "s3cret", DisplayName: "Administrateur", Role: model.RoleAdmin},
		{Username: "jean", Password: "motdepasse", Role: model.RoleUser},
	} {
		if err := users.CreateOrReplace(ctx, in); err != nil {
			t.Fatalf("create %s: %v", in.Username, err)
		}
	}

	tmpl, err := views.Parse()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	s := &server{db: db, users: users, sessions: auth.NewSessionManager("test-secret", time.Hour), tmpl: tmpl}
	mux := http.NewServeMux()
	SetupRoutes(mux, s)
	return s.sessions.Middleware(mux)
}

func do(h http.Handler, method, path string, body io.Reader, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	rec := do(h, http.MethodPost, "/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login %s: status %d", username, rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func TestAnonymousAccess(t *testing.T) {
	h := newTestServer(t)
	if rec := do(h, http.MethodGet, "/api/kpis", nil, "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/kpis = %d, want 401", rec.Code)
	}
	rec := do(h, http.MethodGet, "/", nil, "", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("/ = %d %s, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
	if rec := do(h, http.MethodGet, "/login", nil, "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Se connecter") {
		t.Errorf("/login = %d", rec.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		username, password string
	}{
		{"jean", "wrong"},
		{"nobody", "motdepasse"},
		{"", ""},
	}
	for _, tt := range tests {
		form := url.Values{"username": {tt.username}, "password": {tt.password}}
		rec := do(h, http.MethodPost, "/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status %d, want 401", tt.username, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Identifiants incorrects") {
			t.Errorf("%q: missing generic error message", tt.username)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("%q: cookie set on failed login", tt.username)
		}
	}
}

func TestDashboardAndAPI(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, "jean", "motdepasse")

	rec := do(h, http.MethodGet, "/", nil, "", cookie)
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Vue d&#39;ensemble") && !strings.Contains(body, "Vue d'ensemble") {
		t.Fatalf("dashboard = %d", rec.Code)
	}
	if !strings.Contains(body, "<svg") || !strings.Contains(body, "sales-table") {
		t.Errorf("dashboard missing charts or table")
	}
	if strings.Contains(body, "Gestion des utilisateurs") {
		t.Errorf("admin section shown to a user")
	}

	rec = do(h, http.MethodGet, "/api/kpis", nil, "", cookie)
	var kpis struct {
		Summary model.Summary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &kpis); err != nil {
		t.Fatalf("kpis: %v", err)
	}
	if kpis.Summary.TransactionCount != 20 {
		t.Errorf("transactionCount = %d, want 20", kpis.Summary.TransactionCount)
	}

	rec = do(h, http.MethodGet, "/api/top-products?n=3", nil, "", cookie)
	var top []model.ProductRanking
	if err := json.Unmarshal(rec.Body.Bytes(), &top); err != nil || len(top) > 3 {
		t.Errorf("top-products: %v, %d entries", err, len(top))
	}

	if rec := do(h, http.MethodGet, "/api/rows?minRevenue=abc", nil, "", cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("bad minRevenue = %d, want 400", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/users", nil, "", cookie); rec.Code != http.StatusForbidden {
		t.Errorf("/api/users as user = %d, want 403", rec.Code)
	}

	rec = do(h, http.MethodGet, "/api/export?format=csv&name=mes%20ventes", nil, "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="mes_ventes.csv"` {
		t.Errorf("Content-Disposition = %s", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\xef\xbb\xbf")) {
		t.Errorf("csv export without BOM")
	}
	if rec := do(h, http.MethodGet, "/api/export?format=pdf", nil, "", cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", rec.Code)
	}
}

func TestDashboardFilterReachesExport(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, "jean", "motdepasse")

	rec := do(h, http.MethodGet, "/?product=Webcam%20HD&minRevenue=10", nil, "", cookie)
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", rec.Code)
	}
	if !strings.Contains(body, "Indicateurs et graphiques calcul") {
		t.Errorf("dashboard does not say cards and charts are unfiltered")
	}
	if !strings.Contains(body, "product=Webcam") {
		t.Errorf("export link lost the product filter")
	}

	rec = do(h, http.MethodGet, "/?page=export&product=Webcam%20HD&minRevenue=10", nil, "", cookie)
	body = rec.Body.String()
	if !strings.Contains(body, `name="product" value="Webcam HD"`) || !strings.Contains(body, `name="minRevenue" value="10"`) {
		t.Errorf("export form does not carry the filter")
	}

	rec = do(h, http.MethodGet, "/api/export?format=json&product=Webcam%20HD&minRevenue=10", nil, "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	var out struct {
		Rows []model.SalesRow `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("export json: %v", err)
	}
	for _, r := range out.Rows {
		if r.ProductName != "Webcam HD" || r.Revenue.LessThan(decimal.NewFromInt(10)) {
			t.Errorf("filtered export contains %+v", r)
		}
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, "jean", "motdepasse")

	rec := do(h, http.MethodPost, "/logout", nil, "", cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/kpis", nil, "", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("old cookie after logout = %d, want 401", rec.Code)
	}
}

func TestAdminUserManagement(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, "admin", "s3cret")

	rec := do(h, http.MethodGet, "/", nil, "", cookie)
	if !strings.Contains(rec.Body.String(), "Gestion des utilisateurs") {
		t.Errorf("admin section missing")
	}

	create := func(body string) int {
		return do(h, http.MethodPost, "/api/users/create", strings.NewReader(body), "application/json", cookie).Code
	}
	if code := create(`{"username":"marie","password":"pw","displayName":"Marie Martin","role":"user"}`); code != http.StatusCreated {
		t.Errorf("create = %d, want 201", code)
	}
	if code := create(`{"username":"marie","password":"pw","role":"user"}`); code != http.StatusConflict {
		t.Errorf("duplicate = %d, want 409", code)
	}
	if code := create(`{"username":"x","password":"pw","role":"root"}`); code != http.StatusBadRequest {
		t.Errorf("bad role = %d, want 400", code)
	}

	rec = do(h, http.MethodGet, "/api/users", nil, "", cookie)
	var list []model.UserSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(list) != 3 || strings.Contains(rec.Body.String(), "password") {
		t.Errorf("users = %s", rec.Body.String())
	}

	if rec := do(h, http.MethodPost, "/api/users/delete/admin", nil, "", cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("self delete = %d, want 400", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/users/delete/marie", nil, "", cookie); rec.Code != http.StatusOK {
		t.Errorf("delete = %d, want 200", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/users/delete/marie", nil, "", cookie); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}
