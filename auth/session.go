package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"salesboard/config"
	"salesboard/model"
)

const CookieName = "salesboard_session"

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")
)

// Session is created at login and discarded at logout.
type Session struct {
	ID            string     `json:"id"`
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username"`
	Role          model.Role `json:"role"`
	DisplayName   string     `json:"displayName"`
	ExpiresAt     time.Time  `json:"expiresAt"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Authenticated && s.Role == model.RoleAdmin
}

type sessionClaims struct {
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.StandardClaims
}

// SessionManager signs sessions into cookies and remembers revoked ones
// until they would have expired anyway.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewSessionManager uses secret to sign tokens. An empty secret gets a random
// one, which invalidates every session on restart.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("failed to generate session secret: %v", err))
		}
		config.GetLogger().WithField("module", "auth").Warn("SALESBOARD_SESSION_SECRET not set, sessions will not survive a restart")
	}
	if ttl <= 0 {
		ttl = time.Duration(config.DefaultSessionHours) * time.Hour
	}
	return &SessionManager{secret: key, ttl: ttl, revoked: make(map[string]time.Time)}
}

// SetSecure marks cookies Secure, for deployments behind TLS.
func (m *SessionManager) SetSecure(secure bool) {
	m.secure = secure
}

// Issue creates a session for a successful login and returns its signed token.
func (m *SessionManager) Issue(username string, res model.LoginResult) (*Session, string, error) {
	if !res.Authenticated {
		return nil, "", ErrInvalidSession
	}
	now := time.Now()
	sess := &Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		Username:      username,
		Role:          res.Role,
		DisplayName:   res.DisplayName,
		ExpiresAt:     now.Add(m.ttl),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		Role:        string(res.Role),
		DisplayName: res.DisplayName,
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Subject:   username,
			IssuedAt:  now.Unix(),
			ExpiresAt: sess.ExpiresAt.Unix(),
		},
	})
	token, err := t.SignedString(m.secret)
	if err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// Parse validates a token and rebuilds its session.
func (m *SessionManager) Parse(token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Id == "" || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return nil, ErrInvalidSession
	}
	if m.isRevoked(claims.Id) {
		return nil, ErrSessionRevoked
	}
	return &Session{
		ID:            claims.Id,
		Authenticated: true,
		Username:      claims.Subject,
		Role:          role,
		DisplayName:   claims.DisplayName,
		ExpiresAt:     time.Unix(claims.ExpiresAt, 0),
	}, nil
}

func (m *SessionManager) Revoke(sess *Session) {
	if sess == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[sess.ID] = sess.ExpiresAt
}

func (m *SessionManager) isRevoked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok
}

// Login issues a session and sets its cookie.
func (m *SessionManager) Login(w http.ResponseWriter, username string, res model.LoginResult) (*Session, error) {
	sess, token, err := m.Issue(username, res)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Logout revokes the request's session, if any, and clears the cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := SessionFromContext(r.Context()); sess != nil {
		m.Revoke(sess)
	} else if c, err := r.Cookie(CookieName); err == nil {
		if sess, err := m.Parse(c.Value); err == nil {
			m.Revoke(sess)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionKey struct{}

// Middleware attaches the cookie's session, when valid, to the request context.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := m.Parse(c.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns nil when the request is anonymous.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// RequireLogin sends API callers a 401 and browsers to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := SessionFromContext(r.Context()); sess == nil || !sess.Authenticated {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSONError(w, "login required", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAdmin() {
			writeJSONError(w, "admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
