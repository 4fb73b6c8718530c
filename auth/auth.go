// Package auth signs the resume tokens handed to websocket clients and
// guards the operator endpoints. Players themselves are anonymous.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	issuer   = "ImpactX"
	tokenTTL = time.Hour
)

type Auth struct {
	jwtKey    []byte
	adminHash []byte
	adminUser string
	now       func() time.Time
}

// NewAuth loads the signing key from dataDir/jwt.key, creating it on first
// run. adminHash is a bcrypt hash; empty disables admin routes.
func NewAuth(dataDir, adminHash string) (*Auth, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	keyPath := filepath.Join(dataDir, "jwt.key")
	key, err := os.ReadFile(keyPath)
	if err != nil || len(key) < 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt key: %w", err)
		}
		if err := os.WriteFile(keyPath, key, 0o600); err != nil {
			return nil, fmt.Errorf("write jwt key: %w", err)
		}
		log.Printf("AUTH: generated new signing key at %s", keyPath)
	}
	return NewWithKey(key, adminHash), nil
}

func NewWithKey(key []byte, adminHash string) *Auth {
	return &Auth{
		jwtKey:    key,
		adminHash: []byte(strings.TrimSpace(adminHash)),
		adminUser: "admin",
		now:       time.Now,
	}
}

// IssueSession signs a token naming the challenge session.
func (a *Auth) IssueSession(sessionID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.jwtKey)
}

// ParseSession returns the session id a valid token names.
func (a *Auth) ParseSession(tok string) (string, error) {
	if tok == "" {
		return "", ErrMissingToken
	}
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.jwtKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// TokenFromRequest reads a bearer header or the ?token= query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (a *Auth) AdminEnabled() bool { return len(a.adminHash) > 0 }

// RequireAdmin guards operator endpoints with basic auth checked against
// the configured bcrypt hash.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.AdminEnabled() {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(a.adminUser)) != 1 ||
			bcrypt.CompareHashAndPassword(a.adminHash, []byte(pass)) != nil {
			log.Printf("AUTH: rejected admin request from %s", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Basic realm="impactx"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword produces a value suitable for IMPACTX_ADMIN_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
