// Package auth implements the single-admin credential check and the signed
// session token that proves a caller passed it.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleAdmin = "admin"
	issuer    = "sitegallery"
)

// ErrInvalidToken covers every way a presented token can fail: bad
// signature, expiry, wrong role, revocation, malformed input.
var ErrInvalidToken = errors.New("invalid token")

type Settings struct {
	Username string
	// Exactly one of Password and PasswordHash is used; the hash wins.
	Password     string
	PasswordHash string
	Secret       []byte
	TTL          time.Duration
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Session describes a verified token.
type Session struct {
	ID        string
	ExpiresAt time.Time
}

type Authenticator struct {
	settings Settings
	now      func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func New(s Settings) (*Authenticator, error) {
	if s.Username == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if s.Password == "" && s.PasswordHash == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	if len(s.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if s.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Authenticator{
		settings: s,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}, nil
}

// TTL is how long issued sessions last.
func (a *Authenticator) TTL() time.Duration { return a.settings.TTL }

// CheckCredentials reports whether username and password are the admin pair.
// Both comparisons always run so timing does not reveal which one failed.
func (a *Authenticator) CheckCredentials(username, password string) bool {
	if username == "" || password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.settings.Username)) == 1

	var passOK bool
	if a.settings.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.settings.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.settings.Password)) == 1
	}
	return userOK && passOK
}

// Issue signs a new admin session token.
func (a *Authenticator) Issue() (string, Session, error) {
	now := a.now()
	sess := Session{ID: uuid.NewString(), ExpiresAt: now.Add(a.settings.TTL)}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Role: roleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.settings.Secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, sess, nil
}

// Verify checks signature, expiry, role and revocation.
func (a *Authenticator) Verify(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return a.settings.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Role != roleAdmin || c.ID == "" {
		return Session{}, ErrInvalidToken
	}
	if a.isRevoked(c.ID) {
		return Session{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return Session{ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Revoke invalidates a verified session until its natural expiry.
func (a *Authenticator) Revoke(sess Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	a.revoked[sess.ID] = sess.ExpiresAt
}

func (a *Authenticator) isRevoked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	_, ok := a.revoked[id]
	return ok
}

// pruneLocked drops revocations whose tokens have expired anyway.
func (a *Authenticator) pruneLocked() {
	now := a.now()
	for id, exp := range a.revoked {
		if !now.Before(exp) {
			delete(a.revoked, id)
		}
	}
}
