// Package account tracks who is signed in on this device and issues the
// bearer tokens the API accepts.
package account

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/store"
)

const (
	keyCurrentUser  = "account:current_user"
	keyCurrentToken = "account:current_token"
	keyRevoked      = "account:revoked:"
	issuer          = "medreminder"
)

// Manager signs users in and out.
type Manager struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(st *store.Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: st, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Login records userID as the current user and returns a fresh token for it.
func (m *Manager) Login(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperrors.New(apperrors.ErrBadRequest.Code, "user id is required")
	}

	token, err := m.Issue(userID)
	if err != nil {
		return "", err
	}
	if err := m.store.SetKV(keyCurrentUser, []byte(userID), 0); err != nil {
		return "", err
	}
	if err := m.store.SetKV(keyCurrentToken, []byte(token), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Logout forgets the current user and revokes their token.
func (m *Manager) Logout() error {
	if tok, err := m.store.GetKV(keyCurrentToken); err == nil {
		if err := m.Revoke(string(tok)); err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
			return err
		}
		_ = m.store.DeleteKV(keyCurrentToken)
	}
	if err := m.store.DeleteKV(keyCurrentUser); err != nil {
		return err
	}
	return nil
}

// CurrentUser returns the signed-in user, or ErrNoCurrentUser.
func (m *Manager) CurrentUser() (string, error) {
	v, err := m.store.GetKV(keyCurrentUser)
	if errors.Is(err, store.ErrKeyNotFound) || (err == nil && len(v) == 0) {
		return "", apperrors.ErrNoCurrentUser
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CurrentToken returns the token issued at the last login, reissuing one if
// it has expired.
func (m *Manager) CurrentToken() (string, error) {
	user, err := m.CurrentUser()
	if err != nil {
		return "", err
	}
	if v, err := m.store.GetKV(keyCurrentToken); err == nil {
		if _, err := m.Verify(string(v)); err == nil {
			return string(v), nil
		}
	}
	return m.Login(user)
}

// Issue signs a token for userID.
func (m *Manager) Issue(userID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks a token and returns its user.
func (m *Manager) Verify(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}
	if _, err := m.store.GetKV(keyRevoked + claims.ID); err == nil {
		return "", apperrors.New(apperrors.ErrUnauthorized.Code, "token revoked")
	}
	return claims.Subject, nil
}

// Revoke blocks a token until it would have expired anyway.
func (m *Manager) Revoke(tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return m.store.SetKV(keyRevoked+claims.ID, []byte{1}, ttl)
}

func (m *Manager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, apperrors.Wrap(err, apperrors.ErrUnauthorized.Code, "invalid token")
	}
	if claims.Subject == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized.Code, "token has no subject")
	}
	return claims, nil
}
