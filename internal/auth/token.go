// Package auth issues and verifies the HS256 tokens that identify quiz takers.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studyhub/internal/domain"
)

// Claims carries the identity embedded in a token.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for userID that expires after ttl.
func (a *Authenticator) Issue(userID string, role domain.Role, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth secret not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	if role == "" {
		role = domain.RoleStudent
	}
	now := a.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse verifies a signed token and returns the identity it carries.
func (a *Authenticator) Parse(raw string) (*domain.Identity, error) {
	if len(a.secret) == 0 {
		return nil, domain.ErrUnauthenticated
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleStudent
	}
	return &domain.Identity{UserID: claims.UserID, Role: role}, nil
}

// Authenticate reads a token from the Authorization header or the token
// query parameter. A request without a token is anonymous and yields nil.
func (a *Authenticator) Authenticate(r *http.Request) (*domain.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, nil
	}
	return a.Parse(raw)
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
