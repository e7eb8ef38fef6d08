// Package auth handles credentials: bcrypt password storage and signed
// session tokens for applicants and admins.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"rgbportal/internal/domain"
)

// Kind distinguishes the two account populations sharing the token format.
type Kind string

const (
	KindApplicant Kind = "applicant"
	KindAdmin     Kind = "admin"
)

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

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims identify the token holder. Role is empty for applicants.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind        `json:"kind"`
	Role domain.Role `json:"role,omitempty"`
}

// Identity is the verified content of a token.
type Identity struct {
	ID   int64
	Kind Kind
	Role domain.Role
}

// IssueToken signs an HS256 session token for the given account.
func IssueToken(secret string, id int64, kind Kind, role domain.Role, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a session token.
func VerifyToken(secret, token string) (Identity, error) {
	if secret == "" {
		return Identity{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("subject claim required")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("malformed subject claim: %w", err)
	}
	switch claims.Kind {
	case KindApplicant, KindAdmin:
	default:
		return Identity{}, fmt.Errorf("unknown account kind %q", claims.Kind)
	}
	return Identity{ID: id, Kind: claims.Kind, Role: claims.Role}, nil
}
