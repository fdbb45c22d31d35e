// Package auth hashes credentials and issues the signed tokens that carry a caller's identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"conference-webapp/model"
)

const (
	claimSubject  = "sub"
	claimUsername = "username"
	claimRole     = "role"
	claimIssuedAt = "iat"
	claimExpires  = "exp"
)

var ErrInvalidClaims = errors.New("token claims do not describe an identity")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func IsPasswordHashCorrect(dbHash, pass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(dbHash), []byte(pass))
	return err == nil
}

// Issuer signs HS256 tokens valid for a fixed TTL.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid. The token cookie lives as long.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(user model.User) (string, error) {
	now := i.now()
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims[claimSubject] = user.ID
	claims[claimUsername] = user.Username
	claims[claimRole] = string(user.Role)
	claims[claimIssuedAt] = now.Unix()
	claims[claimExpires] = now.Add(i.ttl).Unix()

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IdentityFromClaims rebuilds the caller identity from verified claims.
func IdentityFromClaims(claims jwt.MapClaims) (model.Identity, error) {
	subject, _ := claims[claimSubject].(string)
	username, _ := claims[claimUsername].(string)
	rawRole, _ := claims[claimRole].(string)
	if subject == "" || username == "" {
		return model.Identity{}, ErrInvalidClaims
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.Identity{}, ErrInvalidClaims
	}
	return model.Identity{UserID: subject, Username: username, Role: role}, nil
}
