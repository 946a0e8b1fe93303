package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/repository"
)

const issuer = "vocsync"

// Claims carries the signed-in user inside a session token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// User is a resolved identity. The zero value means signed out.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

var _ repository.IdentityProvider = User{}

func (u User) CurrentUserID() (string, bool) {
	id := strings.TrimSpace(u.ID)
	return id, id != ""
}

func (u User) CurrentUserEmail() (string, bool) {
	email := entity.NormalizeEmail(u.Email)
	return email, email != ""
}

func (u User) CurrentUserDisplayName() string {
	return strings.TrimSpace(u.DisplayName)
}

// Signer issues and verifies HMAC session tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for user that expires after ttl. A non-positive ttl
// produces a token without expiry.
func (s *Signer) Issue(user User, ttl time.Duration) (string, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}
	now := s.now()
	claims := &Claims{
		Email: entity.NormalizeEmail(user.Email),
		Name:  strings.TrimSpace(user.DisplayName),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  strings.TrimSpace(user.ID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token and returns the user it names.
func (s *Signer) Verify(tokenString string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", entity.ErrUserNotAuthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return User{}, fmt.Errorf("%w: invalid token", entity.ErrUserNotAuthenticated)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: missing sub in token", entity.ErrUserNotAuthenticated)
	}
	return User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}, nil
}

// FromConfig resolves the current user. A configured token wins over the
// static fields and must verify against the signing key.
func FromConfig(cfg config.IdentityConfig) (User, error) {
	if token := strings.TrimSpace(cfg.Token); token != "" {
		if cfg.SigningKey == "" {
			return User{}, fmt.Errorf("%w: identity.signing_key is required with a token", entity.ErrInvalidInput)
		}
		return NewSigner(cfg.SigningKey).Verify(token)
	}
	return User{ID: cfg.UserID, Email: cfg.Email, DisplayName: cfg.DisplayName}, nil
}
