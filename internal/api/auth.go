package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultTokenExpiration is the default lifetime for admin tokens.
	DefaultTokenExpiration = 24 * time.Hour

	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a JWT token is invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents the JWT claims for the admin user.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService authenticates the single admin account and issues JWT
// tokens for it. The password hash is read by concurrent request
// handlers and replaced by ChangePassword, so access goes through mu.
type AuthService struct {
	mu              sync.RWMutex
	username        string
	passwordHash    string
	jwtSecret       []byte
	tokenExpiration time.Duration
}

// NewAuthService creates an authentication service for one admin
// account. password is hashed immediately and not retained.
func NewAuthService(username, password, jwtSecret string, tokenExpiration time.Duration) (*AuthService, error) {
	if tokenExpiration == 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		username:        username,
		passwordHash:    hash,
		jwtSecret:       []byte(jwtSecret),
		tokenExpiration: tokenExpiration,
	}, nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Login verifies credentials and returns a signed token plus its expiry.
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	s.mu.RLock()
	hash := s.passwordHash
	s.mu.RUnlock()

	if username != s.username {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(password, hash); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenExpiration)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ChangePassword replaces the admin password after verifying the old
// one. The change is in-memory only: on restart the account reverts to
// the configured password.
func (s *AuthService) ChangePassword(oldPassword, newPassword string) error {
	s.mu.RLock()
	current := s.passwordHash
	s.mu.RUnlock()

	if err := VerifyPassword(oldPassword, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.passwordHash = hash
	s.mu.Unlock()
	return nil
}
