package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	adminSubject = "admin"
	tokenTTL     = 12 * time.Hour
)

// AuthService issues admin tokens. With no password configured every login
// is refused.
type AuthService struct {
	passwordHash []byte
	jwtSecret    []byte
	now          func() time.Time
}

func NewAuthService(adminPassword, jwtSecret string) (*AuthService, error) {
	s := &AuthService{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
	if adminPassword == "" {
		return s, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	s.passwordHash = hash
	return s, nil
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &LoginResponse{Token: signed, ExpiresAt: expires}, nil
}

// ValidateToken checks signature, expiry and subject and returns the subject.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != adminSubject {
		return "", errors.New("invalid token subject")
	}
	return claims.Subject, nil
}
