package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrInvalidToken      = errors.New("invalid token")
)

const (
	bcryptCost = 12
	tokenTTL   = 24 * time.Hour
)

// Service hashes project passphrases and issues collaboration tokens scoped to
// one project.
type Service struct {
	jwtSecret []byte
	now       func() time.Time
}

func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// Claims identify a collaborator inside one project.
type Claims struct {
	ProjectID   string `json:"projectId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// HashPassphrase returns the bcrypt hash of passphrase, or "" for an open project.
func (s *Service) HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

// CheckPassphrase accepts anything against an empty hash.
func (s *Service) CheckPassphrase(hash, passphrase string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)); err != nil {
		return ErrInvalidPassphrase
	}
	return nil
}

func (s *Service) IssueToken(c Claims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  c.UserID,
		"prj":  c.ProjectID,
		"name": c.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	var c Claims
	c.UserID, _ = claims["sub"].(string)
	c.ProjectID, _ = claims["prj"].(string)
	c.DisplayName, _ = claims["name"].(string)
	if c.UserID == "" || c.ProjectID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or project", ErrInvalidToken)
	}
	return c, nil
}
