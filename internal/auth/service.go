// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/logging"
)

// ErrInvalidCredentials is returned for any login failure. Wrong username
// and wrong password are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service gates the API behind the configured admin account.
type Service struct {
	username     string
	passwordHash string
	jwt          *JWTManager
}

// NewService builds the auth service for jwt mode.
func NewService(cfg config.SecurityConfig) (*Service, error) {
	jwtManager, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		jwt:          jwtManager,
	}, nil
}

// Login checks the credentials against the configured admin account and
// issues a session token. The bcrypt comparison runs even for a wrong
// username so both failure paths cost the same.
func (s *Service) Login(username, password string) (string, error) {
	err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
	if err != nil || username != s.username {
		logging.Warn().Str("username", username).Msg("Failed login attempt")
		return "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(username)
	if err != nil {
		return "", err
	}

	logging.Info().Str("username", username).Msg("Login successful")
	return token, nil
}

// Validate verifies a session token and returns its claims.
func (s *Service) Validate(token string) (*Claims, error) {
	return s.jwt.ValidateToken(token)
}
