package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudpharmacy/cloudstore/models"
	"github.com/cloudpharmacy/cloudstore/repository"
	"github.com/cloudpharmacy/cloudstore/utils"
	"go.uber.org/zap"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	InsertIfAbsent(ctx context.Context, user models.User) (bool, error)
}

// AuthService issues the bearer tokens that gate catalog writes.
type AuthService struct {
	users     UserStore
	secret    string
	accessTTL time.Duration
	logger    *zap.Logger
}

func NewAuthService(users UserStore, secret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, secret: secret, accessTTL: accessTTL, logger: logger.Named("auth")}
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, NewUnauthorized("invalid credentials")
		}
		return "", nil, NewStorageError("connection failed", err)
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		return "", nil, NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return "", nil, NewUnauthorized("account disabled")
	}

	token, err := utils.GenerateAccessToken(s.secret, user.ID.Hex(), user.Email, string(user.Role), s.accessTTL)
	if err != nil {
		return "", nil, NewStorageError("failed to generate access token", err)
	}
	return token, user, nil
}

// SeedAdmin creates the bootstrap admin account unless it already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD env vars")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	inserted, err := s.users.InsertIfAbsent(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if inserted {
		s.logger.Info("admin user seeded", zap.String("email", email))
	} else {
		s.logger.Info("admin user already exists", zap.String("email", email))
	}
	return nil
}
