package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dquiroga/ManufactureGo/internal/auth"
	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
)

const bcryptCost = 12

// UserService implements account registration and authentication.
type UserService struct {
	repo   repository.UserRepository
	tokens *auth.JWTManager
	clock  clock.Clock
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens *auth.JWTManager, clk clock.Clock, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		clock:  clk,
		logger: logger,
	}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Register creates a new account and returns it with a token pair.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleOperator
	}
	if role != domain.RoleAdmin && role != domain.RoleOperator {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return user, pair, nil
}

// EnsureAdmin creates the bootstrap admin account unless an account with
// that email already exists. Called at startup so a fresh install has an
// admin to log in with.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	_, _, err = s.Register(ctx, RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      domain.RoleAdmin,
	})
	if err != nil {
		// Two instances may race on startup; the account exists either way.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	return nil
}

// Login verifies credentials and returns the account with a token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same error as a bad password so account existence is not leaked.
			return nil, nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The user
// is reloaded so revoked or disabled accounts stop refreshing.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is disabled")
	}

	return s.tokens.GenerateTokenPair(user)
}

// GetByID loads one account.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}
