package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/repository"
)

// ErrUserNotFound is returned when a user lookup misses.
var ErrUserNotFound = errors.New("user not found")

// UserService handles user accounts.
type UserService struct {
	userRepo    *repository.UserRepository
	authService *AuthService
	log         zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo *repository.UserRepository, authService *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		authService: authService,
		log:         log.With().Str("component", "user_service").Logger(),
	}
}

// Authenticate checks a username/password pair and returns the user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.authService.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

// Create hashes the password and stores a new user.
// Returns repository.ErrDuplicateUsername when the name is taken.
func (s *UserService) Create(ctx context.Context, username, password string, isAdmin bool) (*model.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Int("user_id", u.ID).Str("username", u.Username).Bool("is_admin", u.IsAdmin).Msg("User created")
	return u, nil
}

// ResetPassword sets a new password and drops the user's active session.
func (s *UserService) ResetPassword(ctx context.Context, id int, newPassword string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	return s.authService.ResetSession(ctx, id)
}

// EnsureAdmin creates the default administrator when no admin exists yet.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	n, err := s.userRepo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	u, err := s.Create(ctx, username, password, true)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			s.log.Warn().Str("username", username).Msg("Default admin name is taken by a non-admin user")
			return nil
		}
		return err
	}
	s.log.Warn().Str("username", u.Username).Msg("Default admin created, change its password")
	return nil
}
