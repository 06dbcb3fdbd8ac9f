package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
)

type UserService interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	// EnsureAdmin creates the super admin account on first start. An existing
	// account is left untouched.
	EnsureAdmin(ctx context.Context, username, password string) error
	ValidateUserRole(ctx context.Context, userID uint, required models.UserRole) error
}

type userService struct {
	userRepo repository.UserRepository
	logger   *logging.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *logging.Logger) UserService {
	return &userService{userRepo: userRepo, logger: logger.WithComponent("users")}
}

func (s *userService) CreateUser(ctx context.Context, user *models.User, password string) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return apperrors.Validation("username is required")
	}
	if len(password) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err)
	}
	user.PasswordHash = string(hashedPassword)
	if user.Role == "" {
		user.Role = models.Staff
	}
	user.IsActive = true

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.Conflict("username already taken").WithDetail("username", user.Username)
		}
		return apperrors.Internal(err)
	}
	s.logger.Audit(ctx, "create", "user", user.Username, map[string]any{"role": user.Role})
	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found", http.StatusNotFound)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account disabled")
	}
	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	return user, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return s.CreateUser(ctx, &models.User{Username: username, Role: models.SuperAdmin}, password)
}

func (s *userService) ValidateUserRole(ctx context.Context, userID uint, required models.UserRole) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	switch required {
	case models.Staff:
		return nil
	case models.Admin:
		if user.Role.CanAdminister() {
			return nil
		}
	case models.SuperAdmin:
		if user.Role == models.SuperAdmin {
			return nil
		}
	}
	return apperrors.New(apperrors.CodeUnauthorized, "insufficient permissions", http.StatusForbidden)
}
