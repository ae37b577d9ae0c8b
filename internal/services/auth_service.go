// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type AuthService struct {
	db          *gorm.DB
	cfg         *config.Config
	rateLimiter *RateLimiter
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config, rateLimiter *RateLimiter) *AuthService {
	return &AuthService{
		db:          db,
		cfg:         cfg,
		rateLimiter: rateLimiter,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid registration data")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, storeFailure("auth.register", email, err, "")
	}
	if count > 0 {
		return nil, duplicateError("user with this email already exists")
	}

	user := &models.User{
		Username: req.Username,
		Email:    email,
		Role:     models.UserRoleStaff,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, storeFailure("auth.register", email, err, "user with this email already exists")
	}

	return s.issueToken(user)
}

// Login authenticates by email and password. Both the email and the client IP are
// subject to the failed-attempt lockout.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP string) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	identifiers := []string{"email:" + email}
	if clientIP != "" {
		identifiers = append(identifiers, "ip:"+clientIP)
	}

	for _, id := range identifiers {
		status, err := s.rateLimiter.CheckRateLimit(ctx, id)
		if err != nil {
			return nil, err
		}
		if !status.Allowed {
			return nil, lockedError(status)
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeFailure("auth.login", email, err, "")
	}

	if err != nil || user.CheckPassword(req.Password) != nil {
		var worst *RateLimitStatus
		for _, id := range identifiers {
			status, err := s.rateLimiter.RecordFailedAttempt(ctx, id)
			if err != nil {
				return nil, err
			}
			if worst == nil || status.RemainingAttempts < worst.RemainingAttempts {
				worst = status
			}
		}
		if !worst.Allowed {
			return nil, lockedError(worst)
		}
		return nil, &Error{Kind: KindUnauthorized, Message: "invalid email or password"}
	}

	// Only the email counter is reset; the address counter spans accounts.
	if err := s.rateLimiter.ClearAttempts(ctx, identifiers[0]); err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, storeFailure("auth.login", email, err, "")
	}

	return s.issueToken(&user)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user")
		}
		return nil, storeFailure("auth.get_user", userID.String(), err, "")
	}
	return &user, nil
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(
		user.ID,
		user.Username,
		string(user.Role),
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}

func lockedError(status *RateLimitStatus) *Error {
	msg := "too many failed attempts, try again later"
	if status.ResetTime != nil {
		msg = fmt.Sprintf("too many failed attempts, try again after %s",
			time.UnixMilli(*status.ResetTime).UTC().Format(time.RFC3339))
	}
	return &Error{Kind: KindLocked, Message: msg}
}
