package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mailgrid/internal/caching"
	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	accessTokenTTL    = 24 * time.Hour
	resetTokenTTL     = time.Hour
	tokenTypeAccess   = "access"
	tokenTypeReset    = "password_reset"
	loginAttemptLimit = 10
	resetAttemptLimit = 3
	attemptRateWindow = 15 * time.Minute
)

// AuthService owns credential checks and JWT lifecycle. Tokens are a
// shortcut around the password check only; every verification re-reads the
// user so deactivation takes effect before the token expires.
type AuthService interface {
	Register(ctx context.Context, email, password string, name *string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	VerifyToken(ctx context.Context, tokenString string) (*common.UserContext, error)
	RefreshToken(ctx context.Context, tokenString string) (string, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (bool, error)
	ResetPassword(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
	HasPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error)
}

// TokenClaims are the JWT claims issued on login and registration.
type TokenClaims struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles,omitempty"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	TokenType      string   `json:"type"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo  repositories.UserRepository
	cacheSvc  caching.CacheService
	jwtSecret []byte
}

func NewAuthService(userRepo repositories.UserRepository, cacheSvc caching.CacheService, jwtSecret string) AuthService {
	return &authService{
		userRepo:  userRepo,
		cacheSvc:  cacheSvc,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates the user with an INDIVIDUAL role grant and signs them in.
func (s *authService) Register(ctx context.Context, email, password string, name *string) (*models.AuthResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
	}
	if err := s.userRepo.CreateWithRole(ctx, user, common.RoleIndividual); err != nil {
		return nil, err
	}

	withRoles, err := s.userRepo.GetWithRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.issueToken(withRoles)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: withRoles, Token: token}, nil
}

// Login verifies credentials. A missing user and a wrong password produce the
// same error so accounts cannot be enumerated. Attempts are counted per
// email before the password check, so failed guesses burn the budget too.
func (s *authService) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	if err := s.checkAttemptBudget(ctx, "login:"+email, loginAttemptLimit); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, common.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrInactiveUser
	}

	withRoles, err := s.userRepo.GetWithRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.issueToken(withRoles)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: withRoles, Token: token}, nil
}

// VerifyToken parses the token and re-fetches the user, so roles and the
// active flag come from the database, not from stale claims.
func (s *authService) VerifyToken(ctx context.Context, tokenString string) (*common.UserContext, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, common.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, common.ErrUnauthorized
	}

	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	return &common.UserContext{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Roles:          user.RoleCodes(),
	}, nil
}

// RefreshToken exchanges a still-valid access token for a fresh one.
func (s *authService) RefreshToken(ctx context.Context, tokenString string) (string, error) {
	uc, err := s.VerifyToken(ctx, tokenString)
	if err != nil {
		return "", err
	}
	user, err := s.userRepo.GetWithRoles(ctx, uc.UserID)
	if err != nil {
		return "", common.ErrUnauthorized
	}
	return s.issueToken(user)
}

// ChangePassword returns (false, nil) when the current password does not
// match; the caller cannot distinguish that from a missing user.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (bool, error) {
	if len(newPassword) < 8 {
		return false, fmt.Errorf("password must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword issues a short-lived single-use reset token. An unknown
// email still returns success to the HTTP layer; the empty token here tells
// the handler there is nothing to deliver.
func (s *authService) ResetPassword(ctx context.Context, email string) (string, error) {
	if err := s.checkAttemptBudget(ctx, "pwreset:"+email, resetAttemptLimit); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	now := time.Now()
	jti := uuid.NewString()
	claims := TokenClaims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		TokenType: tokenTypeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mailgrid-auth",
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(resetTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}

	if err := s.cacheSvc.SetString(ctx, "reset_token:"+jti, user.ID.String(), resetTokenTTL); err != nil {
		log.Printf("Failed to store reset token: %v", err)
		return "", err
	}
	return token, nil
}

// ConfirmPasswordReset consumes the reset token and sets the new password.
// The cache entry is deleted first so the token works exactly once.
func (s *authService) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	claims, err := s.parseToken(resetToken)
	if err != nil || claims.TokenType != tokenTypeReset {
		return common.ErrUnauthorized
	}

	stored, err := s.cacheSvc.GetString(ctx, "reset_token:"+claims.ID)
	if err != nil {
		return err
	}
	if stored == "" || stored != claims.UserID {
		return common.ErrUnauthorized
	}
	if err := s.cacheSvc.Delete(ctx, "reset_token:"+claims.ID); err != nil {
		return err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return common.ErrUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *authService) HasPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error) {
	return s.userRepo.HasPermission(ctx, userID, organizationID, permissionCode)
}

// checkAttemptBudget counts an attempt against the per-account budget. A
// cache outage fails open: throttling is a brake, not a lock.
func (s *authService) checkAttemptBudget(ctx context.Context, key string, limit int) error {
	limited, err := s.cacheSvc.IsRateLimited(ctx, key, limit, attemptRateWindow)
	if err != nil {
		log.Printf("Rate limit check failed for %s: %v", key, err)
		return nil
	}
	if limited {
		return common.ErrRateLimited
	}
	return nil
}

func (s *authService) issueToken(user *models.UserWithRoles) (string, error) {
	now := time.Now()
	var orgID *string
	if user.OrganizationID != nil {
		v := user.OrganizationID.String()
		orgID = &v
	}

	claims := TokenClaims{
		UserID:         user.ID.String(),
		Email:          user.Email,
		Roles:          user.RoleCodes(),
		OrganizationID: orgID,
		TokenType:      tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mailgrid-auth",
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{"mailgrid-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return token, nil
}

func (s *authService) parseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
