package services

import (
	"context"
	"testing"
	"time"

	"mailgrid/internal/caching"
	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CreateWithRole(ctx context.Context, user *models.User, roleCode string) error {
	args := m.Called(ctx, user, roleCode)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetWithRoles(ctx context.Context, id uuid.UUID) (*models.UserWithRoles, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserWithRoles), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) HasPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error) {
	args := m.Called(ctx, userID, organizationID, permissionCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoleGrant), args.Error(1)
}

func (m *MockUserRepository) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error) {
	args := m.Called(ctx, organizationID)
	return args.Int(0), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetPlans(ctx context.Context) ([]*models.PlanWithFeatures, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlanWithFeatures), args.Error(1)
}

func (m *MockCacheService) SetPlans(ctx context.Context, plans []*models.PlanWithFeatures, ttl time.Duration) error {
	args := m.Called(ctx, plans, ttl)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var (
	_ repositories.UserRepository = (*MockUserRepository)(nil)
	_ caching.CacheService        = (*MockCacheService)(nil)
)

type AuthServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockUserRepository
	mockCache *MockCacheService
	service   AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockUserRepository{}
	suite.mockCache = &MockCacheService{}
	suite.service = NewAuthService(suite.mockRepo, suite.mockCache, "test-secret")

	suite.mockRepo.Test(suite.T())
	suite.mockCache.Test(suite.T())
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func hashPassword(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hash)
}

// allowAttempts stubs the rate limiter to let the attempt through.
func (suite *AuthServiceTestSuite) allowAttempts(key string, limit int) {
	suite.mockCache.On("IsRateLimited", mock.Anything, key, limit, attemptRateWindow).Return(false, nil)
}

func (suite *AuthServiceTestSuite) activeUser(password string) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: hashPassword(suite.T(), password),
		IsActive:     true,
	}
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	withRoles := &models.UserWithRoles{User: *user, Roles: []models.RoleGrant{{Code: "INDIVIDUAL"}}}

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(withRoles, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), result.Token)
	assert.Equal(suite.T(), user.ID, result.User.ID)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPassword() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "wrong")
	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, common.ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_UnknownEmailSameError() {
	ctx := context.Background()

	suite.allowAttempts("login:ghost@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, common.ErrNotFound)

	result, err := suite.service.Login(ctx, "ghost@example.com", "anything")
	assert.Nil(suite.T(), result)
	// Same error as a wrong password, so accounts cannot be enumerated.
	assert.ErrorIs(suite.T(), err, common.ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_InactiveUser() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	user.IsActive = false

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, common.ErrInactiveUser)
}

func (suite *AuthServiceTestSuite) TestLogin_RateLimitedBeforeCredentialCheck() {
	ctx := context.Background()

	suite.mockCache.On("IsRateLimited", mock.Anything, "login:ada@example.com", loginAttemptLimit, attemptRateWindow).
		Return(true, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, common.ErrRateLimited)
	// No database work happens for a throttled attempt.
	suite.mockRepo.AssertNotCalled(suite.T(), "GetByEmail", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestLogin_RateLimiterOutageFailsOpen() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	withRoles := &models.UserWithRoles{User: *user}

	suite.mockCache.On("IsRateLimited", mock.Anything, "login:ada@example.com", loginAttemptLimit, attemptRateWindow).
		Return(true, assert.AnError)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(withRoles, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), result.Token)
}

func (suite *AuthServiceTestSuite) TestResetPassword_RateLimited() {
	ctx := context.Background()

	suite.mockCache.On("IsRateLimited", mock.Anything, "pwreset:ada@example.com", resetAttemptLimit, attemptRateWindow).
		Return(true, nil)

	token, err := suite.service.ResetPassword(ctx, "ada@example.com")
	assert.Empty(suite.T(), token)
	assert.ErrorIs(suite.T(), err, common.ErrRateLimited)
}

func (suite *AuthServiceTestSuite) TestRegister_DuplicateEmail() {
	ctx := context.Background()

	suite.mockRepo.On("CreateWithRole", ctx, mock.AnythingOfType("*models.User"), "INDIVIDUAL").
		Return(common.ErrDuplicateEmail)

	result, err := suite.service.Register(ctx, "ada@example.com", "password123", nil)
	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateEmail)
}

func (suite *AuthServiceTestSuite) TestRegister_ShortPassword() {
	result, err := suite.service.Register(context.Background(), "ada@example.com", "short", nil)
	assert.Nil(suite.T(), result)
	assert.Error(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestVerifyToken_ReFetchesUser() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	withRoles := &models.UserWithRoles{User: *user}

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(withRoles, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.NoError(suite.T(), err)

	uc, err := suite.service.VerifyToken(ctx, result.Token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, uc.UserID)
}

func (suite *AuthServiceTestSuite) TestVerifyToken_DeactivatedAfterIssue() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	withRoles := &models.UserWithRoles{User: *user}

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(withRoles, nil).Once()

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.NoError(suite.T(), err)

	// The account is disabled while the token is still unexpired.
	deactivated := *withRoles
	deactivated.IsActive = false
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(&deactivated, nil)

	uc, err := suite.service.VerifyToken(ctx, result.Token)
	assert.Nil(suite.T(), uc)
	assert.ErrorIs(suite.T(), err, common.ErrUnauthorized)
}

func (suite *AuthServiceTestSuite) TestVerifyToken_Garbage() {
	uc, err := suite.service.VerifyToken(context.Background(), "not-a-token")
	assert.Nil(suite.T(), uc)
	assert.ErrorIs(suite.T(), err, common.ErrUnauthorized)
}

func (suite *AuthServiceTestSuite) TestChangePassword_WrongCurrentIsSilent() {
	ctx := context.Background()
	user := suite.activeUser("old-password")

	suite.mockRepo.On("GetByID", ctx, user.ID).Return(user, nil)

	changed, err := suite.service.ChangePassword(ctx, user.ID, "not-the-password", "new-password-1")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), changed)
}

func (suite *AuthServiceTestSuite) TestChangePassword_MissingUserIsSilent() {
	ctx := context.Background()
	id := uuid.New()

	suite.mockRepo.On("GetByID", ctx, id).Return(nil, common.ErrNotFound)

	changed, err := suite.service.ChangePassword(ctx, id, "anything", "new-password-1")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), changed)
}

func (suite *AuthServiceTestSuite) TestChangePassword_Success() {
	ctx := context.Background()
	user := suite.activeUser("old-password")

	suite.mockRepo.On("GetByID", ctx, user.ID).Return(user, nil)
	suite.mockRepo.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).Return(nil)

	changed, err := suite.service.ChangePassword(ctx, user.ID, "old-password", "new-password-1")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), changed)
}

func (suite *AuthServiceTestSuite) TestResetPassword_UnknownEmailNoToken() {
	ctx := context.Background()

	suite.allowAttempts("pwreset:ghost@example.com", resetAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, common.ErrNotFound)

	token, err := suite.service.ResetPassword(ctx, "ghost@example.com")
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), token)
}

func (suite *AuthServiceTestSuite) TestPasswordResetRoundTrip_SingleUse() {
	ctx := context.Background()
	user := suite.activeUser("old-password")

	suite.allowAttempts("pwreset:ada@example.com", resetAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockCache.On("SetString", ctx, mock.AnythingOfType("string"), user.ID.String(), time.Hour).Return(nil)

	token, err := suite.service.ResetPassword(ctx, "ada@example.com")
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), token)

	suite.mockCache.On("GetString", ctx, mock.AnythingOfType("string")).Return(user.ID.String(), nil).Once()
	suite.mockCache.On("Delete", ctx, mock.AnythingOfType("string")).Return(nil)
	suite.mockRepo.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).Return(nil)

	err = suite.service.ConfirmPasswordReset(ctx, token, "brand-new-pass")
	assert.NoError(suite.T(), err)

	// Second use finds no cache entry and is rejected.
	suite.mockCache.On("GetString", ctx, mock.AnythingOfType("string")).Return("", nil).Once()

	err = suite.service.ConfirmPasswordReset(ctx, token, "brand-new-pass")
	assert.ErrorIs(suite.T(), err, common.ErrUnauthorized)
}

func (suite *AuthServiceTestSuite) TestConfirmPasswordReset_AccessTokenRejected() {
	ctx := context.Background()
	user := suite.activeUser("correct-horse")
	withRoles := &models.UserWithRoles{User: *user}

	suite.allowAttempts("login:ada@example.com", loginAttemptLimit)
	suite.mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	suite.mockRepo.On("GetWithRoles", ctx, user.ID).Return(withRoles, nil)

	result, err := suite.service.Login(ctx, "ada@example.com", "correct-horse")
	assert.NoError(suite.T(), err)

	// An access token is not a reset token even though the signature checks out.
	err = suite.service.ConfirmPasswordReset(ctx, result.Token, "brand-new-pass")
	assert.ErrorIs(suite.T(), err, common.ErrUnauthorized)
}
