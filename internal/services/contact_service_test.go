package services

import (
	"context"
	"testing"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockContactRepository) List(ctx context.Context, scope models.Scope, filters *models.ContactFilters) ([]*models.Contact, error) {
	args := m.Called(ctx, scope, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contact), args.Error(1)
}

func (m *MockContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContactRepository) Count(ctx context.Context, scope models.Scope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

func (m *MockContactRepository) ListTags(ctx context.Context, scope models.Scope) ([]string, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

var _ repositories.ContactRepository = (*MockContactRepository)(nil)

type ContactServiceTestSuite struct {
	suite.Suite
	mockRepo   *MockContactRepository
	mockSubSvc *MockSubscriptionService
	service    ContactService

	userID uuid.UUID
	orgID  uuid.UUID
	uc     common.UserContext
	scope  models.Scope
}

func (suite *ContactServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockContactRepository{}
	suite.mockSubSvc = &MockSubscriptionService{}
	suite.service = NewContactService(suite.mockRepo, suite.mockSubSvc)
	suite.userID = uuid.New()
	suite.orgID = uuid.New()
	suite.uc = common.UserContext{UserID: suite.userID}
	suite.scope = models.UserScope(suite.userID)

	suite.mockRepo.Test(suite.T())
	suite.mockSubSvc.Test(suite.T())
}

func (suite *ContactServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockSubSvc.AssertExpectations(suite.T())
}

func TestContactServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ContactServiceTestSuite))
}

func (suite *ContactServiceTestSuite) TestCreate_UnderLimit() {
	ctx := context.Background()

	suite.mockSubSvc.On("GetLimit", ctx, suite.scope, "contact_limit").Return(100, false, nil)
	suite.mockRepo.On("Count", ctx, suite.scope).Return(42, nil)
	suite.mockRepo.On("Create", ctx, mock.MatchedBy(func(c *models.Contact) bool {
		return c.UserID != nil && *c.UserID == suite.userID && c.OrganizationID == nil
	})).Return(nil)
	suite.mockRepo.On("GetByID", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(&models.Contact{Email: "lee@example.com", UserID: &suite.userID}, nil)

	got, err := suite.service.Create(ctx, suite.uc, &models.Contact{Email: "lee@example.com"})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "lee@example.com", got.Email)
}

func (suite *ContactServiceTestSuite) TestCreate_LimitReached() {
	ctx := context.Background()

	suite.mockSubSvc.On("GetLimit", ctx, suite.scope, "contact_limit").Return(100, false, nil)
	suite.mockRepo.On("Count", ctx, suite.scope).Return(100, nil)

	got, err := suite.service.Create(ctx, suite.uc, &models.Contact{Email: "lee@example.com"})
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, common.ErrForbidden)
	suite.mockRepo.AssertNotCalled(suite.T(), "Create")
}

func (suite *ContactServiceTestSuite) TestCreate_NoSubscriptionStillAllowed() {
	ctx := context.Background()

	// Without a live subscription there is no limit row; creation proceeds.
	suite.mockSubSvc.On("GetLimit", ctx, suite.scope, "contact_limit").
		Return(0, false, common.ErrNoActiveSubscription)
	suite.mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Contact")).Return(nil)
	suite.mockRepo.On("GetByID", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(&models.Contact{Email: "lee@example.com", UserID: &suite.userID}, nil)

	_, err := suite.service.Create(ctx, suite.uc, &models.Contact{Email: "lee@example.com"})
	assert.NoError(suite.T(), err)
}

func (suite *ContactServiceTestSuite) TestCreate_OrgMemberCreatesOrgContact() {
	ctx := context.Background()
	uc := common.UserContext{UserID: suite.userID, OrganizationID: &suite.orgID}
	scope := models.Scope{UserID: suite.userID, OrganizationID: &suite.orgID}

	suite.mockSubSvc.On("GetLimit", ctx, scope, "contact_limit").Return(0, true, nil)
	suite.mockRepo.On("Create", ctx, mock.MatchedBy(func(c *models.Contact) bool {
		return c.UserID == nil && c.OrganizationID != nil && *c.OrganizationID == suite.orgID
	})).Return(nil)
	suite.mockRepo.On("GetByID", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(&models.Contact{Email: "lee@example.com", OrganizationID: &suite.orgID}, nil)

	_, err := suite.service.Create(ctx, uc, &models.Contact{Email: "lee@example.com"})
	assert.NoError(suite.T(), err)
}

func (suite *ContactServiceTestSuite) TestGetByID_CrossTenantReportsNotFound() {
	ctx := context.Background()
	otherUser := uuid.New()
	contactID := uuid.New()

	suite.mockRepo.On("GetByID", ctx, contactID).
		Return(&models.Contact{ID: contactID, UserID: &otherUser}, nil)

	got, err := suite.service.GetByID(ctx, suite.uc, contactID)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *ContactServiceTestSuite) TestUpdate_BlankEmailRejected() {
	ctx := context.Background()
	contactID := uuid.New()
	blank := "  "

	suite.mockRepo.On("GetByID", ctx, contactID).
		Return(&models.Contact{ID: contactID, UserID: &suite.userID, Email: "lee@example.com"}, nil)

	got, err := suite.service.Update(ctx, suite.uc, contactID, &models.ContactPatch{Email: &blank})
	assert.Nil(suite.T(), got)
	assert.Error(suite.T(), err)
	suite.mockRepo.AssertNotCalled(suite.T(), "Update")
}

func (suite *ContactServiceTestSuite) TestListTags_ScopedToCaller() {
	ctx := context.Background()
	uc := common.UserContext{UserID: suite.userID, OrganizationID: &suite.orgID}

	suite.mockRepo.On("ListTags", ctx, mock.MatchedBy(func(s models.Scope) bool {
		return s.UserID == suite.userID && s.OrganizationID != nil && *s.OrganizationID == suite.orgID
	})).Return([]string{"newsletter", "vip"}, nil)

	tags, err := suite.service.ListTags(ctx, uc)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"newsletter", "vip"}, tags)
}

func (suite *ContactServiceTestSuite) TestList_OrgMemberKeepsOwnContactsVisible() {
	ctx := context.Background()
	uc := common.UserContext{UserID: suite.userID, OrganizationID: &suite.orgID}

	// The query scope must carry the member's own user id next to the org id,
	// so contacts created before joining the org stay visible.
	suite.mockRepo.On("List", ctx, mock.MatchedBy(func(s models.Scope) bool {
		return s.UserID == suite.userID && s.OrganizationID != nil && *s.OrganizationID == suite.orgID
	}), (*models.ContactFilters)(nil)).Return([]*models.Contact{{Email: "lee@example.com"}}, nil)

	contacts, err := suite.service.List(ctx, uc, nil)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), contacts, 1)
}

func (suite *ContactServiceTestSuite) TestDelete_CrossTenant() {
	ctx := context.Background()
	otherUser := uuid.New()
	contactID := uuid.New()

	suite.mockRepo.On("GetByID", ctx, contactID).
		Return(&models.Contact{ID: contactID, UserID: &otherUser}, nil)

	err := suite.service.Delete(ctx, suite.uc, contactID)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
	suite.mockRepo.AssertNotCalled(suite.T(), "Delete")
}
