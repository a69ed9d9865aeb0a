package repositories

import (
	"context"
	"testing"
	"time"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SubscriptionRepository
	userID  uuid.UUID
	orgID   uuid.UUID
	planID  uuid.UUID
	context context.Context
}

func (suite *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewSubscriptionRepo(mock)
	suite.userID = uuid.New()
	suite.orgID = uuid.New()
	suite.planID = uuid.New()
	suite.context = context.Background()
}

func (suite *SubscriptionRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (suite *SubscriptionRepoTestSuite) newSubscription() *models.Subscription {
	now := time.Now()
	end := now.AddDate(0, 1, 0)
	userID := suite.userID
	return &models.Subscription{
		ID:        uuid.New(),
		UserID:    &userID,
		PlanID:    suite.planID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   &end,
		AutoRenew: true,
	}
}

func (suite *SubscriptionRepoTestSuite) TestCreate_SnapshotsFeatures() {
	sub := suite.newSubscription()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(sub.UserID, sub.OrganizationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.TrialEndDate, sub.AutoRenew).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO subscription_feature_access`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.EndDate, sub.PlanID).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	suite.mock.ExpectCommit()

	err := suite.repo.Create(suite.context, sub)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestCreate_PlanWithoutFeaturesRollsBack() {
	sub := suite.newSubscription()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(sub.UserID, sub.OrganizationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.TrialEndDate, sub.AutoRenew).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO subscription_feature_access`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.EndDate, sub.PlanID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.Create(suite.context, sub)
	assert.ErrorIs(suite.T(), err, common.ErrPlanHasNoFeatures)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestCreate_SupersedesPriorActive() {
	sub := suite.newSubscription()

	suite.mock.ExpectBegin()
	// One prior ACTIVE subscription gets cancelled.
	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(sub.UserID, sub.OrganizationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.TrialEndDate, sub.AutoRenew).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO subscription_feature_access`).
		WithArgs(sub.ID, sub.UserID, sub.OrganizationID, sub.EndDate, sub.PlanID).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	suite.mock.ExpectCommit()

	err := suite.repo.Create(suite.context, sub)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestChangePlan_VersionConflict() {
	subscriptionID := uuid.New()
	newPlanID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(newPlanID, subscriptionID, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.ChangePlan(suite.context, subscriptionID, newPlanID, 3)
	assert.ErrorIs(suite.T(), err, common.ErrVersionConflict)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestChangePlan_RegeneratesSnapshot() {
	subscriptionID := uuid.New()
	newPlanID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(newPlanID, subscriptionID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec(`DELETE FROM subscription_feature_access`).
		WithArgs(subscriptionID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	suite.mock.ExpectExec(`INSERT INTO subscription_feature_access`).
		WithArgs(subscriptionID).
		WillReturnResult(pgxmock.NewResult("INSERT", 4))
	suite.mock.ExpectCommit()

	err := suite.repo.ChangePlan(suite.context, subscriptionID, newPlanID, 1)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()

	suite.mock.ExpectQuery(`SELECT (.+) FROM subscriptions WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	sub, err := suite.repo.GetByID(suite.context, id)
	assert.Nil(suite.T(), sub)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *SubscriptionRepoTestSuite) TestGetActiveByScope_NoneLive() {
	suite.mock.ExpectQuery(`SELECT (.+) FROM subscriptions`).
		WithArgs(&suite.userID, (*uuid.UUID)(nil)).
		WillReturnError(pgx.ErrNoRows)

	sub, err := suite.repo.GetActiveByScope(suite.context, models.UserScope(suite.userID))
	assert.Nil(suite.T(), sub)
	assert.ErrorIs(suite.T(), err, common.ErrNoActiveSubscription)
}

func (suite *SubscriptionRepoTestSuite) TestGetActiveByScope_MemberQueriesBothColumns() {
	// An org member's lookup binds their user id and org id, so user-owned
	// subscriptions from before joining still match.
	suite.mock.ExpectQuery(`SELECT (.+) FROM subscriptions`).
		WithArgs(&suite.userID, &suite.orgID).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetActiveByScope(suite.context, models.MemberScope(suite.userID, suite.orgID))
	assert.ErrorIs(suite.T(), err, common.ErrNoActiveSubscription)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *SubscriptionRepoTestSuite) TestCancel_AlreadyCancelled() {
	id := uuid.New()

	suite.mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.Cancel(suite.context, id)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *SubscriptionRepoTestSuite) TestHasFeatureAccess() {
	rows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	suite.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("advanced_templates", &suite.userID, (*uuid.UUID)(nil)).
		WillReturnRows(rows)

	allowed, err := suite.repo.HasFeatureAccess(suite.context, models.UserScope(suite.userID), "advanced_templates")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
}
