package repositories

import (
	"context"
	"testing"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type CampaignRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    CampaignRepository
	userID  uuid.UUID
	context context.Context
}

func (suite *CampaignRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewCampaignRepo(mock)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *CampaignRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestCampaignRepoTestSuite(t *testing.T) {
	suite.Run(t, new(CampaignRepoTestSuite))
}

func (suite *CampaignRepoTestSuite) TestCreate_WithContent() {
	userID := suite.userID
	campaign := &models.Campaign{
		ID:             uuid.New(),
		SubscriptionID: uuid.New(),
		UserID:         &userID,
		Name:           "Spring Launch",
		Status:         models.CampaignStatusDraft,
	}
	campaign.Content = &models.CampaignContent{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		Subject:    stringPtr("Hello"),
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs(campaign.ID, campaign.SubscriptionID, campaign.UserID, campaign.OrganizationID, campaign.Name, campaign.Status, campaign.SendDate).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO campaign_content`).
		WithArgs(campaign.Content.ID, campaign.ID, campaign.Content.Subject, campaign.Content.BodyHTML, campaign.Content.BodyText, campaign.Content.TemplateCode).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.Create(suite.context, campaign)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *CampaignRepoTestSuite) TestCreate_WithoutContentSkipsContentRow() {
	userID := suite.userID
	campaign := &models.Campaign{
		ID:             uuid.New(),
		SubscriptionID: uuid.New(),
		UserID:         &userID,
		Name:           "Bare Draft",
		Status:         models.CampaignStatusDraft,
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs(campaign.ID, campaign.SubscriptionID, campaign.UserID, campaign.OrganizationID, campaign.Name, campaign.Status, campaign.SendDate).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.Create(suite.context, campaign)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *CampaignRepoTestSuite) TestDelete_RemovesChildrenFirst() {
	id := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`DELETE FROM campaign_recipients`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))
	suite.mock.ExpectExec(`DELETE FROM campaign_metrics`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	suite.mock.ExpectExec(`DELETE FROM campaign_content`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	suite.mock.ExpectExec(`DELETE FROM campaigns`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.Delete(suite.context, id)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *CampaignRepoTestSuite) TestDelete_MissingCampaign() {
	id := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`DELETE FROM campaign_recipients`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	suite.mock.ExpectExec(`DELETE FROM campaign_metrics`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	suite.mock.ExpectExec(`DELETE FROM campaign_content`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	suite.mock.ExpectExec(`DELETE FROM campaigns`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.Delete(suite.context, id)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *CampaignRepoTestSuite) TestCountByStatus() {
	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow(models.CampaignStatusDraft, 3).
		AddRow(models.CampaignStatusSent, 5)
	suite.mock.ExpectQuery(`SELECT status, COUNT\(\*\)`).
		WithArgs(&suite.userID, (*uuid.UUID)(nil)).
		WillReturnRows(rows)

	counts, err := suite.repo.CountByStatus(suite.context, models.UserScope(suite.userID))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, counts[models.CampaignStatusDraft])
	assert.Equal(suite.T(), 5, counts[models.CampaignStatusSent])
}
