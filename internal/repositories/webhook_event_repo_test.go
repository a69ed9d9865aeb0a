package repositories

import (
	"context"
	"testing"

	"mailgrid/internal/models"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type WebhookEventRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    WebhookEventRepository
	context context.Context
}

func (suite *WebhookEventRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewWebhookEventRepo(mock)
	suite.context = context.Background()
}

func (suite *WebhookEventRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestWebhookEventRepoTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookEventRepoTestSuite))
}

func (suite *WebhookEventRepoTestSuite) TestInsert_NewEvent() {
	event := &models.WebhookEvent{
		Provider:  "paypal",
		EventID:   "WH-1",
		EventType: "PAYMENT.CAPTURE.COMPLETED",
		Payload:   []byte(`{"id":"WH-1"}`),
	}

	suite.mock.ExpectExec(`INSERT INTO webhook_events`).
		WithArgs(event.Provider, event.EventID, event.EventType, event.Payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := suite.repo.Insert(suite.context, event)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
}

func (suite *WebhookEventRepoTestSuite) TestInsert_RedeliveryIsDetected() {
	event := &models.WebhookEvent{
		Provider:  "paypal",
		EventID:   "WH-1",
		EventType: "PAYMENT.CAPTURE.COMPLETED",
		Payload:   []byte(`{"id":"WH-1"}`),
	}

	// Conflict on (provider, event_id) affects zero rows.
	suite.mock.ExpectExec(`INSERT INTO webhook_events`).
		WithArgs(event.Provider, event.EventID, event.EventType, event.Payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := suite.repo.Insert(suite.context, event)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), inserted)
}

func (suite *WebhookEventRepoTestSuite) TestMarkProcessed() {
	suite.mock.ExpectExec(`UPDATE webhook_events`).
		WithArgs("paypal", "WH-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.MarkProcessed(suite.context, "paypal", "WH-1")
	assert.NoError(suite.T(), err)
}

func (suite *WebhookEventRepoTestSuite) TestMarkFailed() {
	suite.mock.ExpectExec(`UPDATE webhook_events`).
		WithArgs("paypal", "WH-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.MarkFailed(suite.context, "paypal", "WH-2")
	assert.NoError(suite.T(), err)
}
