package repositories

import (
	"context"
	"testing"
	"time"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type UserRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    UserRepository
	context context.Context
}

func (suite *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewUserRepo(mock)
	suite.context = context.Background()
}

func (suite *UserRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func (suite *UserRepoTestSuite) TestCreate_StoresEmailVerbatim() {
	user := &models.User{
		ID:        uuid.New(),
		Email:     "Ada@Example.com",
		RoleInOrg: "owner",
		IsActive:  true,
	}

	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.OrganizationID, "Ada@Example.com", user.PasswordHash, user.Name, user.RoleInOrg, user.IsActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, user)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestCreate_UniqueViolationIsDuplicateEmail() {
	user := &models.User{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		RoleInOrg: "owner",
		IsActive:  true,
	}

	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.OrganizationID, user.Email, user.PasswordHash, user.Name, user.RoleInOrg, user.IsActive).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := suite.repo.Create(suite.context, user)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateEmail)
}

func (suite *UserRepoTestSuite) TestCreateWithRole_UniqueViolationRollsBack() {
	user := &models.User{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		RoleInOrg: "owner",
		IsActive:  true,
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.OrganizationID, user.Email, user.PasswordHash, user.Name, user.RoleInOrg, user.IsActive).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	suite.mock.ExpectRollback()

	err := suite.repo.CreateWithRole(suite.context, user, common.RoleIndividual)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateEmail)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestGetByEmail_MatchesByteForByte() {
	id := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "organization_id", "email", "password_hash", "name", "role_in_org", "is_active", "created_at", "updated_at"}).
		AddRow(id, (*uuid.UUID)(nil), "Ada@Example.com", "hash", (*string)(nil), "owner", true, now, now)
	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("Ada@Example.com").
		WillReturnRows(rows)

	user, err := suite.repo.GetByEmail(suite.context, "Ada@Example.com")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Ada@Example.com", user.Email)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}
