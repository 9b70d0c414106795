//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pampermomma/internal/registry/models"
	"pampermomma/internal/registry/store"
	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
	"pampermomma/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.Require().NoError(store.Migrate(context.Background(), s.pg.DB))
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(),
		`TRUNCATE registries, services, contributions, withdrawals`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedRegistry() *models.Registry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	reg := &models.Registry{
		ID:          domain.NewRegistryID(),
		OwnerID:     domain.NewUserID(),
		Name:        "Baby Osei",
		ShareableID: "baby-osei-2026",
		BabiesCount: 2,
		CreatedAt:   now,
		UpdatedAt:   now,
		Services: []models.Service{
			{
				ID:          domain.NewServiceID(),
				Name:        "meal prep",
				Hours:       8,
				CostPerHour: money.MustParse("15.00"),
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
	}
	reg.Services[0].RegistryID = reg.ID
	s.Require().NoError(s.store.Create(context.Background(), reg))
	return reg
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	reg := s.seedRegistry()

	got, err := s.store.GetByID(context.Background(), reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.Name, got.Name)
	s.Require().Len(got.Services, 1)
	s.Equal("15.00", got.Services[0].CostPerHour.String())
	s.Equal(int64(8), got.Services[0].Hours)

	byShare, err := s.store.GetByShareableID(context.Background(), reg.ShareableID)
	s.Require().NoError(err)
	s.Equal(reg.ID, byShare.ID)

	byService, err := s.store.GetByServiceID(context.Background(), reg.Services[0].ID)
	s.Require().NoError(err)
	s.Equal(reg.ID, byService.ID)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.GetByID(context.Background(), domain.NewRegistryID())
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.GetByShareableID(context.Background(), "missing")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestContributions() {
	reg := s.seedRegistry()
	now := time.Now().UTC().Truncate(time.Microsecond)

	c := &models.Contribution{
		ID:               domain.NewContributionID(),
		ServiceID:        reg.Services[0].ID,
		Amount:           money.MustParse("30.00"),
		ContributorName:  "Priya",
		ContributorEmail: "priya@example.com",
		Status:           models.ContributionSucceeded,
		ProcessorIntent:  "pi_int_001",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.store.RecordContribution(context.Background(), c))

	// Replaying the same intent must not create a second row.
	replay := *c
	replay.ID = domain.NewContributionID()
	err := s.store.RecordContribution(context.Background(), &replay)
	s.ErrorIs(err, store.ErrDuplicateIntent)

	got, err := s.store.FindContributionByIntent(context.Background(), "pi_int_001")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal("30.00", got.Amount.String())
	s.False(got.Fee.Valid)

	availableOn := now.Add(48 * time.Hour)
	s.Require().NoError(s.store.SetContributionFee(context.Background(), c.ID, money.MustParse("1.17"), &availableOn))

	got, err = s.store.FindContributionByIntent(context.Background(), "pi_int_001")
	s.Require().NoError(err)
	s.Require().True(got.Fee.Valid)
	s.Equal("1.17", got.Fee.Amount.String())
	s.Require().NotNil(got.AvailableOn)
	s.WithinDuration(availableOn, *got.AvailableOn, time.Second)

	loaded, err := s.store.GetByID(context.Background(), reg.ID)
	s.Require().NoError(err)
	s.Require().Len(loaded.Services[0].Contributions, 1)
}

func (s *PostgresStoreSuite) TestWithdrawals() {
	reg := s.seedRegistry()
	now := time.Now().UTC().Truncate(time.Microsecond)

	w := &models.Withdrawal{
		ID:         domain.NewWithdrawalID(),
		RegistryID: reg.ID,
		Amount:     money.MustParse("12.50"),
		Status:     models.WithdrawalPending,
		TransferID: "tr_int_001",
		CreatedAt:  now,
	}
	s.Require().NoError(s.store.AddWithdrawal(context.Background(), w))
	s.Require().NoError(s.store.SetWithdrawalStatus(context.Background(), w.ID, models.WithdrawalSucceeded))

	got, err := s.store.GetByID(context.Background(), reg.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Withdrawals, 1)
	s.Equal(models.WithdrawalSucceeded, got.Withdrawals[0].Status)
	s.Equal("12.50", got.Withdrawals[0].Amount.String())

	err = s.store.SetWithdrawalStatus(context.Background(), domain.NewWithdrawalID(), models.WithdrawalFailed)
	s.ErrorIs(err, store.ErrNotFound)
}
