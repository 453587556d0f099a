//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idvgate/internal/profile/store"
	"idvgate/internal/verification/models"
	"idvgate/pkg/platform/sentinel"
	txcontext "idvgate/pkg/platform/tx"
	"idvgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "subject_verifications"))
}

func (s *PostgresStoreSuite) TestMergeIsMonotonic() {
	ctx := context.Background()
	later := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-48 * time.Hour)

	_, err := s.store.MergeVerification(ctx, "auth0|abc", models.VerificationRecord{
		Status: models.StatusPassed, LastCheckAt: &later, CheckCount: 4, ReferenceURL: "ref-1",
	})
	s.Require().NoError(err)

	got, err := s.store.MergeVerification(ctx, "auth0|abc", models.VerificationRecord{
		Status: models.StatusFlagged, LastCheckAt: &earlier, CheckCount: 2, ReferenceURL: "ref-2",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusFlagged, got.Status)
	s.Equal("ref-2", got.ReferenceURL)
	s.Equal(4, got.CheckCount)
	s.True(got.LastCheckAt.Equal(later))

	found, err := s.store.FindVerification(ctx, "auth0|abc")
	s.Require().NoError(err)
	s.Equal(*got, *found)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindVerification(context.Background(), "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMergeJoinsContextTransaction() {
	ctx := context.Background()
	rollback := errors.New("rollback")

	err := txcontext.RunInTx(ctx, s.postgres.DB, func(ctx context.Context) error {
		if _, err := s.store.MergeVerification(ctx, "auth0|tx", models.VerificationRecord{CheckCount: 1}); err != nil {
			return err
		}
		return rollback
	})
	s.ErrorIs(err, rollback)

	_, err = s.store.FindVerification(ctx, "auth0|tx")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
