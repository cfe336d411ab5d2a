//go:build integration

package escrow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bondly/internal/escrow"
	"bondly/internal/project"
	"bondly/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	projects *project.PostgresStore
	store    *escrow.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.projects = project.NewPostgresStore(s.postgres.Pool)
	s.store = escrow.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "movements", "projects"))
	_, err := s.projects.Fund(ctx, "p1", 0, 1000)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newMovement(slug string) *escrow.Movement {
	return &escrow.Movement{
		ProjectSlug:  "p1",
		Slug:         slug,
		Proposer:     "bob",
		Title:        "Pay for the pizza in the event.",
		Memo:         "Invoice number: WAP-123423432",
		AmountStable: 150,
		Payee:        "shop",
		Status:       escrow.StatusProposed,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	m := s.newMovement("m1")
	s.Require().NoError(s.store.CreateMovement(ctx, m))

	got, err := s.store.GetMovement(ctx, "p1", "m1")
	s.Require().NoError(err)
	s.Equal(m.Proposer, got.Proposer)
	s.Equal(m.AmountStable, got.AmountStable)
	s.Equal(escrow.StatusProposed, got.Status)
	s.Nil(got.FinalizedAt)
}

func (s *PostgresStoreSuite) TestDuplicateCreate() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateMovement(ctx, s.newMovement("m1")))
	err := s.store.CreateMovement(ctx, s.newMovement("m1"))
	s.True(errors.Is(err, escrow.ErrDuplicate))
}

func (s *PostgresStoreSuite) TestUpdateLifecycle() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateMovement(ctx, s.newMovement("m1")))

	m, err := s.store.GetMovement(ctx, "p1", "m1")
	s.Require().NoError(err)

	m.Status = escrow.StatusRejectedOnce
	m.RejectedBy = "alice"
	s.Require().NoError(s.store.UpdateMovement(ctx, m))

	now := time.Now().UTC().Truncate(time.Microsecond)
	m.Status = escrow.StatusReleased
	m.FinalizedBy = "carl"
	m.FinalizedAt = &now
	s.Require().NoError(s.store.UpdateMovement(ctx, m))

	got, err := s.store.GetMovement(ctx, "p1", "m1")
	s.Require().NoError(err)
	s.Equal(escrow.StatusReleased, got.Status)
	s.Equal("alice", got.RejectedBy)
	s.Equal("carl", got.FinalizedBy)
	s.Require().NotNil(got.FinalizedAt)
	s.True(got.FinalizedAt.Equal(now))
}

func (s *PostgresStoreSuite) TestMissing() {
	ctx := context.Background()
	_, err := s.store.GetMovement(ctx, "p1", "ghost")
	s.True(errors.Is(err, escrow.ErrNotFound))
	err = s.store.UpdateMovement(ctx, s.newMovement("ghost"))
	s.True(errors.Is(err, escrow.ErrNotFound))
}

func (s *PostgresStoreSuite) TestTotalMovements() {
	ctx := context.Background()
	total, err := s.store.TotalMovements(ctx)
	s.Require().NoError(err)
	s.Zero(total)

	s.Require().NoError(s.store.CreateMovement(ctx, s.newMovement("m1")))
	s.Require().NoError(s.store.CreateMovement(ctx, s.newMovement("m2")))

	total, err = s.store.TotalMovements(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}
