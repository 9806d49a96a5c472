package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"procura/internal/mandate/models"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

type MandateStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MandateStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMandateStoreSuite(t *testing.T) {
	suite.Run(t, new(MandateStoreSuite))
}

func (s *MandateStoreSuite) newMandate(userID id.UserID, provider id.Provider, createdAt time.Time) *models.Mandate {
	return &models.Mandate{
		ID:             id.NewMandateID(),
		UserID:         userID,
		Provider:       provider,
		Scopes:         id.NewScopes([]string{"scp:login", "scp:pay"}),
		MaxAmountCents: 50000,
		ValidFrom:      createdAt,
		ValidUntil:     createdAt.Add(24 * time.Hour),
		TimePeriod:     "1440m",
		CredentialType: models.CredentialSignedToken,
		Status:         models.StatusActive,
		Token:          "header.payload.signature",
		CreatedAt:      createdAt,
	}
}

func (s *MandateStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by ID", func() {
		m := s.newMandate(id.UserID(uuid.New()), "skiclubpro", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, m))

		found, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(m.Token, found.Token)
		s.Equal(m.Scopes, found.Scopes)
	})

	s.Run("duplicate ID conflicts", func() {
		m := s.newMandate(id.UserID(uuid.New()), "skiclubpro", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, m))
		s.Require().ErrorIs(s.store.Create(s.ctx, m), sentinel.ErrConflict)
	})

	s.Run("unknown ID is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewMandateID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MandateStoreSuite) TestFindLatestActive() {
	userID := id.UserID(uuid.New())
	now := time.Now()

	s.Run("picks the most recent active record", func() {
		older := s.newMandate(userID, "daysmart", now.Add(-2*time.Hour))
		newer := s.newMandate(userID, "daysmart", now.Add(-1*time.Hour))
		s.Require().NoError(s.store.Create(s.ctx, older))
		s.Require().NoError(s.store.Create(s.ctx, newer))

		found, err := s.store.FindLatestActive(s.ctx, userID, "daysmart", now)
		s.Require().NoError(err)
		s.Equal(newer.ID, found.ID)
	})

	s.Run("ignores revoked records", func() {
		revokedUser := id.UserID(uuid.New())
		m := s.newMandate(revokedUser, "campminder", now)
		m.Status = models.StatusRevoked
		s.Require().NoError(s.store.Create(s.ctx, m))

		_, err := s.store.FindLatestActive(s.ctx, revokedUser, "campminder", now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("ignores records past valid_until", func() {
		expiredUser := id.UserID(uuid.New())
		m := s.newMandate(expiredUser, "campminder", now.Add(-48*time.Hour))
		s.Require().NoError(s.store.Create(s.ctx, m))

		_, err := s.store.FindLatestActive(s.ctx, expiredUser, "campminder", now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("scoped to provider", func() {
		_, err := s.store.FindLatestActive(s.ctx, userID, "skiclubpro", now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MandateStoreSuite) TestUpdateStatus() {
	m := s.newMandate(id.UserID(uuid.New()), "skiclubpro", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, m))

	s.Require().NoError(s.store.UpdateStatus(s.ctx, m.ID, models.StatusRevoked))

	found, err := s.store.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)

	s.Require().ErrorIs(s.store.UpdateStatus(s.ctx, id.NewMandateID(), models.StatusRevoked), sentinel.ErrNotFound)
}

func (s *MandateStoreSuite) TestListByUser() {
	userID := id.UserID(uuid.New())
	now := time.Now()
	first := s.newMandate(userID, "skiclubpro", now.Add(-time.Hour))
	second := s.newMandate(userID, "daysmart", now)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, s.newMandate(id.UserID(uuid.New()), "skiclubpro", now)))

	listed, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID, "most recent first")
	s.Equal(first.ID, listed[1].ID)
}
