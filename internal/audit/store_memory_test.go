package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

type AuditStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *AuditStoreSuite) newEntry(tool string, planExecutionID id.PlanExecutionID) *Entry {
	return &Entry{
		ID:              id.NewEntryID(),
		PlanExecutionID: planExecutionID,
		MandateID:       id.NewMandateID(),
		Tool:            tool,
		Args:            map[string]any{"provider": "skiclubpro"},
		Decision:        DecisionPending,
		CreatedAt:       time.Now().UTC(),
	}
}

func (s *AuditStoreSuite) TestInsertAndFind() {
	entry := s.newEntry("login", "plan-1")
	s.Require().NoError(s.store.Insert(s.ctx, entry))

	found, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(entry.Tool, found.Tool)
	s.Equal(DecisionPending, found.Decision)
	s.Nil(found.SealedAt)
}

func (s *AuditStoreSuite) TestInsertDuplicateConflicts() {
	entry := s.newEntry("login", "plan-1")
	s.Require().NoError(s.store.Insert(s.ctx, entry))
	s.ErrorIs(s.store.Insert(s.ctx, entry), sentinel.ErrConflict)
}

func (s *AuditStoreSuite) TestSealTransitionsOnce() {
	entry := s.newEntry("register", "plan-1")
	s.Require().NoError(s.store.Insert(s.ctx, entry))

	sealedAt := time.Now().UTC()
	s.Require().NoError(s.store.Seal(s.ctx, entry.ID, DecisionAllowed, map[string]any{"ok": true}, sealedAt))

	found, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(DecisionAllowed, found.Decision)
	s.Require().NotNil(found.SealedAt)
	s.True(found.SealedAt.Equal(sealedAt))

	err = s.store.Seal(s.ctx, entry.ID, DecisionDenied, nil, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrInvalidState)

	// The first seal's decision survives the rejected second attempt.
	found, err = s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(DecisionAllowed, found.Decision)
}

func (s *AuditStoreSuite) TestSealMissingEntry() {
	err := s.store.Seal(s.ctx, id.NewEntryID(), DecisionAllowed, nil, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AuditStoreSuite) TestListByPlanExecutionOrdersByCreation() {
	first := s.newEntry("login", "plan-1")
	second := s.newEntry("register", "plan-1")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := s.newEntry("login", "plan-2")

	for _, entry := range []*Entry{second, other, first} {
		s.Require().NoError(s.store.Insert(s.ctx, entry))
	}

	entries, err := s.store.ListByPlanExecution(s.ctx, "plan-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(first.ID, entries[0].ID)
	s.Equal(second.ID, entries[1].ID)
}

func (s *AuditStoreSuite) TestListByMandate() {
	entry := s.newEntry("login", "plan-1")
	s.Require().NoError(s.store.Insert(s.ctx, entry))
	s.Require().NoError(s.store.Insert(s.ctx, s.newEntry("login", "plan-2")))

	entries, err := s.store.ListByMandate(s.ctx, entry.MandateID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(entry.ID, entries[0].ID)
}

func (s *AuditStoreSuite) TestListByTool() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newEntry("login", "plan-1")))
	s.Require().NoError(s.store.Insert(s.ctx, s.newEntry("register", "plan-1")))

	entries, err := s.store.ListByTool(s.ctx, "register")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("register", entries[0].Tool)
}

func (s *AuditStoreSuite) TestCopiesAreIsolated() {
	entry := s.newEntry("login", "plan-1")
	s.Require().NoError(s.store.Insert(s.ctx, entry))

	found, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	found.Args["provider"] = "mutated"

	again, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal("skiclubpro", again.Args["provider"])
}
