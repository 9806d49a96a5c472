//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"procura/internal/mandate/store/revocation"
	id "procura/pkg/domain"
	"procura/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	mandateID := id.NewMandateID()

	revoked, err := s.list.IsRevoked(ctx, mandateID)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, mandateID, time.Hour))

	revoked, err = s.list.IsRevoked(ctx, mandateID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *RedisListSuite) TestRevocationExpiresWithTTL() {
	ctx := context.Background()
	mandateID := id.NewMandateID()

	s.Require().NoError(s.list.Revoke(ctx, mandateID, 100*time.Millisecond))

	s.Require().Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, mandateID)
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisListSuite) TestRevocationsAreIndependent() {
	ctx := context.Background()

	revokedID := id.NewMandateID()
	s.Require().NoError(s.list.Revoke(ctx, revokedID, time.Hour))

	other, err := s.list.IsRevoked(ctx, id.NewMandateID())
	s.Require().NoError(err)
	s.False(other)
}
