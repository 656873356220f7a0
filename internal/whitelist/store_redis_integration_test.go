//go:build integration

package whitelist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodian/pkg/testutil/containers"
)

type RedisProviderSuite struct {
	suite.Suite
	container *containers.RedisContainer
	provider  *RedisProvider
	ctx       context.Context
}

func TestRedisProviderSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisProviderSuite))
}

func (s *RedisProviderSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewRedisContainer(s.T())
	s.provider = NewRedisProvider(s.container.Client, DefaultRedisKey)
}

func (s *RedisProviderSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(s.ctx))
}

func (s *RedisProviderSuite) TestMissingKeyIsConfigurationError() {
	_, err := s.provider.Read(s.ctx)
	s.ErrorIs(err, ErrConfigurationMissing)
}

func (s *RedisProviderSuite) TestReadNormalizesMembers() {
	s.Require().NoError(s.container.Client.SAdd(s.ctx, DefaultRedisKey,
		" A@X.COM ", "b@x.com", "B@X.COM").Err())

	set, err := s.provider.Read(s.ctx)
	s.Require().NoError(err)
	s.Len(set, 2)
	s.True(set.Contains("a@x.com"))
	s.True(set.Contains("b@x.com"))
}

func (s *RedisProviderSuite) TestRevocationIsImmediate() {
	s.Require().NoError(s.container.Client.SAdd(s.ctx, DefaultRedisKey, "a@x.com").Err())

	set, err := s.provider.Read(s.ctx)
	s.Require().NoError(err)
	s.True(set.Contains("a@x.com"))

	s.Require().NoError(s.container.Client.SRem(s.ctx, DefaultRedisKey, "a@x.com").Err())

	// The key still exists only while it has members; removing the last one
	// deletes it, which reads as missing configuration rather than empty.
	_, err = s.provider.Read(s.ctx)
	s.ErrorIs(err, ErrConfigurationMissing)
}
