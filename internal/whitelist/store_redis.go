package whitelist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the SET key an administrator populates out-of-band.
const DefaultRedisKey = "custodian:whitelist"

// RedisProvider reads the whitelist from a Redis SET on every call. A missing
// key is reported as ErrConfigurationMissing; an existing empty set denies
// everyone but is not a configuration error.
type RedisProvider struct {
	client redis.Cmdable
	key    string
}

func NewRedisProvider(client redis.Cmdable, key string) *RedisProvider {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisProvider{client: client, key: key}
}

func (p *RedisProvider) Read(ctx context.Context) (Set, error) {
	pipe := p.client.Pipeline()
	existsCmd := pipe.Exists(ctx, p.key)
	membersCmd := pipe.SMembers(ctx, p.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}

	if existsCmd.Val() == 0 {
		return nil, ErrConfigurationMissing
	}

	return NewSet(membersCmd.Val()...), nil
}
