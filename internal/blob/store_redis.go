package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
)

const redisKeyPrefix = "custodian:blob:"

// Redis stores each blob as a hash: payload bytes plus metadata fields.
// Paths map 1:1 onto keys under redisKeyPrefix, so prefix listing is a SCAN.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Put(ctx context.Context, obj Object) (string, error) {
	err := s.client.HSet(ctx, redisKeyPrefix+obj.Path, map[string]any{
		"bytes":        obj.Bytes,
		"content_type": obj.ContentType,
		"tenant_id":    obj.TenantID.String(),
		"resource_id":  obj.ResourceID.String(),
		"created_at":   obj.CreatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", obj.Path, err)
	}
	return obj.Path, nil
}

func (s *Redis) Get(ctx context.Context, ref string) (Object, error) {
	values, err := s.client.HGetAll(ctx, redisKeyPrefix+ref).Result()
	if err != nil {
		return Object{}, fmt.Errorf("get blob %s: %w", ref, err)
	}
	if len(values) == 0 {
		return Object{}, sentinel.ErrNotFound
	}
	obj, err := objectFromHash(ref, values)
	if err != nil {
		return Object{}, err
	}
	obj.Bytes = []byte(values["bytes"])
	return obj, nil
}

func (s *Redis) Stat(ctx context.Context, ref string) (Object, error) {
	values, err := s.client.HMGet(ctx, redisKeyPrefix+ref,
		"content_type", "tenant_id", "resource_id", "created_at").Result()
	if err != nil {
		return Object{}, fmt.Errorf("stat blob %s: %w", ref, err)
	}
	fields := map[string]string{}
	keys := []string{"content_type", "tenant_id", "resource_id", "created_at"}
	missing := true
	for i, v := range values {
		if str, ok := v.(string); ok {
			fields[keys[i]] = str
			missing = false
		}
	}
	if missing {
		return Object{}, sentinel.ErrNotFound
	}
	return objectFromHash(ref, fields)
}

func (s *Redis) Delete(ctx context.Context, ref string) error {
	deleted, err := s.client.Del(ctx, redisKeyPrefix+ref).Result()
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	match := redisKeyPrefix + prefix + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return nil, fmt.Errorf("list blobs %s: %w", prefix, err)
		}
		for _, key := range keys {
			out = append(out, strings.TrimPrefix(key, redisKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func objectFromHash(ref string, fields map[string]string) (Object, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return Object{}, fmt.Errorf("blob %s has malformed created_at: %w", ref, err)
	}
	obj := Object{
		Path:        ref,
		ContentType: fields["content_type"],
		CreatedAt:   createdAt,
	}
	if tenant, resource, err := domain.ParseBlobPath(ref); err == nil {
		obj.TenantID = tenant
		obj.ResourceID = resource
	}
	return obj, nil
}
