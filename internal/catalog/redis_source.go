package catalog

import (
	"context"
	"errors"
	"fmt"

	"ProjectAssistant/internal/entity"
	"ProjectAssistant/pkg/redis"
	jsoniter "github.com/json-iterator/go"
)

const DefaultCatalogKey = "assistant:catalog"

type snapshotPayload struct {
	Devices []entity.CatalogDevice `json:"devices"`
	Scenes  []entity.CatalogScene  `json:"scenes"`
}

// RedisSource reads the snapshot a home bridge keeps under a single key.
type RedisSource struct {
	client redis.IRedis
	key    string
}

func NewRedisSource(client redis.IRedis, key string) *RedisSource {
	if key == "" {
		key = DefaultCatalogKey
	}
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Name() string {
	return "redis"
}

func (s *RedisSource) Discover(ctx context.Context) ([]entity.CatalogDevice, []entity.CatalogScene, error) {
	raw, err := s.client.Get(ctx, s.key)
	if errors.Is(err, redis.ErrNil) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.key, err)
	}

	var payload snapshotPayload
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return payload.Devices, payload.Scenes, nil
}
