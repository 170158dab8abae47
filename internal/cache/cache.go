package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openelec/telemetry-relay/internal/domain"
)

// Mirror keeps the latest accepted reading per facility in Redis, so sibling
// dashboard processes can serve current state without subscribing to the
// broker themselves.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func Connect(ctx context.Context, addr string) (*Mirror, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Mirror{rdb: rdb, ttl: 24 * time.Hour}, nil
}

func (m *Mirror) Store(ctx context.Context, r domain.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, "facility:"+r.FacilityID, payload, m.ttl).Err()
}

// Load returns the mirrored reading for one facility, if present.
func (m *Mirror) Load(ctx context.Context, facilityID string) (domain.Reading, bool, error) {
	var r domain.Reading
	payload, err := m.rdb.Get(ctx, "facility:"+facilityID).Bytes()
	if err == redis.Nil {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, false, err
	}
	return r, true, nil
}

func (m *Mirror) Close() error { return m.rdb.Close() }
