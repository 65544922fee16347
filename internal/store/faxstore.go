package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// FaxStore maps a carrier fax id to the staged file path created for it.
// Entries are single-use: the delivery-confirmation path consumes them.
type FaxStore interface {
	Set(ctx context.Context, faxID, filePath string) error
	Get(ctx context.Context, faxID string) (string, bool, error)
	// Take atomically reads and deletes the entry, so two delivery
	// webhooks for the same fax id cannot both claim the file.
	Take(ctx context.Context, faxID string) (string, bool, error)
}

// RedisFaxStore is the redis-backed FaxStore.
type RedisFaxStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisFaxStore(rdb *redis.Client, prefix string) *RedisFaxStore {
	if prefix == "" {
		prefix = "faxgw:"
	}
	return &RedisFaxStore{rdb: rdb, prefix: prefix + "fax:"}
}

func (s *RedisFaxStore) Set(ctx context.Context, faxID, filePath string) error {
	return s.rdb.Set(ctx, s.prefix+faxID, filePath, 0).Err()
}

func (s *RedisFaxStore) Get(ctx context.Context, faxID string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+faxID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisFaxStore) Take(ctx context.Context, faxID string) (string, bool, error) {
	v, err := s.rdb.GetDel(ctx, s.prefix+faxID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
