// Package cache provides the Redis-backed read-through cache used on the
// tap hot path. Only card lookups are cached; counter and spent-flag state
// is always claimed directly against the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boltcard/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func NewService(client *redis.Client, defaultTTL time.Duration) *Service {
	return &Service{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *Service) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *Service) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Service) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *Service) Close() error {
	return s.client.Close()
}

// GenerateKey builds a namespaced cache key.
func (s *Service) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// cachedCard re-adds the fields the API serialization hides. The card's
// json tags shape HTTP responses, not storage; a cached card must survive
// the round trip with its primary key and pin intact.
type cachedCard struct {
	models.Card
	ID  uint   `json:"id"`
	Pin string `json:"pin"`
}

// CacheCard stores a card under every key it is looked up by.
func (s *Service) CacheCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return errors.New("cannot cache nil card")
	}
	wrapped := cachedCard{Card: *card, ID: card.ID, Pin: card.Pin}
	keys := []string{
		s.GenerateKey("card", "external_id", card.ExternalID),
		s.GenerateKey("card", "uid", card.UID),
	}
	for _, key := range keys {
		if err := s.Set(ctx, key, wrapped); err != nil {
			return err
		}
	}
	return nil
}

// GetCard fetches a cached card by a previously generated key.
func (s *Service) GetCard(ctx context.Context, key string) (*models.Card, error) {
	var wrapped cachedCard
	if err := s.Get(ctx, key, &wrapped); err != nil {
		return nil, err
	}
	card := wrapped.Card
	card.ID = wrapped.ID
	card.Pin = wrapped.Pin
	return &card, nil
}

// InvalidateCard drops every cached key for the card.
func (s *Service) InvalidateCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return nil
	}
	return s.Delete(ctx,
		s.GenerateKey("card", "external_id", card.ExternalID),
		s.GenerateKey("card", "uid", card.UID),
	)
}
