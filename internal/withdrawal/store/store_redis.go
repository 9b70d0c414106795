package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pampermomma/internal/withdrawal/models"
	"pampermomma/pkg/domain"
)

// RedisStore persists pending verifications in Redis. The key TTL is the
// expiry policy; an expired request simply stops existing.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed OTP store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func otpKey(registryID domain.RegistryID) string {
	return "withdrawal:otp:" + registryID.String()
}

func (s *RedisStore) Save(ctx context.Context, request *models.OTPRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode otp request: %w", err)
	}
	ttl := time.Until(request.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("otp request already expired")
	}
	if err := s.client.Set(ctx, otpKey(request.RegistryID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save otp request: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, registryID domain.RegistryID) (*models.OTPRequest, error) {
	payload, err := s.client.Get(ctx, otpKey(registryID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load otp request: %w", err)
	}
	var request models.OTPRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, fmt.Errorf("decode otp request: %w", err)
	}
	return &request, nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, registryID domain.RegistryID) error {
	key := otpKey(registryID)
	request, err := s.Get(ctx, registryID)
	if err != nil {
		return err
	}
	request.Attempts++

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode otp request: %w", err)
	}
	// KEEPTTL preserves the original expiry window across attempt bumps.
	if err := s.client.Set(ctx, key, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("record otp failure: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, registryID domain.RegistryID) error {
	if err := s.client.Del(ctx, otpKey(registryID)).Err(); err != nil {
		return fmt.Errorf("delete otp request: %w", err)
	}
	return nil
}
