package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userStateKeyPattern  = "session:state:%d"
	userStateScanPattern = "session:state:*"
)

// RedisStorage persists user sessions in Redis.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation. Keys expire ttl after the last write; zero keeps them forever.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetState returns the stored user state or ErrStateNotFound when absent.
func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	key := redisUserStateKey(userID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get state from redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("get session: %w", err)
	}

	var state UserState
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Error("failed to decode user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &state, nil
}

// SetState saves the provided user state and refreshes its TTL.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		s.log.Error("failed to encode user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, redisUserStateKey(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save state in redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// ClearState removes the stored state for the given user.
func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, redisUserStateKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

// GetAllStates retrieves every stored user state by scanning Redis keys.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		result []*UserState
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, userStateScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan user states", slog.Any("error", err))
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch user state", slog.String("key", key), slog.Any("error", err))
				return nil, err
			}

			var userState UserState
			if err := json.Unmarshal(data, &userState); err != nil {
				s.log.Warn("skipping undecodable user state", slog.String("key", key), slog.Any("error", err))
				continue
			}

			result = append(result, &userState)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func redisUserStateKey(userID int64) string {
	return fmt.Sprintf(userStateKeyPattern, userID)
}
