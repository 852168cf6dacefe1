package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// RedisStore persists completions in redis with a local LRU fast-path for
// the pass check. The pass claim is a single atomic SetNX: its failure is
// the authoritative conflict signal, so two racing submissions can never
// both claim the pair.
type RedisStore struct {
	redis     *redis.Client
	keys      *KeyBuilder
	passCache *lru.Cache[string, bool]
}

// NewRedisStore creates a redis-backed store. localCacheSize bounds the
// in-process pass cache.
func NewRedisStore(redisClient *redis.Client, keyPrefix string, localCacheSize int) (*RedisStore, error) {
	cache, err := lru.New[string, bool](localCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &RedisStore{
		redis:     redisClient,
		keys:      NewKeyBuilder(keyPrefix),
		passCache: cache,
	}, nil
}

func pairKey(wallet, achievementID string) string {
	return strings.ToLower(wallet) + ":" + achievementID
}

// EnsureWallet registers a wallet if absent.
func (s *RedisStore) EnsureWallet(ctx context.Context, wallet string) error {
	if err := s.redis.SAdd(ctx, s.keys.Wallets(), strings.ToLower(wallet)).Err(); err != nil {
		return fmt.Errorf("failed to register wallet: %w", err)
	}
	return nil
}

// RecordAttempt appends the attempt to the pair's list, newest first.
func (s *RedisStore) RecordAttempt(ctx context.Context, attempt *Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	key := s.keys.Attempts(attempt.Wallet, attempt.AchievementID)
	if err := s.redis.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// HasPassed checks the local cache first, then redis.
func (s *RedisStore) HasPassed(ctx context.Context, wallet, achievementID string) (bool, error) {
	cacheKey := pairKey(wallet, achievementID)
	if s.passCache.Contains(cacheKey) {
		log.Debugf("Pass check hit (local cache): %s", cacheKey)
		return true, nil
	}

	exists, err := s.redis.Exists(ctx, s.keys.Passed(wallet, achievementID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis pass check failed: %w", err)
	}
	if exists > 0 {
		s.passCache.Add(cacheKey, true)
		return true, nil
	}
	return false, nil
}

// ClaimPass atomically claims the pair with SetNX. The pass record never
// expires; the completion is terminal.
func (s *RedisStore) ClaimPass(ctx context.Context, wallet, achievementID string, attempt *Attempt) (bool, error) {
	data, err := json.Marshal(attempt)
	if err != nil {
		return false, fmt.Errorf("failed to marshal pass record: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, s.keys.Passed(wallet, achievementID), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	if ok {
		s.passCache.Add(pairKey(wallet, achievementID), true)
		log.WithFields(log.Fields{
			"wallet":      wallet,
			"achievement": achievementID,
		}).Info("✅ Pass claimed")
	}
	return ok, nil
}

// LatestPassed returns the pass record for the pair, or nil.
func (s *RedisStore) LatestPassed(ctx context.Context, wallet, achievementID string) (*Attempt, error) {
	data, err := s.redis.Get(ctx, s.keys.Passed(wallet, achievementID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis pass fetch failed: %w", err)
	}

	var attempt Attempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pass record: %w", err)
	}
	return &attempt, nil
}

// Attempts returns every recorded attempt for the pair, newest first.
func (s *RedisStore) Attempts(ctx context.Context, wallet, achievementID string) ([]*Attempt, error) {
	raw, err := s.redis.LRange(ctx, s.keys.Attempts(wallet, achievementID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis attempts fetch failed: %w", err)
	}

	attempts := make([]*Attempt, 0, len(raw))
	for _, item := range raw {
		var attempt Attempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			log.WithError(err).Warn("Skipping unparseable attempt row")
			continue
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, nil
}
