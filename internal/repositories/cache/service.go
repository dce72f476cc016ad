package cache

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

//go:embed lua/set_balance.lua
var luaSetBalance string

// BalanceSnapshot is what the wallet caches per user. Version is the
// account's row version at the time of the read.
type BalanceSnapshot struct {
	AccountID uint            `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"`
	CachedAt  time.Time       `json:"cached_at"`
}

type CacheService struct {
	client     *redis.Client
	ttl        time.Duration
	setBalance *redis.Script
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	if client == nil {
		panic("redis client is required")
	}
	return &CacheService{
		client:     client,
		ttl:        defaultTTL,
		setBalance: redis.NewScript(luaSetBalance),
	}
}

// Get decodes the value at key into dest. A missing key is (false, nil).
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Balance caching
func (s *CacheService) GetBalance(ctx context.Context, userID uint) (*BalanceSnapshot, bool, error) {
	var snap BalanceSnapshot
	found, err := s.Get(ctx, s.GenerateKey("wallet", "user", userID), &snap)
	if err != nil || !found {
		return nil, false, err
	}
	return &snap, true, nil
}

func (s *CacheService) SetBalance(ctx context.Context, userID uint, snap *BalanceSnapshot) error {
	if snap == nil {
		return errors.New("cannot cache nil balance")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}
	// The script only writes when no snapshot of the same or a higher version is cached.
	key := s.GenerateKey("wallet", "user", userID)
	return s.setBalance.Run(ctx, s.client, []string{key}, data, snap.Version, s.ttl.Milliseconds()).Err()
}

func (s *CacheService) InvalidateBalance(ctx context.Context, userIDs ...uint) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, s.GenerateKey("wallet", "user", id))
	}
	return s.Delete(ctx, keys...)
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
