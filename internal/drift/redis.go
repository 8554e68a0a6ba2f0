package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// RedisStore is the Pro tier drift store. Live risk values are plain
// keys; histories are Redis lists so appends preserve insertion order
// across nodes.
type RedisStore struct {
	client *redis.Client
	cfg    domain.DriftConfig
}

// NewRedisStore creates a Redis-backed drift store.
func NewRedisStore(cfg domain.DriftConfig) (*RedisStore, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, cfg: cfg}, nil
}

func riskKey(tenantID, account string) string {
	return "neuroaml:" + tenantID + ":risk:" + account
}

func historyKey(tenantID, account string) string {
	return "neuroaml:" + tenantID + ":history:" + account
}

// CurrentRisk implements domain.RiskLookup. Unknown accounts are 0.
func (s *RedisStore) CurrentRisk(ctx context.Context, tenantID, account string) (float64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	val, err := s.client.Get(ctx, riskKey(tenantID, account)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	risk, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt risk value for %s: %w", account, err)
	}
	return risk, nil
}

// SetRisk pins an account's live risk.
func (s *RedisStore) SetRisk(ctx context.Context, tenantID, account string, risk float64) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	return s.client.Set(ctx, riskKey(tenantID, account), strconv.FormatFloat(risk, 'f', -1, 64), 0).Err()
}

// Advance drifts the account's live risk one cycle forward. The
// get-compute-set runs in a transactional watch so concurrent cycles
// on the same account never lose an update.
func (s *RedisStore) Advance(ctx context.Context, tenantID, account string, base float64) (float64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}

	key := riskKey(tenantID, account)
	var next float64

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current := base
		val, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			current, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("corrupt risk value for %s: %w", account, err)
			}
		}

		next = advance(s.cfg, current)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, strconv.FormatFloat(next, 'f', -1, 64), 0)
			return nil
		})
		return err
	}, key)

	if err != nil {
		return 0, err
	}
	return next, nil
}

// AppendHistory RPUSHes a sample onto the account's history list.
func (s *RedisStore) AppendHistory(ctx context.Context, tenantID, account string, sample domain.RiskHistorySample) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, historyKey(tenantID, account), payload).Err()
}

// History returns the account's samples in insertion order.
func (s *RedisStore) History(ctx context.Context, tenantID, account string) ([]domain.RiskHistorySample, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	raw, err := s.client.LRange(ctx, historyKey(tenantID, account), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	samples := make([]domain.RiskHistorySample, 0, len(raw))
	for _, item := range raw {
		var sample domain.RiskHistorySample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			return nil, fmt.Errorf("corrupt history entry for %s: %w", account, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
