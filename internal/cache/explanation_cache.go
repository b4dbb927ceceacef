package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// ExplanationCache keeps generated analogy and clinical texts for a while so
// repeated clicks on the same node do not hit the model again.
type ExplanationCache struct {
	client *redisv9.Client
	ttl    time.Duration
	prefix string
}

func NewExplanationCache(client *redisv9.Client, ttl time.Duration) *ExplanationCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ExplanationCache{
		client: client,
		ttl:    ttl,
		prefix: "medtree:explain",
	}
}

func (c *ExplanationCache) Get(ctx context.Context, kind, topic string) (string, bool, error) {
	text, err := c.client.Get(ctx, c.key(kind, topic)).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get explanation failed: %w", err)
	}
	return text, true, nil
}

func (c *ExplanationCache) Set(ctx context.Context, kind, topic, text string) error {
	if err := c.client.Set(ctx, c.key(kind, topic), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set explanation failed: %w", err)
	}
	return nil
}

// key hashes the normalized topic so arbitrary user text stays a safe key.
func (c *ExplanationCache) key(kind, topic string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(topic), " "))))
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, hex.EncodeToString(sum[:16]))
}
