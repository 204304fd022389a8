// Package redis shares qualified-contact results and job progress across
// processes through a simple get/put surface.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/prospector/internal/core/domain"
)

// Client wraps Redis operations for the result pipeline.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func qualifiedKey(jobID string) string {
	return fmt.Sprintf("qualified:%s", jobID)
}

func progressKey(jobID string) string {
	return fmt.Sprintf("progress:%s", jobID)
}

// PutQualified stores the full qualified list for a job.
func (c *Client) PutQualified(ctx context.Context, jobID string, contacts []domain.QualifiedContact) error {
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("marshal qualified: %w", err)
	}
	if err := c.rdb.Set(ctx, qualifiedKey(jobID), data, 0).Err(); err != nil {
		return fmt.Errorf("set qualified: %w", err)
	}
	return nil
}

// GetQualified loads the qualified list for a job; nil when absent.
func (c *Client) GetQualified(ctx context.Context, jobID string) ([]domain.QualifiedContact, error) {
	data, err := c.rdb.Get(ctx, qualifiedKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get qualified: %w", err)
	}

	var contacts []domain.QualifiedContact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("decode qualified: %w", err)
	}
	return contacts, nil
}

// PutProgress publishes a progress snapshot with a TTL so stale jobs age
// out on their own.
func (c *Client) PutProgress(ctx context.Context, jobID string, snapshot any, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := c.rdb.Set(ctx, progressKey(jobID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
