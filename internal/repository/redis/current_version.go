package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/mugiisha/sop-sub001/internal/core/port"
	"github.com/mugiisha/sop-sub001/internal/repository"
)

const defaultCurrentVersionPrefix = "sop:current_version"

// CurrentVersionCache caches the current version number per document for
// low-latency history reads. The ledger remains authoritative.
type CurrentVersionCache struct {
	client *red.Client
	prefix string
}

// NewCurrentVersionCache constructs the current version cache helper.
func NewCurrentVersionCache(client *red.Client, keyPrefix string) *CurrentVersionCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCurrentVersionPrefix
	}

	return &CurrentVersionCache{client: client, prefix: prefix}
}

// GetCurrentVersion fetches the cached current version number.
func (c *CurrentVersionCache) GetCurrentVersion(ctx context.Context, documentID string) (int64, error) {
	key := c.key(documentID)
	if key == "" {
		return 0, fmt.Errorf("document id is required")
	}

	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("redis get current version: %w", err)
	}

	number, parseErr := strconv.ParseInt(result, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("parse cached current version: %w", parseErr)
	}

	return number, nil
}

// SetCurrentVersion stores the current version number with a TTL.
func (c *CurrentVersionCache) SetCurrentVersion(ctx context.Context, documentID string, number int64, ttl time.Duration) error {
	key := c.key(documentID)
	if key == "" {
		return fmt.Errorf("document id is required")
	}

	if err := c.client.Set(ctx, key, strconv.FormatInt(number, 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis set current version: %w", err)
	}

	return nil
}

// DeleteCurrentVersion drops the cached entry for the document.
func (c *CurrentVersionCache) DeleteCurrentVersion(ctx context.Context, documentID string) error {
	key := c.key(documentID)
	if key == "" {
		return fmt.Errorf("document id is required")
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete current version: %w", err)
	}

	return nil
}

func (c *CurrentVersionCache) key(documentID string) string {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, documentID)
}

var _ port.CurrentVersionCache = (*CurrentVersionCache)(nil)
