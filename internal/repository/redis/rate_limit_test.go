package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitStore_RecordAndCount(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRateLimitStore(client, "sop:ratelimit", time.Minute)

	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := store.RecordAttempt(ctx, "revert:10.0.0.1", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := store.CountAttempts(ctx, "revert:10.0.0.1", time.Minute, base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	// A different identifier has its own window.
	count, err = store.CountAttempts(ctx, "revert:10.0.0.2", time.Minute, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts for other identifier, got %d", count)
	}
}

func TestRateLimitStore_TrimWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRateLimitStore(client, "", time.Minute)

	ctx := context.Background()
	base := time.Now().UTC()

	if err := store.RecordAttempt(ctx, "revert:ip", base.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := store.RecordAttempt(ctx, "revert:ip", base); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := store.TrimWindow(ctx, "revert:ip", time.Minute, base); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := store.CountAttempts(ctx, "revert:ip", time.Hour, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stale attempt removed, got %d", count)
	}
}

func TestRateLimitStore_OldestAttempt(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRateLimitStore(client, "", time.Minute)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	if _, found, err := store.OldestAttempt(ctx, "revert:ip", time.Minute, base); err != nil || found {
		t.Fatalf("expected no attempts, found=%v err=%v", found, err)
	}

	first := base.Add(-30 * time.Second)
	if err := store.RecordAttempt(ctx, "revert:ip", first); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := store.RecordAttempt(ctx, "revert:ip", base); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	oldest, found, err := store.OldestAttempt(ctx, "revert:ip", time.Minute, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected an attempt inside the window")
	}
	if !oldest.Equal(first) {
		t.Fatalf("expected oldest %v, got %v", first, oldest)
	}
}
