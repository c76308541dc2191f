package utils

import (
	"context"
	"testing"
	"time"
)

func TestSlotScriptsInitialized(t *testing.T) {
	if slotAcquireScript == nil || slotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestSlotLimiter_RejectsBadInput(t *testing.T) {
	var nilLimiter *SlotLimiter
	if _, err := nilLimiter.Acquire(context.Background(), "k", 1); err == nil {
		t.Fatalf("expected error for nil limiter")
	}
	l := NewSlotLimiter(nil, time.Minute)
	if _, err := l.Acquire(context.Background(), "k", 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisDefaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.PoolSize != 10 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
}
