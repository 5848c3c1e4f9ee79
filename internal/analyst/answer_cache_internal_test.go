package analyst

import (
	"testing"
	"time"
)

func TestAnswerCacheGetSet(t *testing.T) {
	cache := newAnswerCache(2)
	if cache == nil {
		t.Fatalf("expected cache instance")
	}

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cache.set("key", "value", now)

	answer, ok := cache.get("key", now.Add(time.Minute))
	if !ok || answer != "value" {
		t.Fatalf("unexpected cached answer: %q %v", answer, ok)
	}
}

func TestAnswerCacheExpiresEntries(t *testing.T) {
	cache := newAnswerCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cache.set("key", "value", now)

	if _, ok := cache.get("key", now.Add(answerCacheTTL+time.Second)); ok {
		t.Fatalf("expected cache entry to expire")
	}

	if len(cache.entries) != 0 {
		t.Fatalf("expected expired cache entry to be removed")
	}
}

func TestAnswerCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newAnswerCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	cache.set("a", "answer-a", now)
	cache.set("b", "answer-b", now)

	if _, ok := cache.get("a", now); !ok {
		t.Fatalf("expected entry a to exist before eviction check")
	}

	cache.set("c", "answer-c", now)

	if _, ok := cache.get("a", now); !ok {
		t.Fatalf("expected entry a to remain after evicting least recently used")
	}

	if _, ok := cache.get("b", now); ok {
		t.Fatalf("expected entry b to be evicted")
	}
}

func TestAnswerCacheIgnoresEmptyValues(t *testing.T) {
	cache := newAnswerCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	cache.set("", "answer", now)
	cache.set("key", "", now)

	if len(cache.entries) != 0 {
		t.Fatalf("expected nothing to be cached, got %d entries", len(cache.entries))
	}

	var disabled *answerCache
	disabled.set("key", "answer", now)
	if _, ok := disabled.get("key", now); ok {
		t.Fatalf("expected nil cache to miss")
	}
}

func TestPromptKeyIsStable(t *testing.T) {
	if promptKey("a") != promptKey("a") || promptKey("a") == promptKey("b") {
		t.Fatalf("unexpected prompt keys")
	}
}
