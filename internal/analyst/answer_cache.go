package analyst

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	answerCacheMaxEntries = 256
	answerCacheTTL        = time.Hour
)

// answerCache is an LRU of answers keyed by prompt digest. Entries expire
// after a fixed TTL.
type answerCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type answerCacheEntry struct {
	key       string
	answer    string
	expiresAt time.Time
}

func newAnswerCache(maxEntries int) *answerCache {
	if maxEntries <= 0 {
		return nil
	}

	return &answerCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (c *answerCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*answerCacheEntry) //nolint:forcetypeassert // Only entries are stored.
	if now.After(entry.expiresAt) {
		c.removeElement(elem)
		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.answer, true
}

func (c *answerCache) set(key string, answer string, now time.Time) {
	if c == nil || key == "" || answer == "" {
		return
	}

	expiresAt := now.Add(answerCacheTTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*answerCacheEntry) //nolint:forcetypeassert // Only entries are stored.
		entry.answer = answer
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&answerCacheEntry{
		key:       key,
		answer:    answer,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)
	c.enforceSizeLimitLocked()
}

func (c *answerCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if entry := elem.Value.(*answerCacheEntry); now.After(entry.expiresAt) { //nolint:forcetypeassert // Only entries are stored.
			c.removeElement(elem)
		}
		elem = prev
	}
}

func (c *answerCache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *answerCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*answerCacheEntry) //nolint:forcetypeassert // Only entries are stored.

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
