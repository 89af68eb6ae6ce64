package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/flipsync/fabric/types"
)

// ResponseCache is the Response Cache interface (C2).
type ResponseCache interface {
	// Lookup returns a non-expired entry for fingerprint, or ok=false.
	Lookup(ctx context.Context, fingerprint string) (entry types.CacheEntry, ok bool, err error)

	// Store saves response under fingerprint for ttlSec seconds.
	// Storage is best-effort: a failure here must never fail the
	// caller's request (enforced by the Wrap helper, not by this
	// method — Store itself may return an error for callers that want
	// to know).
	Store(ctx context.Context, fingerprint string, response types.LLMResponse, ttlSec int) error

	// LookupStale returns an expired entry for fingerprint if present;
	// an entry still within its TTL yields ok=false. Optional:
	// implementations may always return ok=false.
	LookupStale(ctx context.Context, fingerprint string) (entry types.CacheEntry, ok bool, err error)
}

// entryNode is the value stored in the LRU's doubly linked list.
type entryNode struct {
	fingerprint string
	entry       types.CacheEntry
}

// LocalCache is an in-memory, bounded, LRU-evicted ResponseCache.
// Expired entries are retained (not evicted by TTL alone) so that
// LookupStale can serve them until LRU eviction finally drops them.
type LocalCache struct {
	mu       sync.Mutex
	maxSize  int
	ll       *list.List
	elements map[string]*list.Element
}

// NewLocalCache builds a LocalCache holding at most maxSize entries.
func NewLocalCache(maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &LocalCache{
		maxSize:  maxSize,
		ll:       list.New(),
		elements: make(map[string]*list.Element),
	}
}

func (c *LocalCache) Lookup(_ context.Context, fingerprint string) (types.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[fingerprint]
	if !ok {
		return types.CacheEntry{}, false, nil
	}
	node := el.Value.(*entryNode)
	if node.entry.Expired(time.Now()) {
		return types.CacheEntry{}, false, nil
	}
	c.ll.MoveToFront(el)
	return node.entry, true, nil
}

func (c *LocalCache) LookupStale(_ context.Context, fingerprint string) (types.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[fingerprint]
	if !ok {
		return types.CacheEntry{}, false, nil
	}
	node := el.Value.(*entryNode)
	if !node.entry.Expired(time.Now()) {
		return types.CacheEntry{}, false, nil
	}
	return node.entry, true, nil
}

func (c *LocalCache) Store(_ context.Context, fingerprint string, response types.LLMResponse, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := types.CacheEntry{
		Fingerprint: fingerprint,
		Response:    response,
		StoredAt:    time.Now(),
		TTLSec:      ttlSec,
	}

	if el, ok := c.elements[fingerprint]; ok {
		el.Value.(*entryNode).entry = entry
		c.ll.MoveToFront(el)
		return nil
	}

	el := c.ll.PushFront(&entryNode{fingerprint: fingerprint, entry: entry})
	c.elements[fingerprint] = el

	if c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.elements, oldest.Value.(*entryNode).fingerprint)
		}
	}
	return nil
}
