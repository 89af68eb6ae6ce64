package types

import "time"

// CacheEntry is a stored prior LLM response keyed by Fingerprint.
type CacheEntry struct {
	Fingerprint string
	Response    LLMResponse
	StoredAt    time.Time
	TTLSec      int
}

// Expired reports whether the entry is no longer valid for lookup
// (but may still be returned by lookupStale).
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(time.Duration(e.TTLSec) * time.Second))
}
