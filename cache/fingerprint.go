// Package cache is the Response Cache (C2): a fingerprint to prior
// LLM response map with TTL expiry and optional stale-on-error lookup.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the stable cache key for an LLM call. It is a
// pure function of prompt, systemPrompt, model, and an explicit suffix
// — no timestamps.
func Fingerprint(prompt, systemPrompt, model, suffix string) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(systemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(suffix))
	return hex.EncodeToString(h.Sum(nil))
}
