// Package cache derives response-cache keys. The store itself lives in
// pkg/cache/memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyFunc derives a fixed-form cache key from a request payload and a model
// identifier. Implementations are pure and total.
type KeyFunc func(payload, model string) string

// SHA256Key hashes (model, payload) with SHA-256: 64 hex characters.
func SHA256Key(payload, model string) string {
	h := sha256.New()
	writeKey(h, payload, model)
	return hex.EncodeToString(h.Sum(nil))
}

// XXHashKey hashes (model, payload) with xxhash64: 16 hex characters.
// Much cheaper than SHA256Key; collisions are possible but improbable.
func XXHashKey(payload, model string) string {
	d := xxhash.New()
	writeKey(d, payload, model)
	return fmt.Sprintf("%016x", d.Sum64())
}

// writeKey length-prefixes the model so the payload/model boundary cannot shift.
func writeKey(h hash.Hash, payload, model string) {
	h.Write([]byte(strconv.Itoa(len(model))))
	h.Write([]byte{':'})
	h.Write([]byte(model))
	h.Write([]byte(payload))
}

// KeyFuncByName resolves the cache.key_hash config value.
func KeyFuncByName(name string) (KeyFunc, error) {
	switch name {
	case "", "sha256":
		return SHA256Key, nil
	case "xxhash":
		return XXHashKey, nil
	default:
		return nil, fmt.Errorf("unknown key hash %q", name)
	}
}

// VariantPayload folds a request variant tag into the payload so that
// variants stop sharing keys.
func VariantPayload(variant, question string) string {
	return strconv.Itoa(len(variant)) + ":" + variant + question
}

// ContextPayload folds background text into the payload. An empty
// background returns question unchanged, so plain asks keep their keys.
func ContextPayload(background, question string) string {
	if background == "" {
		return question
	}
	return "\x00" + strconv.Itoa(len(background)) + ":" + background + question
}
