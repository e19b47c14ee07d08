package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"

	"github.com/patrickmn/go-cache"
)

// ResponseCache memoizes validated advisor responses by fingerprint.
type ResponseCache interface {
	Get(fingerprint string) ([]byte, bool)
	Set(fingerprint string, raw []byte)
	Bypass() bool
	Flush()
}

type responseCache struct {
	inmemoryCache *cache.Cache
	bypass        bool
}

// NewResponseCache creates the cache. With bypass set, lookups always miss
// but fresh responses are still stored.
func NewResponseCache(cfg config.Cache) ResponseCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &responseCache{
		inmemoryCache: cache.New(ttl, cleanup),
		bypass:        cfg.Bypass,
	}
}

func (c *responseCache) Get(fingerprint string) ([]byte, bool) {
	if c.bypass {
		return nil, false
	}
	v, found := c.inmemoryCache.Get(fingerprint)
	if !found {
		return nil, false
	}
	return v.([]byte), true
}

func (c *responseCache) Set(fingerprint string, raw []byte) {
	c.inmemoryCache.SetDefault(fingerprint, raw)
}

func (c *responseCache) Bypass() bool {
	return c.bypass
}

func (c *responseCache) Flush() {
	c.inmemoryCache.Flush()
}

// Fingerprint hashes the mode and the JSON encoding of payload. Struct
// fields encode in declaration order and map keys sorted, so equal payloads
// give equal fingerprints.
func Fingerprint(mode dto.AdvisorMode, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint payload: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
