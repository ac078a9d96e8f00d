// Package policycache provides the bounded, time-expiring store mapping
// hostnames to domain policies.
package policycache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloakedge/cloakedge/internal/edge/common/clock"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/services/router"
)

// entry pairs an immutable policy with its expiry deadline. TTL bookkeeping
// belongs to the cache, not the policy.
type entry struct {
	policy    domain.DomainPolicy
	expiresAt time.Time
}

// policyCache is an in-memory TTL-aware cache using an LRU strategy. Capacity
// eviction is handled by the LRU; time expiry is enforced on read.
type policyCache struct {
	lru   *lru.Cache[string, entry]
	ttl   time.Duration
	clock clock.Clock
}

// New returns a policy cache holding at most size entries, each valid for ttl
// after insertion. A nil clk falls back to the system clock.
func New(size int, ttl time.Duration, clk clock.Clock) (*policyCache, error) {
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &policyCache{lru: cache, ttl: ttl, clock: clk}, nil
}

// Set inserts or refreshes the policy under its canonical host. Racing writers
// to the same key are last-write-wins.
func (c *policyCache) Set(policy domain.DomainPolicy) {
	c.lru.Add(policy.CacheKey(), entry{
		policy:    policy,
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}

// Get retrieves the policy for host if present and not expired. Expired
// entries are evicted on the spot.
func (c *policyCache) Get(host string) (domain.DomainPolicy, bool) {
	if e, found := c.lru.Get(host); found {
		if c.clock.Now().Before(e.expiresAt) {
			return e.policy, true
		}
		c.lru.Remove(host)
	}
	return domain.DomainPolicy{}, false
}

// Delete removes the entry for host from the cache.
func (c *policyCache) Delete(host string) {
	c.lru.Remove(host)
}

// Len returns the number of entries currently stored, expired or not.
func (c *policyCache) Len() int {
	return c.lru.Len()
}

// Keys returns all current cache keys.
func (c *policyCache) Keys() []string {
	return c.lru.Keys()
}

var _ router.PolicyCache = (*policyCache)(nil)
