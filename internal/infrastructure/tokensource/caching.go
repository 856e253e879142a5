package tokensource

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/constants"
)

const cacheKey = "token"

// Caching keeps the last token of another source for a fixed TTL and collapses
// concurrent misses into one call.
type Caching struct {
	source  service.TokenSource
	name    string
	ttl     time.Duration
	cache   *cache.Cache
	sf      singleflight.Group
	metrics service.Metrics
}

// NewCaching wraps source. name labels the metrics.
func NewCaching(source service.TokenSource, name string, ttl time.Duration, metrics service.Metrics) *Caching {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &Caching{
		source:  source,
		name:    name,
		ttl:     ttl,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

// GetSecurityToken implements service.TokenSource. Empty tokens and errors are
// not cached.
func (c *Caching) GetSecurityToken(ctx context.Context) (string, error) {
	if token, ok := c.cache.Get(cacheKey); ok {
		c.metrics.RecordTokenSourceFetch(c.name, true, true)
		return token.(string), nil
	}

	// Shared fetches outlive the caller that started them. Each caller stops
	// waiting when its own context ends.
	results := c.sf.DoChan(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultTokenFetchTimeout)
		defer cancel()
		token, err := c.source.GetSecurityToken(fetchCtx)
		c.metrics.RecordTokenSourceFetch(c.name, err == nil, false)
		if err != nil {
			return "", err
		}
		if token != "" {
			c.cache.Set(cacheKey, token, c.ttl)
		}
		return token, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token.
func (c *Caching) Invalidate() {
	c.cache.Delete(cacheKey)
}
