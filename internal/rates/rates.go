// Package rates looks up the current CDI and IPCA reference rates.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// DefaultFallback is the CDI rate assumed when no lookup succeeds.
const DefaultFallback = 11.0

// Rates are annual percentages.
type Rates struct {
	CDI  float64 `json:"cdi"`
	IPCA float64 `json:"ipca"`
}

// Provider fetches reference rates.
type Provider interface {
	Fetch(ctx context.Context) (Rates, error)
}

// Endpoint reads {"cdi": ..., "ipca": ...} from an HTTP JSON endpoint.
type Endpoint struct {
	URL    string
	Client *http.Client
}

func (e *Endpoint) Fetch(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return Rates{}, err
	}
	resp, err := client(e.Client).Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Rates{}, fmt.Errorf("rates endpoint: status %d", resp.StatusCode)
	}
	var r Rates
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Rates{}, fmt.Errorf("decode rates: %w", err)
	}
	return r, nil
}

func client(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

const cacheKey = "rates"

// Cached memoizes a provider's successful results for a TTL.
type Cached struct {
	p     Provider
	cache *cache.Cache
}

func NewCached(p Provider, ttl time.Duration) *Cached {
	return &Cached{p: p, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) Fetch(ctx context.Context) (Rates, error) {
	if v, ok := c.cache.Get(cacheKey); ok {
		return v.(Rates), nil
	}
	r, err := c.p.Fetch(ctx)
	if err != nil {
		return Rates{}, err
	}
	c.cache.Set(cacheKey, r, cache.DefaultExpiration)
	return r, nil
}

// Lookup resolves the CDI value used for floating-rate conversion.
type Lookup struct {
	Provider Provider
	Fallback float64
	Log      logrus.FieldLogger
}

// CDI returns the current CDI, or the fallback when the provider fails or
// returns a non-positive or non-numeric value.
func (l *Lookup) CDI(ctx context.Context) float64 {
	fallback := l.Fallback
	if fallback <= 0 {
		fallback = DefaultFallback
	}
	if l.Provider == nil {
		return fallback
	}
	r, err := l.Provider.Fetch(ctx)
	if err != nil {
		l.Log.WithError(err).WithField("fallback", fallback).Warn("CDI lookup failed")
		return fallback
	}
	if math.IsNaN(r.CDI) || math.IsInf(r.CDI, 0) || r.CDI <= 0 {
		l.Log.WithFields(logrus.Fields{"cdi": r.CDI, "fallback": fallback}).Warn("CDI lookup returned no usable value")
		return fallback
	}
	l.Log.WithField("cdi", r.CDI).Info("CDI reference loaded")
	return r.CDI
}
