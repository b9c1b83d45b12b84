// Package cep resolves Brazilian postal codes (CEPs) to address fragments by
// querying an ordered list of external providers.
//
// Each code is resolved independently: providers are tried in priority order
// with a bounded per-call timeout, falling through to the next provider on
// any failure. The first successful parse wins. A whole-file prewarm pass
// resolves the distinct set of codes once through a bounded worker pool and
// one shared HTTP client, so external traffic is O(distinct codes) no matter
// how many rows reference the same code.
package cep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Guilhermefoliveira/csv-validador/internal/rules"
)

const (
	// DefaultTimeout bounds each individual provider call.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxConcurrent is the prewarm worker-pool size.
	DefaultMaxConcurrent = 2

	// DefaultNotFoundThreshold is how many providers must report "not found"
	// before an exhausted lookup is unified into a not-found outcome instead
	// of a generic failure.
	DefaultNotFoundThreshold = 2

	// DefaultMinLookupDigits is the minimum digit count for a raw postal
	// value to be eligible for lookup at all.
	DefaultMinLookupDigits = 7

	// DefaultUserAgent is the fixed identifying header sent on every call.
	DefaultUserAgent = "Mozilla/5.0"

	// responseLimit caps how much of a provider body is read.
	responseLimit = 1 << 20
)

// Result is the immutable outcome of resolving one normalized code: either a
// resolved address fragment or a failure reason. A failed code keeps its
// reason in the cache so every referencing record surfaces the same
// diagnostic without repeating the query.
type Result struct {
	Address *Address
	Err     string
}

// Failed reports whether the lookup produced no usable address.
func (r Result) Failed() bool { return r.Address == nil }

// Client queries the provider list over one shared HTTP client.
type Client struct {
	http              *http.Client
	providers         []Provider
	timeout           time.Duration
	maxConcurrent     int
	notFoundThreshold int
	minLookupDigits   int
	userAgent         string
}

// Option customizes a Client.
type Option func(*Client)

// WithProviders replaces the default provider list.
func WithProviders(providers []Provider) Option {
	return func(c *Client) { c.providers = providers }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxConcurrent bounds the prewarm worker pool.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithNotFoundThreshold sets how many not-found answers unify an exhausted
// lookup into a not-found outcome.
func WithNotFoundThreshold(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.notFoundThreshold = n
		}
	}
}

// WithMinLookupDigits sets the minimum digit count for lookup eligibility.
func WithMinLookupDigits(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.minLookupDigits = n
		}
	}
}

// WithUserAgent sets the identifying header sent to providers.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mostly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a lookup client with the default provider list and limits.
func NewClient(opts ...Option) *Client {
	c := &Client{
		providers:         DefaultProviders,
		timeout:           DefaultTimeout,
		maxConcurrent:     DefaultMaxConcurrent,
		notFoundThreshold: DefaultNotFoundThreshold,
		minLookupDigits:   DefaultMinLookupDigits,
		userAgent:         DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// Normalize reduces a raw postal value to its lookup key. The second return
// value is false when the value has fewer digits than the eligibility
// minimum. Short keys are zero-padded to 8 digits; over-long keys pass
// through as-is so Resolve can cache their failure and every referencing row
// gets the warning.
func (c *Client) Normalize(raw string) (string, bool) {
	d := rules.Digits(strings.TrimSpace(raw))
	if len(d) < c.minLookupDigits {
		return "", false
	}
	if len(d) < 8 {
		d = strings.Repeat("0", 8-len(d)) + d
	}
	return d, true
}

// Prewarm resolves every distinct code through a bounded worker pool and
// returns the completed cache. It blocks until all lookups finish; the
// returned map is never mutated afterwards and is safe for concurrent reads.
func (c *Client) Prewarm(ctx context.Context, codes []string) map[string]Result {
	results := make(map[string]Result, len(codes))
	if len(codes) == 0 {
		return results
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.maxConcurrent)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			res := c.Resolve(ctx, code)
			mu.Lock()
			results[code] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// Resolve queries providers in priority order until one yields a usable
// address. Produces a Result, never an error: provider failures are collected
// as diagnostics and total exhaustion is folded into the Result's Err.
func (c *Client) Resolve(ctx context.Context, code string) Result {
	if len(code) != 8 || rules.Digits(code) != code {
		return Result{Err: fmt.Sprintf("postal code %q is not an 8-digit code", code)}
	}

	notFound := 0
	var diags []string
	for _, p := range c.providers {
		addr, err := c.query(ctx, p, code)
		switch {
		case err == nil:
			return Result{Address: &addr}
		case errors.Is(err, errProviderNotFound):
			notFound++
		default:
			diags = append(diags, fmt.Sprintf("(%s: %v)", p.Name, err))
		}
	}

	if notFound >= c.notFoundThreshold {
		return Result{Err: "postal code not found"}
	}
	return Result{Err: "all providers failed. Details: " + strings.Join(diags, " | ")}
}

// query performs one provider call with the per-call timeout.
func (c *Client) query(ctx context.Context, p Provider, code string) (Address, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf(p.Endpoint, code)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Address{}, errProviderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Address{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return Address{}, err
	}
	return p.Parse(body)
}
