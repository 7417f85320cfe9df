// Package entropy provides the random sources that drive the simulation.
// The core only needs uniform floats in [0, 1) and uniform integers in a
// closed range; where they come from is decided by the composition root.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// Source is the random source contract required by the simulation core.
type Source interface {
	// Float returns a uniform float64 in [0, 1).
	Float() float64
	// IntRange returns a uniform int in [lo, hi]. Panics if hi < lo.
	IntRange(lo, hi int) int
}

// Client draws true random numbers from random.org through a local pool.
// Draws never wait on the network: the pool is refilled by a background
// fetch, and while it is empty draws come from crypto/rand. Failed fetches
// back off exponentially.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
	backoff  time.Duration // delay after the first failure, doubled per failure
	now      func() time.Time

	mu       sync.Mutex
	pool     []float64
	fetching bool
	failures int
	retryAt  time.Time
}

const (
	randomOrgEndpoint = "https://api.random.org/json-rpc/4/invoke"
	poolLowWater      = 100
	maxBackoff        = 10 * time.Minute
)

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		backoff:  30 * time.Second,
		now:      time.Now,
	}
}

// Float returns a random float64 in [0, 1) from the pool, or from
// crypto/rand when the pool is empty.
func (c *Client) Float() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	if len(c.pool) < poolLowWater {
		c.startRefill()
	}
	if len(c.pool) == 0 {
		c.mu.Unlock()
		return cryptoRandFloat()
	}
	val := c.pool[0]
	c.pool = c.pool[1:]
	c.mu.Unlock()
	return val
}

// IntRange returns a uniform int in [lo, hi] derived from Float.
func (c *Client) IntRange(lo, hi int) int {
	return intFromFloat(c.Float(), lo, hi)
}

// startRefill launches a background fetch unless one is running or the
// client is backing off. c.mu must be held.
func (c *Client) startRefill() {
	if c.fetching || c.now().Before(c.retryAt) {
		return
	}
	c.fetching = true
	go c.refill()
}

func (c *Client) refill() {
	vals, err := c.fetch()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	if err != nil {
		c.failures++
		delay := c.backoff
		for i := 1; i < c.failures && delay < maxBackoff; i++ {
			delay *= 2
		}
		delay = min(delay, maxBackoff)
		c.retryAt = c.now().Add(delay)
		slog.Warn("random.org fetch failed, using crypto/rand", "error", err, "failures", c.failures, "retry_in", delay)
		return
	}
	c.failures = 0
	c.pool = append(c.pool, vals...)
	slog.Debug("random.org pool refilled", "count", len(vals), "pool", len(c.pool))
}

func (c *Client) fetch() ([]float64, error) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             1000,
			"decimalPlaces": 9,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("api error: %s", result.Error.Message)
	}

	vals := make([]float64, 0, len(result.Result.Random.Data))
	for _, v := range result.Result.Random.Data {
		// Fractions are in [0, 1]; 1 would break the half-open contract.
		if v >= 1 {
			continue
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Crypto is a Source backed by crypto/rand.
type Crypto struct{}

// Float returns a random float64 in [0, 1) from crypto/rand.
func (Crypto) Float() float64 { return cryptoRandFloat() }

// IntRange returns a uniform int in [lo, hi] from crypto/rand.
func (Crypto) IntRange(lo, hi int) int { return intFromFloat(cryptoRandFloat(), lo, hi) }

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

func intFromFloat(f float64, lo, hi int) int {
	if hi < lo {
		panic("entropy: IntRange with hi < lo")
	}
	span := float64(hi - lo + 1)
	v := lo + int(math.Floor(f*span))
	if v > hi {
		v = hi
	}
	return v
}
