package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (compatible; scout/1.0; +https://openonco.org)"

// Options configures a source crawler. Zero values fall back to per-source
// defaults; BaseURL is overridable so tests can point crawlers at a local
// server.
type Options struct {
	Enabled      bool
	RateLimit    float64 // requests per second; 0 means the source default
	BaseURL      string
	LookbackDays int
}

func (o Options) limiter(defaultPerSec float64) *rate.Limiter {
	perSec := o.RateLimit
	if perSec <= 0 {
		perSec = defaultPerSec
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

func (o Options) lookback(defaultDays int) int {
	if o.LookbackDays > 0 {
		return o.LookbackDays
	}
	return defaultDays
}

// getJSON issues a rate-limited GET and decodes the JSON response into v.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, v any) error {
	body, err := get(ctx, client, limiter, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// get issues a rate-limited GET and returns the response body.
// Non-2xx statuses are errors.
func get(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string) ([]byte, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("requesting %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
