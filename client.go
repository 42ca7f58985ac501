package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// errAuthRequired marks poll outcomes that need a fresh login rather
// than a retry: an empty jar, or a 401/403 from the endpoint.
var errAuthRequired = errors.New("authentication required")

// fetchCredits polls the credits endpoint with the given cookies. It
// never mutates the jar; callers pass a copy of the cookie map.
func fetchCredits(apiURL string, cookies map[string]string) (*CreditsSnapshot, error) {
	if len(cookies) == 0 {
		return nil, errAuthRequired
	}

	req, err := http.NewRequest("GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	// Values are already URL-encoded as harvested from the browser;
	// AddCookie would re-sanitize them, so build the header by hand.
	var b strings.Builder
	for name, value := range cookies {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	req.Header.Set("Cookie", b.String())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errAuthRequired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var cr creditsResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &CreditsSnapshot{
		Remaining: max(cr.UsageUnitsRemaining, 0),
		Consumed:  max(cr.UsageUnitsConsumedThisBillingCycle, 0),
	}, nil
}
