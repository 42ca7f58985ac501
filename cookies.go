package main

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	sessionCookie      = "_session"
	proxySessionCookie = "web_rpc_proxy_session"

	// A persisted session older than this is not trusted and the user
	// has to log in again.
	freshnessWindow = 55 * time.Minute
	sessionLifetime = time.Hour
)

// CookieJar holds the session cookies for the service. It is owned by
// the bubbletea loop: all mutation happens in Update (plus startup in
// main), so no locking.
type CookieJar struct {
	cookies map[string]string
	savedAt time.Time // zero = never marked fresh
}

func newCookieJar() *CookieJar {
	return &CookieJar{cookies: make(map[string]string)}
}

// Set upserts a cookie and reports whether the value was applied.
//
// The session cookie gets special treatment: while the browser sits on
// the account page it re-emits _session several times, and a
// late-arriving anonymous variant must not clobber the authenticated
// one we already hold. The update is rejected only when the existing
// value carries user identity and the new one does not.
func (j *CookieJar) Set(name, value string) bool {
	if name == sessionCookie {
		if existing, ok := j.cookies[sessionCookie]; ok {
			if looksAuthenticated(existing) && !looksAuthenticated(value) {
				return false
			}
		}
	}
	j.cookies[name] = value
	return true
}

func (j *CookieJar) Get(name string) (string, bool) {
	v, ok := j.cookies[name]
	return v, ok
}

func (j *CookieJar) Len() int { return len(j.cookies) }

// Cookies returns a copy safe to hand to another goroutine.
func (j *CookieJar) Cookies() map[string]string {
	out := make(map[string]string, len(j.cookies))
	for name, value := range j.cookies {
		out[name] = value
	}
	return out
}

// Merge upserts every pair, applying the same overwrite protection as
// Set. Used by the manual cookie import path.
func (j *CookieJar) Merge(pairs map[string]string) {
	for name, value := range pairs {
		j.Set(name, value)
	}
}

// IsAuthenticated reports whether the jar holds a session or proxy
// session cookie.
func (j *CookieJar) IsAuthenticated() bool {
	_, session := j.cookies[sessionCookie]
	_, proxy := j.cookies[proxySessionCookie]
	return session || proxy
}

func (j *CookieJar) MarkFresh(now time.Time) { j.savedAt = now }

func (j *CookieJar) SavedAt() time.Time { return j.savedAt }

// ExpiresAt is savedAt plus the nominal session lifetime, or zero if
// the jar was never marked fresh.
func (j *CookieJar) ExpiresAt() time.Time {
	if j.savedAt.IsZero() {
		return time.Time{}
	}
	return j.savedAt.Add(sessionLifetime)
}

func (j *CookieJar) IsStale(now time.Time) bool {
	return j.savedAt.IsZero() || now.Sub(j.savedAt) >= freshnessWindow
}

// looksAuthenticated reports whether a session cookie value carries a
// user identity. The value is a URL-escaped token with a base64 payload
// before the first dot; a payload mentioning userId means the session
// is fully authenticated. Any decode failure reports false, so an
// unreadable token never blocks an overwrite.
func looksAuthenticated(value string) bool {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		decoded = value
	}
	payload, _, found := strings.Cut(decoded, ".")
	if !found {
		return false
	}
	payload = strings.TrimRight(payload, "=")
	raw, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return false
		}
	}
	return strings.Contains(string(raw), "userId")
}

var errNoCookiePairs = errors.New("no name=value pairs found")

// parseCookieText converts pasted cookie text into name/value pairs.
// Semicolon-delimited header style ("a=1; b=2") and one-pair-per-line
// style are both accepted; segments without an equals sign or with an
// empty name are skipped.
func parseCookieText(text string) (map[string]string, error) {
	var segments []string
	if strings.Contains(text, ";") {
		segments = strings.Split(text, ";")
	} else {
		segments = strings.Split(text, "\n")
	}

	pairs := make(map[string]string, len(segments))
	for _, seg := range segments {
		name, value, found := strings.Cut(seg, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pairs[name] = strings.TrimSpace(value)
	}
	if len(pairs) == 0 {
		return nil, errNoCookiePairs
	}
	return pairs, nil
}
