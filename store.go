package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// cookieFileData is the on-disk format, shared with earlier versions of
// the monitor: the flat cookie map plus the time it was written.
type cookieFileData struct {
	Cookies map[string]string `json:"cookies"`
	SavedAt string            `json:"saved_at"`
}

// Older files carry a zone-less isoformat timestamp instead of RFC 3339.
var savedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseSavedAt(s string) (time.Time, error) {
	for _, layout := range savedAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized saved_at %q", s)
}

// loadJar returns nil when there is no trustworthy persisted session:
// missing file, malformed JSON, an unparseable saved_at, or a jar past
// the freshness window all mean the user has to log in again. Never
// fatal.
func loadJar(path string, now time.Time) *CookieJar {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var data cookieFileData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("cookie file %s: %v", path, err)
		return nil
	}
	savedAt, err := parseSavedAt(data.SavedAt)
	if err != nil {
		log.Printf("cookie file %s: %v", path, err)
		return nil
	}

	jar := newCookieJar()
	for name, value := range data.Cookies {
		jar.Set(name, value)
	}
	jar.savedAt = savedAt

	if jar.IsStale(now) {
		log.Printf("cookie file %s: session is %s old, forcing login",
			path, now.Sub(savedAt).Round(time.Minute))
		return nil
	}
	log.Printf("loaded %d cookies (age %s)", jar.Len(), now.Sub(savedAt).Round(time.Second))
	return jar
}

// saveCookies writes the cookie map atomically (temp file + rename).
// The file is the session credential, so it is not group/world
// readable.
func saveCookies(path string, cookies map[string]string, now time.Time) error {
	data := cookieFileData{
		Cookies: cookies,
		SavedAt: now.Format(time.RFC3339Nano),
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
