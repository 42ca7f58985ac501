package main

import (
	"os"
	"path/filepath"
	"time"
)

type config struct {
	apiURL          string
	loginURL        string
	cookieDomain    string
	cookieFile      string
	pollInterval    time.Duration
	refreshInterval time.Duration
	headless        bool
}

func loadConfig() config {
	cfg := config{
		apiURL:          "https://app.augmentcode.com/api/credits",
		loginURL:        "https://app.augmentcode.com/account/subscription",
		cookieDomain:    "augmentcode.com",
		pollInterval:    60 * time.Second,
		refreshInterval: 50 * time.Minute,
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.cookieFile = filepath.Join(home, ".augment_credits_cookies.json")
	} else {
		cfg.cookieFile = ".augment_credits_cookies.json"
	}

	if v := os.Getenv("AUGMENT_CREDITS_API_URL"); v != "" {
		cfg.apiURL = v
	}
	if v := os.Getenv("AUGMENT_CREDITS_LOGIN_URL"); v != "" {
		cfg.loginURL = v
	}
	if v := os.Getenv("AUGMENT_CREDITS_COOKIE_DOMAIN"); v != "" {
		cfg.cookieDomain = v
	}
	if v := os.Getenv("AUGMENT_CREDITS_COOKIE_FILE"); v != "" {
		cfg.cookieFile = v
	}
	if v := os.Getenv("AUGMENT_CREDITS_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.pollInterval = d
		}
	}
	if v := os.Getenv("AUGMENT_CREDITS_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.refreshInterval = d
		}
	}
	cfg.headless = os.Getenv("AUGMENT_CREDITS_HEADLESS") == "1"

	return cfg
}
