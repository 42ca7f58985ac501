package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg := loadConfig()

	// Logging must never hit the terminal the TUI owns.
	if os.Getenv("AUGMENT_CREDITS_DEBUG") != "" {
		if f, err := tea.LogToFile("augment-credits.log", "debug"); err == nil {
			defer f.Close()
		}
	} else {
		log.SetOutput(io.Discard)
	}

	jar := loadJar(cfg.cookieFile, time.Now())
	forceLogin := jar == nil
	if jar == nil {
		jar = newCookieJar()
	}

	browser := newBrowserSession(cfg)
	if err := browser.Start(jar.Cookies()); err != nil {
		// Polling with persisted cookies and manual import still work.
		log.Printf("browser start: %v", err)
	}
	defer browser.Close()

	p := tea.NewProgram(newModel(cfg, jar, browser, forceLogin))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := saveCookies(cfg.cookieFile, jar.Cookies(), time.Now()); err != nil {
		log.Printf("save cookies on exit: %v", err)
	}
}
