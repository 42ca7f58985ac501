package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// cookieEvent is one (name, value) pair harvested from the background
// browser while it sits on the account page.
type cookieEvent struct {
	Name  string
	Value string
}

// browserSession drives the Chrome instance that keeps the login
// session alive: it navigates to the account page and reports every
// cookie the page sets over Events. It never touches the jar itself;
// the TUI loop owns that.
type browserSession struct {
	loginURL string
	domain   string
	headless bool

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	events chan cookieEvent
}

func newBrowserSession(cfg config) *browserSession {
	return &browserSession{
		loginURL: cfg.loginURL,
		domain:   cfg.cookieDomain,
		headless: cfg.headless,
		events:   make(chan cookieEvent, 64),
	}
}

// Start launches Chrome and seeds it with previously persisted cookies
// so a page reload refreshes the existing session instead of starting
// an anonymous one. Headful by default: a first run with no session
// needs a window the user can log in through.
func (b *browserSession) Start(seed map[string]string) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("window-size", "1100,800"),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	b.ctx = ctx
	b.cancel = cancel
	b.allocCancel = allocCancel

	// Harvest whenever a response sets cookies and again once the page
	// settles. Harvesting runs CDP commands, so it must leave the
	// listener goroutine.
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceivedExtraInfo:
			if hasSetCookie(e.Headers) {
				go b.harvest()
			}
		case *page.EventLoadEventFired:
			go b.harvest()
		}
	})

	actions := []chromedp.Action{network.Enable()}
	if len(seed) > 0 {
		actions = append(actions, b.seedAction(seed))
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		b.Close()
		return err
	}
	return nil
}

func (b *browserSession) seedAction(seed map[string]string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range seed {
			err := network.SetCookie(name, value).
				WithDomain("." + b.domain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				log.Printf("seed cookie %s: %v", name, err)
			}
		}
		return nil
	})
}

// Navigate points the browser at the login page. Asynchronous by
// design: cookies arrive later through Events, and there is no
// "login complete" signal to wait for.
func (b *browserSession) Navigate() {
	if b.ctx == nil {
		return
	}
	url := b.loginURL
	go func() {
		ctx, cancel := context.WithTimeout(b.ctx, 2*time.Minute)
		defer cancel()
		if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
			log.Printf("navigate %s: %v", url, err)
		}
	}()
}

// harvest reads the full browser jar and forwards every cookie for the
// service domain. Sends never block the browser: if the buffer is full
// the event is dropped and a later harvest picks the cookie up again.
func (b *browserSession) harvest() {
	ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		log.Printf("harvest cookies: %v", err)
		return
	}

	for _, c := range cookies {
		if !strings.Contains(c.Domain, b.domain) {
			continue
		}
		select {
		case b.events <- cookieEvent{Name: c.Name, Value: c.Value}:
		default:
		}
	}
}

func (b *browserSession) Events() <-chan cookieEvent { return b.events }

func (b *browserSession) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

func hasSetCookie(headers network.Headers) bool {
	for k := range headers {
		if strings.EqualFold(k, "set-cookie") {
			return true
		}
	}
	return false
}
