package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// messages

type creditsMsg struct {
	snap *CreditsSnapshot
	err  error
}

type pollTickMsg time.Time

type refreshTickMsg time.Time

type uiTickMsg time.Time

type cookieMsg cookieEvent

type jarSavedMsg struct{ err error }

// styles

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	percentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	creditsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	refreshStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(1, 2)
)

// model

type model struct {
	cfg     config
	jar     *CookieJar
	browser *browserSession

	snap      *CreditsSnapshot
	err       error
	lastFetch time.Time
	nextPoll  time.Time

	bar       progress.Model
	spinner   spinner.Model
	importBox textarea.Model

	polling    bool
	refreshing bool
	importing  bool
	importErr  string
	lastManual time.Time // debounce

	width int
}

func newModel(cfg config, jar *CookieJar, browser *browserSession, forceLogin bool) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	bar := progress.New(
		progress.WithScaledGradient("#76EEC6", "#FF6347"),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	ta := textarea.New()
	ta.Placeholder = "paste cookies: a=1; b=2  (or one per line)"
	ta.CharLimit = 0
	ta.SetWidth(50)
	ta.SetHeight(4)

	return model{
		cfg:        cfg,
		jar:        jar,
		browser:    browser,
		bar:        bar,
		spinner:    s,
		importBox:  ta,
		polling:    true,
		refreshing: forceLogin,
		nextPoll:   time.Now().Add(cfg.pollInterval),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		pollCmd(m.cfg.apiURL, m.jar.Cookies()),
		pollTickCmd(m.cfg.pollInterval),
		refreshTickCmd(m.cfg.refreshInterval),
		uiTickCmd(),
		waitForCookie(m.browser.Events()),
	}
	if m.refreshing {
		cmds = append(cmds, navigateCmd(m.browser))
	}
	return tea.Batch(cmds...)
}

// commands

func pollCmd(apiURL string, cookies map[string]string) tea.Cmd {
	return func() tea.Msg {
		snap, err := fetchCredits(apiURL, cookies)
		return creditsMsg{snap: snap, err: err}
	}
}

func pollTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return pollTickMsg(t) })
}

func refreshTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return refreshTickMsg(t) })
}

func uiTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) })
}

func navigateCmd(b *browserSession) tea.Cmd {
	return func() tea.Msg {
		b.Navigate()
		return nil
	}
}

func waitForCookie(events <-chan cookieEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return cookieMsg(ev)
	}
}

// saveCmd persists a copy of the jar off the event loop. Fire and
// forget: failure is logged and the in-memory jar stays authoritative.
func saveCmd(path string, cookies map[string]string) tea.Cmd {
	return func() tea.Msg {
		return jarSavedMsg{err: saveCookies(path, cookies, time.Now())}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.importing {
			return m.updateImport(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if time.Since(m.lastManual) < 10*time.Second {
				return m, nil
			}
			m.polling = true
			m.lastManual = time.Now()
			return m, tea.Batch(m.spinner.Tick, pollCmd(m.cfg.apiURL, m.jar.Cookies()))
		case "l":
			m.refreshing = true
			return m, navigateCmd(m.browser)
		case "d":
			// done with the login window; in-flight harvesting keeps going
			m.refreshing = false
			return m, nil
		case "i":
			m.importing = true
			m.importErr = ""
			m.importBox.Reset()
			return m, m.importBox.Focus()
		}

	case creditsMsg:
		m.polling = false
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, errAuthRequired) && !m.refreshing {
				m.refreshing = true
				return m, tea.Batch(m.bar.SetPercent(0), navigateCmd(m.browser))
			}
			return m, m.bar.SetPercent(0)
		}
		m.snap = msg.snap
		m.err = nil
		m.refreshing = false
		m.lastFetch = time.Now()
		return m, m.bar.SetPercent(float64(msg.snap.Permille()) / 1000)

	case pollTickMsg:
		m.polling = true
		m.nextPoll = time.Now().Add(m.cfg.pollInterval)
		return m, tea.Batch(
			m.spinner.Tick,
			pollCmd(m.cfg.apiURL, m.jar.Cookies()),
			pollTickCmd(m.cfg.pollInterval),
		)

	case refreshTickMsg:
		m.refreshing = true
		return m, tea.Batch(navigateCmd(m.browser), refreshTickCmd(m.cfg.refreshInterval))

	case uiTickMsg:
		return m, uiTickCmd()

	case cookieMsg:
		var cmds []tea.Cmd
		if m.jar.Set(msg.Name, msg.Value) && m.jar.IsAuthenticated() {
			m.jar.MarkFresh(time.Now())
			cmds = append(cmds, saveCmd(m.cfg.cookieFile, m.jar.Cookies()))
		}
		cmds = append(cmds, waitForCookie(m.browser.Events()))
		return m, tea.Batch(cmds...)

	case jarSavedMsg:
		if msg.err != nil {
			log.Printf("save cookies: %v", msg.err)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, min(msg.Width-16, 40))
		m.importBox.SetWidth(max(30, min(msg.Width-10, 70)))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.importing = false
		m.importBox.Blur()
		return m, nil
	case "ctrl+d":
		pairs, err := parseCookieText(m.importBox.Value())
		if err != nil {
			m.importErr = err.Error()
			return m, nil
		}
		m.jar.Merge(pairs)
		m.jar.MarkFresh(time.Now())
		m.importing = false
		m.importBox.Blur()
		m.polling = true
		return m, tea.Batch(
			m.spinner.Tick,
			saveCmd(m.cfg.cookieFile, m.jar.Cookies()),
			pollCmd(m.cfg.apiURL, m.jar.Cookies()),
		)
	}
	var cmd tea.Cmd
	m.importBox, cmd = m.importBox.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	title := titleStyle.Render("augment credits")
	if m.polling {
		title += "  " + m.spinner.View()
	} else if m.refreshing {
		title += "  " + refreshStyle.Render("refreshing session")
	}
	b.WriteString(title + "\n\n")

	if m.importing {
		b.WriteString(m.importBox.View() + "\n")
		if m.importErr != "" {
			b.WriteString(errorStyle.Render(m.importErr) + "\n")
		}
		b.WriteString(footerStyle.Render("ctrl+d import • esc cancel"))
		return borderStyle.Render(b.String())
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("ERROR") + "\n")
		b.WriteString(m.bar.View() + "\n")
		b.WriteString(creditsStyle.Render("--- / ---") + "\n")
		b.WriteString(footerStyle.Render(m.err.Error()) + "\n")
	} else if m.snap != nil {
		b.WriteString(percentStyle.Render(fmt.Sprintf("%.1f%%", m.snap.Percentage())) + "\n")
		b.WriteString(m.bar.View() + "\n")
		credits := fmt.Sprintf("%s / %s",
			humanize.Comma(int64(m.snap.Remaining)),
			humanize.Comma(int64(m.snap.Total())))
		b.WriteString(creditsStyle.Render(credits) + "\n")
	} else {
		b.WriteString(percentStyle.Render("--.-%") + "\n")
		b.WriteString(m.bar.View() + "\n")
		b.WriteString(creditsStyle.Render("--- / ---") + "\n")
	}

	b.WriteString("\n" + footerStyle.Render(m.footer()))
	return borderStyle.Render(b.String())
}

func (m model) footer() string {
	var parts []string
	if until := time.Until(m.nextPoll); until > 0 && !m.polling {
		parts = append(parts, fmt.Sprintf("next update %ds", int(until.Seconds())))
	}
	if !m.lastFetch.IsZero() {
		parts = append(parts, "updated "+m.lastFetch.Format("15:04"))
	}
	parts = append(parts, "r refresh • l login • i import • q quit")
	return strings.Join(parts, "  •  ")
}
