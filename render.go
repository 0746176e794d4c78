package main

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/muesli/termenv"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7B68EE")
	colorSecondary = lipgloss.Color("#5B5682")
	colorMuted     = lipgloss.Color("#636363")
	colorHighlight = lipgloss.Color("#E0DAFF")
	colorStatusBg  = lipgloss.Color("#24283B")
	colorWhite     = lipgloss.Color("#C0CAF5")
	colorGreen     = lipgloss.Color("#9ECE6A")
	colorRed       = lipgloss.Color("#F7768E")
)

// senderColors is the palette remote senders are hashed into.
var senderColors = []lipgloss.Color{
	"#7AA2F7", "#BB9AF7", "#E0AF68", "#7DCFFF",
	"#FF9E64", "#73DACA", "#F7768E", "#2AC3DE",
}

// Layout constants
const (
	sidebarPadding  = 4
	minSidebarWidth = 16
	sidebarBorder   = 1
	inputMinHeight  = 1
	inputMaxHeight  = 6
)

// Styles
var (
	sidebarStyle = lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorSecondary)

	sidebarSectionStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Bold(true).
				Padding(0, 1)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				Padding(0, 1)

	sidebarUnreadStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true).
				Padding(0, 1)

	sidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Background(colorSecondary).
				Bold(true).
				Padding(0, 1)

	chatOwnAuthorStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	chatTimestampStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	chatStaticStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	dateDividerStyle = lipgloss.NewStyle().
				Foreground(colorSecondary)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorStatusBg).
			Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	menuStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	menuItemStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	menuSelectedStyle = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Background(colorSecondary).
				Bold(true)
)

// detectGlamourStyle queries the terminal background and returns "dark" or "light".
// Must be called before the TUI starts.
func detectGlamourStyle() string {
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// newMarkdownRenderer creates a glamour renderer with wrapping disabled;
// items are wrapped by the list at the current width.
func newMarkdownRenderer(style string) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		logger.Warn().Err(err).Str("style", style).Msg("markdown renderer unavailable")
		return nil
	}
	return r
}

// renderMarkdown renders markdown content to terminal-styled text.
// Falls back to plain text if the renderer is nil or rendering fails.
func renderMarkdown(r *glamour.TermRenderer, content string) string {
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// colorForSender picks a stable palette color for a sender id.
func colorForSender(senderID string) lipgloss.Color {
	if senderID == "" {
		return senderColors[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	return senderColors[h.Sum32()%uint32(len(senderColors))]
}

// ItemOptions are passed through to the per-message renderer.
type ItemOptions struct {
	Width           int
	StaticUI        bool
	ShowDateDivider int
	LocalUserID     string
	Props           map[string]string
}

// MessageItemRenderer renders a single message. prev is the message shown
// directly above it, or nil for the first one.
type MessageItemRenderer interface {
	RenderItem(msg Message, prev *Message, opts ItemOptions) string
}

// glamourItemRenderer is the default item renderer: "15:04 author: body"
// with a glamour-rendered body wrapped under the prefix.
type glamourItemRenderer struct {
	md *glamour.TermRenderer
}

func (r glamourItemRenderer) RenderItem(msg Message, prev *Message, opts ItemOptions) string {
	var lines []string
	if opts.ShowDateDivider > 0 && (prev == nil || !sameDay(prev.Date, msg.Date)) {
		lines = append(lines, dateDivider(msg, opts.Width))
	}

	authorStyle := lipgloss.NewStyle().Foreground(colorForSender(msg.SenderID)).Bold(true)
	if msg.IsFrom(opts.LocalUserID) {
		authorStyle = chatOwnAuthorStyle
	}
	if opts.StaticUI {
		authorStyle = chatStaticStyle
	}
	name := msg.SenderName
	if name == "" {
		name = msg.SenderID
	}
	if v := opts.Props["author_suffix"]; v != "" {
		name += v
	}

	ts := chatTimestampStyle.Render(msg.Date.Local().Format("15:04"))
	prefix := fmt.Sprintf("%s %s: ", ts, authorStyle.Render(name))
	prefixW := lipgloss.Width(prefix)
	pad := strings.Repeat(" ", prefixW)
	wrapWidth := opts.Width - prefixW
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	// Convert single newlines to paragraph breaks for glamour.
	content := renderMarkdown(r.md, strings.ReplaceAll(msg.Content, "\n", "\n\n"))
	body := wrapBody(content, wrapWidth)
	if opts.StaticUI {
		for i, l := range body {
			body[i] = chatStaticStyle.Render(ansi.Strip(l))
		}
	}

	lines = append(lines, prefix+body[0])
	for _, l := range body[1:] {
		lines = append(lines, pad+l)
	}
	return strings.Join(lines, "\n")
}

// wrapBody trims blank edges from rendered markdown and wraps it to width.
// It always returns at least one line.
func wrapBody(content string, width int) []string {
	// strings.TrimSpace can't see through ANSI codes, so strip before testing.
	raw := strings.Split(content, "\n")
	for len(raw) > 0 && strings.TrimSpace(ansi.Strip(raw[0])) == "" {
		raw = raw[1:]
	}
	for len(raw) > 0 && strings.TrimSpace(ansi.Strip(raw[len(raw)-1])) == "" {
		raw = raw[:len(raw)-1]
	}

	// Word-wrap first, then hard-wrap what still overflows (long URLs).
	var out []string
	for _, cl := range raw {
		for _, wl := range strings.Split(wordwrap.String(cl, width), "\n") {
			if lipgloss.Width(wl) > width {
				out = append(out, strings.Split(wrap.String(wl, width), "\n")...)
			} else {
				out = append(out, wl)
			}
		}
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

func dateDivider(msg Message, width int) string {
	label := " " + msg.Date.Local().Format("Mon, 02 Jan 2006") + " "
	side := (width - lipgloss.Width(label)) / 2
	if side < 2 {
		side = 2
	}
	rule := strings.Repeat("─", side)
	return dateDividerStyle.Render(rule + label + rule)
}
