package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	qrterminal "github.com/mdp/qrterminal/v3"
)

type menuAction int

const (
	menuOpen menuAction = iota
	menuCopyLink
	menuCopyText
	menuShowQR
)

type menuEntry struct {
	action menuAction
	label  string
}

// contextMenu is the open link menu.
type contextMenu struct {
	pos   Position
	spec  MenuSpec
	items []menuEntry
	index int
}

func newContextMenu(pos Position, spec MenuSpec) *contextMenu {
	items := []menuEntry{
		{menuOpen, "Open link"},
		{menuCopyLink, "Copy link"},
	}
	if spec.Text != "" && spec.Text != spec.Link {
		items = append(items, menuEntry{menuCopyText, "Copy text"})
	}
	items = append(items, menuEntry{menuShowQR, "Show QR code"})
	return &contextMenu{pos: pos, spec: spec, items: items}
}

func (c *contextMenu) move(delta int) {
	n := len(c.items)
	c.index = ((c.index+delta)%n + n) % n
}

func (c *contextMenu) selected() menuAction {
	return c.items[c.index].action
}

// itemAt maps a row inside the rendered menu to an item index.
func (c *contextMenu) itemAt(row int) (int, bool) {
	// border + title line
	idx := row - 2
	if idx < 0 || idx >= len(c.items) {
		return 0, false
	}
	return idx, true
}

var qrTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

func (m *model) viewMenu() string {
	if m.menu == nil {
		return ""
	}
	title := m.menu.spec.Link
	if m.menu.spec.Text != "" && m.menu.spec.Text != m.menu.spec.Link {
		title = fmt.Sprintf("%s (%s)", m.menu.spec.Text, m.menu.spec.Link)
	}
	lines := []string{chatTimestampStyle.Render(title)}
	for i, it := range m.menu.items {
		if i == m.menu.index {
			lines = append(lines, menuSelectedStyle.Render("> "+it.label))
		} else {
			lines = append(lines, menuItemStyle.Render("  "+it.label))
		}
	}
	width := m.width - m.sidebarWidth() - sidebarBorder - 2
	if width < 10 {
		width = 10
	}
	return menuStyle.MaxWidth(width + 2).Render(strings.Join(lines, "\n"))
}

// runMenuAction performs the selected action and closes the menu.
func (m *model) runMenuAction(action menuAction) tea.Cmd {
	if m.menu == nil {
		return nil
	}
	spec := m.menu.spec
	m.menu = nil
	m.updateLayout()

	switch action {
	case menuOpen:
		return openURLCmd(spec.Link)
	case menuCopyLink:
		return copyToClipboard(spec.Link)
	case menuCopyText:
		return copyToClipboard(spec.Text)
	case menuShowQR:
		title := spec.Text
		if title == "" {
			title = spec.Link
		}
		m.qrOverlay = renderQR(title, spec.Link)
	}
	return nil
}

type urlOpenedMsg struct {
	url string
	err error
}

// openURLCmd hands url to the desktop's opener.
func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		name := "xdg-open"
		if runtime.GOOS == "darwin" {
			name = "open"
		}
		path, err := exec.LookPath(name)
		if err != nil {
			return urlOpenedMsg{url: url, err: fmt.Errorf("no %s on PATH", name)}
		}
		if err := exec.Command(path, url).Start(); err != nil {
			return urlOpenedMsg{url: url, err: err}
		}
		logger.Debug().Str("url", url).Msg("opened link")
		return urlOpenedMsg{url: url}
	}
}

// renderQR renders a QR code with a title line above it.
func renderQR(title, content string) string {
	var buf strings.Builder
	buf.WriteString(qrTitleStyle.Render(title))
	buf.WriteString("\n\n")
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		QuietZone:      1,
	})
	return buf.String()
}
