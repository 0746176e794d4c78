package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// conversation is one sidebar entry and the list showing it.
type conversation struct {
	ID     string
	list   *MessageList
	window []Message
	unread bool
}

func (c *conversation) DisplayName() string { return c.ID }
func (c *conversation) Prefix() string      { return "#" }

// sidebarHeaderRows is the number of rows above the first conversation.
const sidebarHeaderRows = 1

// sidebarItemAt maps a Y coordinate to a conversation index.
// Returns false for the section header and rows past the last entry.
func (m *model) sidebarItemAt(y int) (int, bool) {
	idx := y - sidebarHeaderRows + m.sidebarOffset
	if y < sidebarHeaderRows || idx < 0 || idx >= len(m.conversations) {
		return 0, false
	}
	return idx, true
}

func (m *model) sidebarWidth() int {
	longest := 0
	for _, c := range m.conversations {
		if n := ansi.StringWidth(c.Prefix() + c.DisplayName()); n > longest {
			longest = n
		}
	}
	w := longest + sidebarPadding
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	return w
}

// sidebarRows is the number of conversation rows that fit.
func (m *model) sidebarRows() int {
	rows := m.height - lipgloss.Height(m.viewStatusBar()) - sidebarHeaderRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// scrollSidebar moves the sidebar by delta rows, clamped to its content.
func (m *model) scrollSidebar(delta int) {
	maxOffset := len(m.conversations) - m.sidebarRows()
	if maxOffset < 0 {
		maxOffset = 0
	}
	m.sidebarOffset = min(max(m.sidebarOffset+delta, 0), maxOffset)
}

// sidebarGeometry describes the sidebar as a scroll surface.
func (m *model) sidebarGeometry() ScrollGeometry {
	return ScrollGeometry{
		ScrollHeight: max(len(m.conversations), m.sidebarRows()),
		ScrollTop:    m.sidebarOffset,
		ClientHeight: m.sidebarRows(),
	}
}

func (m *model) viewSidebar() string {
	contentHeight := m.height - lipgloss.Height(m.viewStatusBar())
	sw := m.sidebarWidth()
	items := []string{sidebarSectionStyle.Render("CONVERSATIONS")}

	end := min(len(m.conversations), m.sidebarOffset+m.sidebarRows())
	for i := m.sidebarOffset; i < end; i++ {
		c := m.conversations[i]
		name := c.Prefix() + c.DisplayName()
		if ansi.StringWidth(name) > sw-2 {
			name = ansi.Truncate(name, sw-2, "")
		}
		switch {
		case i == m.activeItem:
			items = append(items, sidebarSelectedStyle.Render(name))
		case c.unread:
			items = append(items, sidebarUnreadStyle.Render(name))
		default:
			items = append(items, sidebarItemStyle.Render(name))
		}
	}

	content := strings.Join(items, "\n")
	return sidebarStyle.Width(sw).Height(contentHeight).MaxHeight(contentHeight).Render(content)
}
