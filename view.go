package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderTitleBar returns the rendered title bar for the current selection.
func (m *model) renderTitleBar() string {
	var title string
	if c := m.activeConversation(); c != nil {
		title = c.Prefix() + c.DisplayName()
		if c.list.HasPending() && !c.list.AtBottom() {
			title += chatTimestampStyle.Render("  (new messages below)")
		}
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1).Render(title)
}

func (m *model) updateLayout() {
	contentWidth := m.width - m.sidebarWidth() - sidebarBorder
	if contentWidth < 10 {
		contentWidth = 10
	}

	// Set widths first so measured heights are accurate.
	m.input.SetWidth(contentWidth)

	// Measure fixed-height components dynamically.
	titleHeight := lipgloss.Height(m.renderTitleBar())
	statusHeight := lipgloss.Height(m.viewStatusBar())
	inputHeight := lipgloss.Height(m.input.View())
	menuHeight := 0
	if m.menu != nil {
		menuHeight = lipgloss.Height(m.viewMenu())
	}

	contentHeight := m.height - titleHeight - statusHeight - inputHeight - menuHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Every list gets the same surface so that switching does not reflow.
	for _, c := range m.conversations {
		c.list.SetSize(contentWidth, contentHeight)
	}
}

func (m *model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.qrOverlay != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.qrOverlay)
	}

	sidebar := m.viewSidebar()
	content := m.viewContent()
	statusBar := m.viewStatusBar()

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)

	return lipgloss.JoinVertical(lipgloss.Left, mainArea, statusBar)
}

func (m *model) viewContent() string {
	totalHeight := m.height - lipgloss.Height(m.viewStatusBar())

	titleBar := m.renderTitleBar()
	inputView := m.input.View()

	var list string
	if l := m.activeList(); l != nil {
		list = m.applySelectionHighlight(l.View())
	} else {
		list = chatTimestampStyle.Render(fmt.Sprintf("  no conversations yet: add a %s file to %s or /join one", feedExt, m.cfg.FeedDir))
	}

	var inner string
	if m.menu != nil {
		inner = lipgloss.JoinVertical(lipgloss.Left, titleBar, list, m.viewMenu(), inputView)
	} else {
		inner = lipgloss.JoinVertical(lipgloss.Left, titleBar, list, inputView)
	}

	return lipgloss.NewStyle().Height(totalHeight).MaxHeight(totalHeight).Render(inner)
}

func (m *model) viewStatusBar() string {
	pending := 0
	for _, c := range m.conversations {
		if c.unread {
			pending++
		}
	}
	bar := fmt.Sprintf("● %d conversations", len(m.conversations))
	if pending > 0 {
		bar += fmt.Sprintf(" · %d unread", pending)
	}
	if m.statusMsg != "" {
		text := firstLine(m.statusMsg)
		if m.statusErr {
			text = statusErrorStyle.Render(text)
		}
		bar += " · " + text
	}
	return statusBarStyle.Width(m.width).MaxHeight(1).Render(bar)
}
