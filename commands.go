package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/join":
		if arg == "" {
			m.setStatus("usage: /join <conversation>", true)
			return m, nil
		}
		return m.joinConversation(strings.TrimPrefix(arg, "#"))

	case "/bottom":
		if l := m.activeList(); l != nil {
			l.ScrollBy(l.viewport.TotalLineCount())
		}
		return m, nil

	case "/quit":
		m.shutdown()
		return m, tea.Quit

	case "/help":
		m.setStatus("/join <conversation>  /bottom  /quit  ·  ctrl+up/down switch  ·  right-click a link for its menu", false)
		return m, nil
	}

	m.setStatus("unknown command: "+cmd, true)
	return m, nil
}

// joinConversation creates the conversation's feed file if needed and
// switches to it.
func (m *model) joinConversation(id string) (tea.Model, tea.Cmd) {
	// Use the name the feed file will be reported under.
	id, ok := conversationFromPath(feedFilePath(m.cfg.FeedDir, id))
	if !ok {
		m.setStatus(fmt.Sprintf("invalid conversation name %q", id), true)
		return m, nil
	}
	if err := os.MkdirAll(m.cfg.FeedDir, 0o755); err != nil {
		m.setStatus("create feed dir: "+err.Error(), true)
		return m, nil
	}
	f, err := os.OpenFile(feedFilePath(m.cfg.FeedDir, id), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		m.setStatus("create conversation: "+err.Error(), true)
		return m, nil
	}
	f.Close()

	m.ensureConversation(id)
	for i, c := range m.conversations {
		if c.ID == id {
			return m, m.activate(i)
		}
	}
	return m, nil
}
