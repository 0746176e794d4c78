package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// wheelStep is the number of rows a wheel notch scrolls.
const wheelStep = 3

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case scrollTickMsg:
		return m.handleScrollTick(msg)
	case feedMessagesMsg:
		return m.handleFeedMessages(msg)
	case conversationAddedMsg:
		return m.handleConversationAdded(msg)
	case feedErrMsg:
		return m.handleFeedErr(msg)
	case feedClosedMsg:
		m.log.Debug().Msg("feed watcher closed")
		return m, nil
	case clipboardCopiedMsg:
		m.setStatus(fmt.Sprintf("copied %d bytes", msg.bytes), false)
		return m, nil
	case urlOpenedMsg:
		return m.handleURLOpened(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m.handleInputUpdate(msg)
}

func (m *model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.log.Debug().Int("width", msg.Width).Int("height", msg.Height).Msg("window size")
	m.width = msg.Width
	m.height = msg.Height
	m.scrollSidebar(0)
	m.updateLayout()
	return m, tea.ClearScreen
}

func (m *model) handleScrollTick(msg scrollTickMsg) (tea.Model, tea.Cmd) {
	l := m.listForSurface(msg.listID)
	if l == nil {
		return m, nil
	}
	if l.HandleTick(msg) {
		m.log.Debug().Str("list", string(msg.listID)).Msg("auto-scrolled")
	}
	return m, nil
}

func (m *model) handleFeedMessages(msg feedMessagesMsg) (tea.Model, tea.Cmd) {
	c := m.ensureConversation(msg.conversationID)
	m.log.Debug().Str("conversation", c.ID).Int("count", len(msg.messages)).Msg("feed messages")
	return m, tea.Batch(m.receive(c, msg.messages), waitForFeedEvent(m.watcher))
}

func (m *model) handleConversationAdded(msg conversationAddedMsg) (tea.Model, tea.Cmd) {
	m.ensureConversation(msg.conversationID)
	if len(m.conversations) == 1 {
		return m, tea.Batch(m.activate(0), waitForFeedEvent(m.watcher))
	}
	return m, waitForFeedEvent(m.watcher)
}

func (m *model) handleFeedErr(msg feedErrMsg) (tea.Model, tea.Cmd) {
	m.log.Warn().Err(msg.err).Msg("feed error")
	m.setStatus(msg.Error(), true)
	if m.watcher == nil {
		return m, nil
	}
	return m, waitForFeedEvent(m.watcher)
}

func (m *model) handleURLOpened(msg urlOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("open "+msg.url+": "+msg.err.Error(), true)
		return m, copyToClipboard(msg.url)
	}
	m.setStatus("opened "+msg.url, false)
	return m, nil
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	onSidebar := msg.X < m.sidebarWidth()

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := wheelStep
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -delta
		}
		l := m.activeList()
		if onSidebar {
			m.scrollSidebar(delta)
			// The sidebar is a separate surface; the list ignores it.
			if l != nil {
				l.HandleScroll(ScrollNotification{Origin: sidebarSurface, Geometry: m.sidebarGeometry()})
			}
			return m, nil
		}
		if l != nil {
			l.ScrollBy(delta)
		}
		return m, nil

	case tea.MouseButtonRight:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if m.menu != nil {
			m.menu = nil
			m.updateLayout()
		}
		if !m.inList(msg.X, msg.Y) {
			return m, nil
		}
		ox, oy := m.listOrigin()
		cmd, _ := m.activeList().ContextMenu(msg.X-ox, msg.Y-oy, Position{X: msg.X, Y: msg.Y})
		return m, cmd

	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			break
		}
		if m.menu != nil {
			if idx, ok := m.menu.itemAt(msg.Y - m.menuTop()); ok && !onSidebar {
				return m, m.runMenuAction(m.menu.items[idx].action)
			}
			m.menu = nil
			m.updateLayout()
		}
		if onSidebar {
			if idx, ok := m.sidebarItemAt(msg.Y); ok {
				return m, m.activate(idx)
			}
			return m, nil
		}
		m.clearSelection()
		if m.inList(msg.X, msg.Y) {
			m.selecting = true
			m.selectFrom = [2]int{msg.X, msg.Y}
			m.selectTo = m.selectFrom
		}
		return m, nil
	}

	// Drag and release of a left-button selection.
	if !m.selecting {
		return m, nil
	}
	switch msg.Action {
	case tea.MouseActionMotion:
		m.selectTo = [2]int{msg.X, msg.Y}
	case tea.MouseActionRelease:
		m.selectTo = [2]int{msg.X, msg.Y}
		m.selecting = false
		if m.selectTo == m.selectFrom {
			return m, nil
		}
		text := m.extractSelectedText()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.hasSelection = true
		m.selectedText = text
		return m, copyToClipboard(text)
	}
	return m, nil
}

func (m *model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "shift+tab":
		m.menu.move(-1)
	case "down", "j", "tab":
		m.menu.move(1)
	case "enter":
		return m, m.runMenuAction(m.menu.selected())
	case "esc", "q":
		m.menu = nil
		m.updateLayout()
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Dismiss QR overlay on any key (except ctrl+c which still quits).
	if m.qrOverlay != "" {
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		m.qrOverlay = ""
		return m, nil
	}

	if m.menu != nil {
		return m.handleMenuKey(msg)
	}

	// Input history navigation, only when the cursor is on the
	// top (up) or bottom (down) line of the textarea.
	if msg.String() == "up" && m.input.Line() == 0 && len(m.inputHistory) > 0 {
		if m.historyIndex == -1 {
			// Entering history: save current input.
			m.historySaved = m.input.Value()
			m.historyIndex = len(m.inputHistory) - 1
		} else if m.historyIndex > 0 {
			m.historyIndex--
		}
		m.input.SetValue(m.inputHistory[m.historyIndex])
		m.syncInputHeight()
		return m, nil
	}
	if msg.String() == "down" && m.input.Line() == m.input.LineCount()-1 && m.historyIndex >= 0 {
		if m.historyIndex < len(m.inputHistory)-1 {
			m.historyIndex++
			m.input.SetValue(m.inputHistory[m.historyIndex])
		} else {
			// Past newest entry: restore saved input.
			m.historyIndex = -1
			m.input.SetValue(m.historySaved)
			m.historySaved = ""
		}
		m.syncInputHeight()
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case "esc":
		m.clearSelection()
		return m, nil

	case "ctrl+up":
		if n := len(m.conversations); n > 1 {
			return m, m.activate((m.activeItem - 1 + n) % n)
		}
		return m, nil

	case "ctrl+down":
		if n := len(m.conversations); n > 1 {
			return m, m.activate((m.activeItem + 1) % n)
		}
		return m, nil

	case "pgup":
		if l := m.activeList(); l != nil {
			l.ScrollBy(-10)
		}
		return m, nil

	case "pgdown":
		if l := m.activeList(); l != nil {
			l.ScrollBy(10)
		}
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.inputHistory = append(m.inputHistory, text)
		m.historyIndex = -1
		m.historySaved = ""
		m.input.Reset()
		m.input.SetHeight(inputMinHeight)
		m.lastInputHeight = inputMinHeight
		m.updateLayout()

		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m, m.send(text)
	}

	return m.handleInputUpdate(msg)
}

func (m *model) handleInputUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Pre-grow textarea before newline insertion so the internal viewport
	// calculates its scroll offset with the correct height.
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if s := keyMsg.String(); s == "alt+enter" || s == "ctrl+j" {
			target := min(m.input.LineCount()+1, inputMaxHeight)
			if target != m.lastInputHeight {
				m.input.SetHeight(target)
				m.lastInputHeight = target
				m.updateLayout()
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Shrink textarea when lines are removed (e.g. backspace joining lines).
	m.syncInputHeight()

	return m, cmd
}

// menuTop is the screen row of the menu's top border.
func (m *model) menuTop() int {
	_, oy := m.listOrigin()
	if l := m.activeList(); l != nil {
		return oy + l.viewport.Height
	}
	return oy
}
