package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

type model struct {
	// Config
	cfg         Config
	cfgFlagPath string
	listOpts    ListOptions
	renderer    MessageItemRenderer

	// TUI dimensions
	width  int
	height int

	// Conversations, in sidebar order.
	conversations []*conversation
	byID          map[string]*conversation
	activeItem    int
	sidebarOffset int
	notifier      *activeConversations

	watcher *feedWatcher

	// Components
	input           textarea.Model
	lastInputHeight int

	// Mouse selection in screen coordinates.
	selecting    bool
	hasSelection bool
	selectFrom   [2]int
	selectTo     [2]int
	selectedText string

	// Link context menu (nil = closed) and QR overlay (non-empty = shown).
	menu      *contextMenu
	qrOverlay string

	// Input history
	inputHistory []string // sent messages, newest last
	historyIndex int      // -1 = current input
	historySaved string   // unsent input saved when entering history

	// Status
	statusMsg string
	statusErr bool

	closed bool

	log zerolog.Logger
}

// newModel builds the model. Lists are created here but mounted in Init,
// once the model has its final address.
func newModel(cfg Config, cfgFlagPath string, listOpts ListOptions, renderer MessageItemRenderer, histories map[string][]Message, order []string, watcher *feedWatcher) model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetHeight(inputMinHeight)
	ta.MaxHeight = inputMaxHeight
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	m := model{
		cfg:             cfg,
		cfgFlagPath:     cfgFlagPath,
		listOpts:        listOpts,
		renderer:        renderer,
		width:           80,
		height:          24,
		byID:            make(map[string]*conversation),
		notifier:        newActiveConversations(),
		watcher:         watcher,
		input:           ta,
		lastInputHeight: inputMinHeight,
		historyIndex:    -1,
		log:             componentLogger("model"),
	}
	for _, id := range order {
		c := m.addConversation(id)
		c.window = histories[id]
	}

	if last := LoadLastActive(cfgFlagPath); last != "" {
		for i, c := range m.conversations {
			if c.ID == last {
				m.activeItem = i
			}
		}
	}
	m.statusMsg = fmt.Sprintf("following %s", cfg.FeedDir)
	return m
}

// addConversation creates an unmounted conversation.
func (m *model) addConversation(id string) *conversation {
	if c, ok := m.byID[id]; ok {
		return c
	}
	c := &conversation{
		ID:   id,
		list: newMessageList(id, m.renderer, m.listOpts),
	}
	m.conversations = append(m.conversations, c)
	m.byID[id] = c
	return c
}

func (m *model) mount(c *conversation) {
	c.list.Mount(m.notifier, m, m.currentSelection)
}

// ensureConversation returns the conversation, creating and mounting it if needed.
func (m *model) ensureConversation(id string) *conversation {
	if c, ok := m.byID[id]; ok {
		return c
	}
	c := m.addConversation(id)
	m.mount(c)
	m.updateLayout()
	return c
}

func (m *model) Init() tea.Cmd {
	m.log.Info().Int("conversations", len(m.conversations)).Msg("init")
	for _, c := range m.conversations {
		m.mount(c)
	}

	var cmds []tea.Cmd
	cmds = append(cmds, textarea.Blink)
	if c := m.activeConversation(); c != nil {
		cmds = append(cmds, m.notifier.Publish(c.ID))
	}
	for _, c := range m.conversations {
		cmds = append(cmds, c.list.SetMessages(c.window))
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForFeedEvent(m.watcher))
	}
	return tea.Batch(cmds...)
}

// activeConversation returns the selected conversation, or nil if there is none.
func (m *model) activeConversation() *conversation {
	if m.activeItem < 0 || m.activeItem >= len(m.conversations) {
		return nil
	}
	return m.conversations[m.activeItem]
}

func (m *model) activeList() *MessageList {
	if c := m.activeConversation(); c != nil {
		return c.list
	}
	return nil
}

// activate selects the conversation at idx and broadcasts it.
func (m *model) activate(idx int) tea.Cmd {
	if idx < 0 || idx >= len(m.conversations) {
		return nil
	}
	m.activeItem = idx
	c := m.conversations[idx]
	c.unread = false
	m.clearSelection()
	m.menu = nil
	m.log.Debug().Str("conversation", c.ID).Msg("activate")
	return m.notifier.Publish(c.ID)
}

// listForSurface finds the list owning a surface id.
func (m *model) listForSurface(id SurfaceID) *MessageList {
	for _, c := range m.conversations {
		if c.list.ID() == id {
			return c.list
		}
	}
	return nil
}

// receive merges messages into a conversation's window.
func (m *model) receive(c *conversation, msgs []Message) tea.Cmd {
	window := c.window
	for _, msg := range msgs {
		msg.ConversationID = c.ID
		window = insertMessage(window, msg, m.cfg.MaxMessages)
	}
	c.window = window
	cmd := c.list.SetMessages(window)
	if c != m.activeConversation() {
		c.unread = true
	}
	return cmd
}

// send appends a locally authored message to the active conversation and
// writes it to the feed.
func (m *model) send(text string) tea.Cmd {
	c := m.activeConversation()
	if c == nil {
		m.setStatus("no conversation selected: /join one first", true)
		return nil
	}
	msg := Message{
		ID:             nextMessageID(c.window),
		Date:           feedTime(time.Now()),
		SenderID:       m.cfg.UserID,
		SenderName:     m.cfg.DisplayName,
		ConversationID: c.ID,
		Content:        text,
	}
	return tea.Batch(m.receive(c, []Message{msg}), appendFeedCmd(m.cfg.FeedDir, msg))
}

// appendFeedCmd writes msg to the feed off the update loop.
func appendFeedCmd(dir string, msg Message) tea.Cmd {
	return func() tea.Msg {
		if err := appendFeedEntry(dir, msg); err != nil {
			return feedErrMsg{err}
		}
		return nil
	}
}

// ShowContextMenu opens the link menu below the message list.
func (m *model) ShowContextMenu(pos Position, spec MenuSpec) tea.Cmd {
	m.log.Debug().Str("link", spec.Link).Int("x", pos.X).Int("y", pos.Y).Msg("context menu")
	m.menu = newContextMenu(pos, spec)
	m.updateLayout()
	return nil
}

func (m *model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
}

// shutdown tears every list down and stops the feed watcher.
func (m *model) shutdown() {
	if m.closed {
		return
	}
	m.closed = true
	for _, c := range m.conversations {
		c.list.Unmount()
	}
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			m.log.Warn().Err(err).Msg("closing watcher")
		}
	}
	if c := m.activeConversation(); c != nil {
		if err := SaveLastActive(m.cfgFlagPath, c.ID); err != nil {
			m.log.Warn().Err(err).Msg("saving last active conversation")
		}
	}
}

// syncInputHeight resizes the textarea to match its content and re-layouts if needed.
func (m *model) syncInputHeight() {
	lines := m.input.LineCount()
	if lines < inputMinHeight {
		lines = inputMinHeight
	}
	if lines > inputMaxHeight {
		lines = inputMaxHeight
	}
	if lines != m.lastInputHeight {
		m.input.SetHeight(lines)
		m.lastInputHeight = lines
		m.updateLayout()
	}
}

// listOrigin returns the screen position of the list's top-left cell.
func (m *model) listOrigin() (int, int) {
	return m.sidebarWidth() + sidebarBorder, lipgloss.Height(m.renderTitleBar())
}

// inList reports whether a screen cell lies on the message list.
func (m *model) inList(x, y int) bool {
	l := m.activeList()
	if l == nil {
		return false
	}
	ox, oy := m.listOrigin()
	return x >= ox && y >= oy && y < oy+l.viewport.Height
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
