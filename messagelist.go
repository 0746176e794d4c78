package main

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// ItemCreator overrides the renderer for a single message.
type ItemCreator func(msg Message, prev *Message) string

// ListOptions configure a MessageList.
type ListOptions struct {
	// StayBottom enables auto-scrolling to new messages.
	StayBottom bool
	// StaticUI renders items without interactive styling.
	StaticUI        bool
	ShowDateDivider int
	ItemCreator     ItemCreator
	ItemProps       map[string]string
	// Header is shown after all items, which puts it above the oldest message.
	Header string
	// OnScroll is called with every accepted scroll notification.
	OnScroll func(ScrollSnapshot, ScrollNotification)

	LocalUserID string
	Delays      scrollDelays
}

func defaultListOptions() ListOptions {
	return ListOptions{
		StayBottom: true,
		Delays:     defaultScrollDelays(),
	}
}

func listSurfaceID(conversationID string) SurfaceID {
	return SurfaceID("list:" + conversationID)
}

// MessageList shows one conversation's window in a bottom-anchored viewport
// and owns the scroll anchoring for it. A list is mounted once and is dead
// after Unmount.
type MessageList struct {
	id             SurfaceID
	conversationID string
	opts           ListOptions
	renderer       MessageItemRenderer
	viewport       viewport.Model

	messages []Message
	lines    []string
	owners   []int // message index per content line, -1 for header and padding
	links    map[int64][]linkSpan

	differ   windowDiffer
	tracker  *scrollTracker
	scroller *autoScroller
	menu     *contextMenuActivator
	mounted  bool
	log      zerolog.Logger
}

func newMessageList(conversationID string, renderer MessageItemRenderer, opts ListOptions) *MessageList {
	if renderer == nil {
		renderer = glamourItemRenderer{}
	}
	id := listSurfaceID(conversationID)
	l := &MessageList{
		id:             id,
		conversationID: conversationID,
		opts:           opts,
		renderer:       renderer,
		viewport:       viewport.New(80, 20),
		links:          make(map[int64][]linkSpan),
		tracker:        newScrollTracker(id),
		log:            componentLogger("messagelist").With().Str("conversation", conversationID).Logger(),
	}
	l.scroller = newAutoScroller(id, opts.LocalUserID, opts.Delays, l.tracker, l.scrollToBottom)
	return l
}

// Mount attaches the list to the notifier and the shell. notifier may be nil,
// in which case the conversation always counts as visible.
func (l *MessageList) Mount(notifier ActiveConversationNotifier, shell UIShell, selection func() string) {
	if l.mounted {
		return
	}
	l.mounted = true
	if notifier != nil {
		l.scroller.attach(subscribeConversation(notifier, l.conversationID, l.scroller.ActiveConversationChanged))
	}
	l.menu = &contextMenuActivator{shell: shell, selection: selection}
}

// Unmount cancels any scheduled scroll and detaches from the notifier.
func (l *MessageList) Unmount() {
	l.scroller.Teardown()
	l.mounted = false
	l.menu = nil
}

// ID returns the list's surface id.
func (l *MessageList) ID() SurfaceID {
	return l.id
}

// Messages returns the current window.
func (l *MessageList) Messages() []Message {
	return l.messages
}

// HasPending reports whether a new message is waiting for this conversation
// to become visible.
func (l *MessageList) HasPending() bool {
	_, ok := l.scroller.Pending()
	return ok
}

// AtBottom reports whether the reader was at the bottom at the last scroll.
func (l *MessageList) AtBottom() bool {
	return l.tracker.AtBottom()
}

// Snapshot returns the tracked scroll snapshot.
func (l *MessageList) Snapshot() (ScrollSnapshot, bool) {
	return l.tracker.Snapshot()
}

// SetSize resizes the surface. A reader at the bottom stays there.
func (l *MessageList) SetSize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width == l.viewport.Width && height == l.viewport.Height {
		return
	}
	wasBottom := l.tracker.AtBottom()
	l.viewport.Width = width
	l.viewport.Height = height
	l.render()
	if wasBottom {
		l.viewport.GotoBottom()
	}
	l.notifyScroll()
}

// SetMessages replaces the window and returns the scroll command, if any,
// that the change calls for.
func (l *MessageList) SetMessages(msgs []Message) tea.Cmd {
	anchorRow, anchored := -1, false
	if first, ok := firstOf(l.messages); ok {
		anchorRow, anchored = l.firstLineOf(first.ID)
	}
	l.messages = msgs
	l.render()

	change := l.differ.Diff(msgs)
	if change.HasOldest && anchored && !l.tracker.AtBottom() {
		// Keep the lines the reader is looking at in place while older
		// history grows above them. Lines appended below do not count.
		if row, ok := l.firstLineOf(change.Oldest.ID); ok && row > anchorRow {
			grown := row - anchorRow
			l.log.Debug().Int64("first", change.Oldest.ID).Int("lines", grown).Msg("history prepended")
			l.viewport.SetYOffset(l.viewport.YOffset + grown)
			l.notifyScroll()
		}
	}
	if !l.opts.StayBottom || !change.HasNewest {
		return nil
	}
	return l.scroller.NewestDetected(change.Newest)
}

// firstLineOf returns the first content row rendered for message id.
func (l *MessageList) firstLineOf(id int64) (int, bool) {
	for row, owner := range l.owners {
		if owner >= 0 && owner < len(l.messages) && l.messages[owner].ID == id {
			return row, true
		}
	}
	return 0, false
}

// HandleTick runs a scheduled scroll when tick belongs to this list.
func (l *MessageList) HandleTick(tick scrollTickMsg) bool {
	if tick.listID != l.id {
		return false
	}
	return l.scroller.Fire(tick)
}

// ScrollBy moves the surface by delta rows (negative is up) as a user would.
func (l *MessageList) ScrollBy(delta int) {
	if delta < 0 {
		l.viewport.ScrollUp(-delta)
	} else if delta > 0 {
		l.viewport.ScrollDown(delta)
	}
	l.notifyScroll()
}

// HandleScroll feeds a scroll notification to the tracker. Notifications
// from other surfaces are ignored.
func (l *MessageList) HandleScroll(n ScrollNotification) {
	snap, ok := l.tracker.Observe(n)
	if !ok {
		return
	}
	if l.opts.OnScroll != nil {
		l.opts.OnScroll(snap, n)
	}
}

// ContextMenu handles a secondary click at (x, y) relative to the surface.
// screen is the absolute click position handed to the shell. It reports
// whether the click was consumed.
func (l *MessageList) ContextMenu(x, y int, screen Position) (tea.Cmd, bool) {
	if l.menu == nil {
		return nil, false
	}
	row := l.viewport.YOffset + y
	if y < 0 || row < 0 || row >= len(l.owners) {
		return nil, false
	}
	owner := l.owners[row]
	if owner < 0 || owner >= len(l.messages) {
		return nil, false
	}
	return l.menu.Activate(pointerEvent{
		Pos:   screen,
		Col:   x,
		Line:  l.lines[row],
		Links: l.linksFor(l.messages[owner]),
	})
}

// VisibleLines returns the plain rows currently on screen.
func (l *MessageList) VisibleLines() []string {
	return strings.Split(l.viewport.View(), "\n")
}

func (l *MessageList) View() string {
	return l.viewport.View()
}

func (l *MessageList) linksFor(msg Message) []linkSpan {
	if links, ok := l.links[msg.ID]; ok {
		return links
	}
	links := extractLinks(msg.Content)
	l.links[msg.ID] = links
	return links
}

func (l *MessageList) scrollToBottom(anchor Message) {
	l.viewport.GotoBottom()
	l.log.Debug().Int64("anchor", anchor.ID).Msg("scrolled to bottom")
	l.notifyScroll()
}

func (l *MessageList) notifyScroll() {
	l.HandleScroll(ScrollNotification{Origin: l.id, Geometry: viewportGeometry(l.viewport)})
}

func (l *MessageList) itemOptions() ItemOptions {
	return ItemOptions{
		Width:           l.viewport.Width,
		StaticUI:        l.opts.StaticUI,
		ShowDateDivider: l.opts.ShowDateDivider,
		LocalUserID:     l.opts.LocalUserID,
		Props:           l.opts.ItemProps,
	}
}

type listItem struct {
	text  string
	owner int
}

// render composes the items newest first and lays them out column-reversed,
// so the newest message sits at the bottom of the surface and short content
// hugs the bottom edge.
func (l *MessageList) render() {
	opts := l.itemOptions()
	items := make([]listItem, 0, len(l.messages)+1)
	var prev *Message
	for i := range l.messages {
		var text string
		if l.opts.ItemCreator != nil {
			text = l.opts.ItemCreator(l.messages[i], prev)
		} else {
			text = l.renderer.RenderItem(l.messages[i], prev, opts)
		}
		items = append(items, listItem{text: text, owner: i})
		prev = &l.messages[i]
	}
	slices.Reverse(items)
	if l.opts.Header != "" {
		items = append(items, listItem{text: l.opts.Header, owner: -1})
	}

	var lines []string
	var owners []int
	for i := len(items) - 1; i >= 0; i-- {
		for _, line := range strings.Split(items[i].text, "\n") {
			lines = append(lines, line)
			owners = append(owners, items[i].owner)
		}
	}
	if pad := l.viewport.Height - len(lines); pad > 0 && len(lines) > 0 {
		lines = append(make([]string, pad), lines...)
		owners = append(slices.Repeat([]int{-1}, pad), owners...)
	}

	l.lines = lines
	l.owners = owners
	l.viewport.SetContent(strings.Join(lines, "\n"))
}
