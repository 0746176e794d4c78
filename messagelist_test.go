package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainRenderer renders "sender: content" without styling.
type plainRenderer struct{}

func (plainRenderer) RenderItem(msg Message, _ *Message, _ ItemOptions) string {
	return msg.SenderName + ": " + msg.Content
}

func immediateTick(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return fn(time.Time{}) }
}

func newTestList(t *testing.T, opts ListOptions) *MessageList {
	t.Helper()
	opts.LocalUserID = "me"
	l := newMessageList("general", plainRenderer{}, opts)
	l.scroller.tick = immediateTick
	l.SetSize(40, 5)
	return l
}

func chat(id int64, sender, content string) Message {
	return Message{
		ID:             id,
		Date:           time.Unix(1700000000+id*60, 0),
		SenderID:       sender,
		SenderName:     sender,
		ConversationID: "general",
		Content:        content,
	}
}

func chatRange(from, to int64, sender string) []Message {
	var msgs []Message
	for id := from; id <= to; id++ {
		msgs = append(msgs, chat(id, sender, fmt.Sprintf("message %d", id)))
	}
	return msgs
}

// deliverTicks runs cmd and hands every scroll tick back to the list.
func deliverTicks(l *MessageList, cmd tea.Cmd) int {
	fired := 0
	for _, tick := range collectTicks(cmd) {
		if l.HandleTick(tick) {
			fired++
		}
	}
	return fired
}

func trimmedLines(l *MessageList) []string {
	var out []string
	for _, line := range l.VisibleLines() {
		out = append(out, strings.TrimRight(line, " "))
	}
	return out
}

func TestMessageListBottomAnchored(t *testing.T) {
	opts := defaultListOptions()
	opts.Header = "-- start of #general --"
	l := newTestList(t, opts)

	l.SetMessages([]Message{chat(1, "bob", "one"), chat(2, "alice", "two")})

	assert.Equal(t, []string{
		"",
		"",
		"-- start of #general --",
		"bob: one",
		"alice: two",
	}, trimmedLines(l))
}

func TestMessageListItemCreator(t *testing.T) {
	opts := defaultListOptions()
	opts.ItemCreator = func(msg Message, prev *Message) string {
		if prev == nil {
			return "first " + msg.Content
		}
		return prev.Content + " > " + msg.Content
	}
	l := newTestList(t, opts)
	l.SetMessages([]Message{chat(1, "bob", "a"), chat(2, "bob", "b")})

	lines := trimmedLines(l)
	assert.Equal(t, "first a", lines[3])
	assert.Equal(t, "a > b", lines[4])
}

func TestMessageListScrollsToNewest(t *testing.T) {
	l := newTestList(t, defaultListOptions())

	cmd := l.SetMessages(chatRange(1, 20, "bob"))
	require.NotNil(t, cmd)
	assert.Equal(t, 0, l.viewport.YOffset, "scroll waits for the tick")

	assert.Equal(t, 1, deliverTicks(l, cmd))
	assert.True(t, l.AtBottom())
	assert.Equal(t, 15, l.viewport.YOffset)
	assert.Equal(t, "bob: message 20", trimmedLines(l)[4])
}

func TestMessageListReadingHistory(t *testing.T) {
	l := newTestList(t, defaultListOptions())
	window := chatRange(1, 20, "bob")
	deliverTicks(l, l.SetMessages(window))

	l.ScrollBy(-3)
	require.False(t, l.AtBottom())
	offset := l.viewport.YOffset

	t.Run("remote message defers", func(t *testing.T) {
		window = insertMessage(window, chat(21, "bob", "new"), 0)
		assert.Nil(t, l.SetMessages(window))
		assert.True(t, l.HasPending())
		assert.Equal(t, offset, l.viewport.YOffset)
	})

	t.Run("prepended history keeps the reader in place", func(t *testing.T) {
		older := []Message{chat(-1, "bob", "old a"), chat(0, "bob", "old b")}
		for _, m := range older {
			window = insertMessage(window, m, 0)
		}
		visible := trimmedLines(l)
		assert.Nil(t, l.SetMessages(window))
		assert.Equal(t, offset+2, l.viewport.YOffset)
		assert.Equal(t, visible, trimmedLines(l))
	})

	t.Run("own message scrolls anyway", func(t *testing.T) {
		window = insertMessage(window, chat(22, "me", "mine"), 0)
		cmd := l.SetMessages(window)
		require.NotNil(t, cmd)
		assert.False(t, l.HasPending())
		assert.Equal(t, 1, deliverTicks(l, cmd))
		assert.True(t, l.AtBottom())
		assert.Equal(t, "me: mine", trimmedLines(l)[4])
	})
}

func TestMessageListPrependAndAppendTogether(t *testing.T) {
	l := newTestList(t, defaultListOptions())
	window := chatRange(1, 20, "bob")
	deliverTicks(l, l.SetMessages(window))

	l.ScrollBy(-3)
	require.False(t, l.AtBottom())
	offset := l.viewport.YOffset
	visible := trimmedLines(l)

	// One batch brings both an older and a newer message.
	window = insertMessage(window, chat(0, "bob", "older"), 0)
	window = insertMessage(window, chat(21, "bob", "newer"), 0)
	assert.Nil(t, l.SetMessages(window))

	assert.Equal(t, offset+1, l.viewport.YOffset, "only the line above counts")
	assert.Equal(t, visible, trimmedLines(l))
	assert.True(t, l.HasPending())
}

func TestMessageListStayBottomDisabled(t *testing.T) {
	opts := defaultListOptions()
	opts.StayBottom = false
	l := newTestList(t, opts)

	assert.Nil(t, l.SetMessages(chatRange(1, 20, "bob")))
	assert.Nil(t, l.SetMessages(chatRange(1, 21, "me")))
	assert.Equal(t, 0, l.viewport.YOffset)
}

func TestMessageListIgnoresForeignScroll(t *testing.T) {
	var seen []ScrollNotification
	opts := defaultListOptions()
	opts.OnScroll = func(_ ScrollSnapshot, n ScrollNotification) {
		seen = append(seen, n)
	}
	l := newTestList(t, opts)
	deliverTicks(l, l.SetMessages(chatRange(1, 20, "bob")))
	l.ScrollBy(-5)
	require.False(t, l.AtBottom())
	seen = nil

	l.HandleScroll(ScrollNotification{
		Origin:   sidebarSurface,
		Geometry: ScrollGeometry{ScrollHeight: 3, ScrollTop: 0, ClientHeight: 3},
	})
	assert.False(t, l.AtBottom())
	assert.Empty(t, seen)

	l.ScrollBy(5)
	assert.True(t, l.AtBottom())
	require.Len(t, seen, 1)
	assert.Equal(t, l.ID(), seen[0].Origin)
}

func TestMessageListContextMenu(t *testing.T) {
	l := newTestList(t, defaultListOptions())
	shell := &fakeShell{}
	l.Mount(nil, shell, func() string { return "" })

	deliverTicks(l, l.SetMessages([]Message{
		chat(1, "bob", "hello"),
		chat(2, "bob", "see https://example.com/page"),
	}))

	line := "bob: see https://example.com/page"
	col := strings.Index(line, "example")

	_, ok := l.ContextMenu(col, 4, Position{X: 30, Y: 9})
	require.True(t, ok)
	require.Len(t, shell.calls, 1)
	assert.Equal(t, "https://example.com/page", shell.calls[0].Link)
	assert.Equal(t, Position{X: 30, Y: 9}, shell.pos[0])

	_, ok = l.ContextMenu(1, 3, Position{})
	assert.False(t, ok, "message without a link")
	_, ok = l.ContextMenu(1, 0, Position{})
	assert.False(t, ok, "padding row")
	assert.Len(t, shell.calls, 1)
}

func TestMessageListUnmount(t *testing.T) {
	notifier := newActiveConversations()
	l := newTestList(t, defaultListOptions())
	l.Mount(notifier, &fakeShell{}, nil)
	notifier.Publish("general")

	cmd := l.SetMessages(chatRange(1, 20, "bob"))
	require.NotNil(t, cmd)

	l.Unmount()
	l.Unmount()
	assert.Zero(t, deliverTicks(l, cmd))
	assert.Equal(t, 0, l.viewport.YOffset)
	assert.Empty(t, notifier.handlers)

	_, ok := l.ContextMenu(0, 4, Position{})
	assert.False(t, ok)
}

func TestMessageListDeferredUntilActive(t *testing.T) {
	notifier := newActiveConversations()
	l := newTestList(t, defaultListOptions())
	l.Mount(notifier, &fakeShell{}, nil)
	notifier.Publish("random")

	assert.Nil(t, l.SetMessages(chatRange(1, 20, "bob")))
	assert.True(t, l.HasPending())

	cmd := notifier.Publish("general")
	assert.False(t, l.HasPending())
	assert.Equal(t, 1, deliverTicks(l, cmd))
	assert.True(t, l.AtBottom())
	assert.Equal(t, "bob: message 20", trimmedLines(l)[4])
}
