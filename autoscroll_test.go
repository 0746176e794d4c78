package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBottom struct{ at bool }

func (f *fakeBottom) AtBottom() bool { return f.at }

type scrollerHarness struct {
	a        *autoScroller
	bottom   *fakeBottom
	notifier *activeConversations
	scrolled []Message
	delays   []time.Duration
}

func newScrollerHarness(conv string) *scrollerHarness {
	h := &scrollerHarness{
		bottom:   &fakeBottom{at: true},
		notifier: newActiveConversations(),
	}
	h.a = newAutoScroller(listSurfaceID(conv), "me", defaultScrollDelays(), h.bottom, func(m Message) {
		h.scrolled = append(h.scrolled, m)
	})
	h.a.tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		h.delays = append(h.delays, d)
		return func() tea.Msg { return fn(time.Now()) }
	}
	h.a.attach(subscribeConversation(h.notifier, conv, h.a.ActiveConversationChanged))
	return h
}

// collectTicks runs cmd, descending into batches, and returns the scroll
// ticks it produced.
func collectTicks(cmd tea.Cmd) []scrollTickMsg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case scrollTickMsg:
		return []scrollTickMsg{msg}
	case tea.BatchMsg:
		var ticks []scrollTickMsg
		for _, c := range msg {
			ticks = append(ticks, collectTicks(c)...)
		}
		return ticks
	}
	return nil
}

func msgFrom(id int64, conv, sender string) Message {
	return Message{
		ID:             id,
		Date:           time.Unix(1700000000+id, 0),
		SenderID:       sender,
		SenderName:     sender,
		ConversationID: conv,
		Content:        "hi",
	}
}

func TestAutoScrollLocalMessageScrolls(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("a")
	h.bottom.at = false // own messages scroll even from history

	m := msgFrom(1, "a", "me")
	ticks := collectTicks(h.a.NewestDetected(m))
	require.Len(t, ticks, 1)
	assert.Equal(t, stateScrollScheduled, h.a.State())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, h.delays)

	require.True(t, h.a.Fire(ticks[0]))
	assert.Equal(t, stateIdle, h.a.State())
	require.Len(t, h.scrolled, 1)
	assert.Equal(t, int64(1), h.scrolled[0].ID)
}

func TestAutoScrollRemoteMessage(t *testing.T) {
	t.Run("at bottom scrolls after the remote delay", func(t *testing.T) {
		h := newScrollerHarness("a")
		h.notifier.Publish("a")

		ticks := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "bob")))
		require.Len(t, ticks, 1)
		assert.Equal(t, []time.Duration{100 * time.Millisecond}, h.delays)
		assert.True(t, h.a.Fire(ticks[0]))
		assert.Len(t, h.scrolled, 1)
	})

	t.Run("reading history defers", func(t *testing.T) {
		h := newScrollerHarness("a")
		h.notifier.Publish("a")
		h.bottom.at = false

		assert.Nil(t, h.a.NewestDetected(msgFrom(1, "a", "bob")))
		assert.Equal(t, stateDeferred, h.a.State())
		pending, ok := h.a.Pending()
		require.True(t, ok)
		assert.Equal(t, int64(1), pending.ID)
		assert.Empty(t, h.scrolled)
	})
}

func TestAutoScrollInactiveDefersThenFlushes(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("b")

	assert.Nil(t, h.a.NewestDetected(msgFrom(7, "a", "bob")))
	assert.Equal(t, stateDeferred, h.a.State())

	ticks := collectTicks(h.notifier.Publish("a"))
	require.Len(t, ticks, 1)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, h.delays)
	_, ok := h.a.Pending()
	assert.False(t, ok, "pending marker cleared on activation")

	require.True(t, h.a.Fire(ticks[0]))
	require.Len(t, h.scrolled, 1)
	assert.Equal(t, int64(7), h.scrolled[0].ID)
}

func TestAutoScrollInactiveOwnMessageDefers(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("b")

	assert.Nil(t, h.a.NewestDetected(msgFrom(1, "a", "me")))
	assert.Equal(t, stateDeferred, h.a.State())
}

func TestAutoScrollActivationWhileReadingHistory(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("b")
	h.a.NewestDetected(msgFrom(1, "a", "bob"))
	h.bottom.at = false

	assert.Nil(t, h.notifier.Publish("a"))
	assert.Equal(t, stateIdle, h.a.State())
	_, ok := h.a.Pending()
	assert.False(t, ok)
	assert.Empty(t, h.scrolled)
}

func TestAutoScrollOtherConversationActivationIgnored(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("b")
	h.a.NewestDetected(msgFrom(1, "a", "bob"))

	assert.Nil(t, h.notifier.Publish("c"))
	assert.Equal(t, stateDeferred, h.a.State())
	_, ok := h.a.Pending()
	assert.True(t, ok)
}

func TestAutoScrollRapidAppendsScrollOnce(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("a")

	first := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "bob")))
	second := collectTicks(h.a.NewestDetected(msgFrom(2, "a", "bob")))
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// Ticks may arrive in either order; only the latest may act.
	assert.False(t, h.a.Fire(first[0]))
	assert.True(t, h.a.Fire(second[0]))
	assert.False(t, h.a.Fire(first[0]))

	require.Len(t, h.scrolled, 1)
	assert.Equal(t, int64(2), h.scrolled[0].ID)
}

func TestAutoScrollDeferSupersedesScheduled(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("a")

	ticks := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "bob")))
	require.Len(t, ticks, 1)

	h.bottom.at = false
	h.a.NewestDetected(msgFrom(2, "a", "bob"))
	assert.Equal(t, stateDeferred, h.a.State())

	assert.False(t, h.a.Fire(ticks[0]))
	assert.Empty(t, h.scrolled)
}

func TestAutoScrollDeferKeepsOwnScroll(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("a")
	h.bottom.at = false

	ticks := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "me")))
	require.Len(t, ticks, 1)

	// A reply lands before the tick while the tracker still reads history.
	assert.Nil(t, h.a.NewestDetected(msgFrom(2, "a", "bob")))
	assert.Equal(t, stateScrollScheduled, h.a.State())
	_, ok := h.a.Pending()
	assert.True(t, ok)

	require.True(t, h.a.Fire(ticks[0]))
	assert.Equal(t, stateIdle, h.a.State())
	require.Len(t, h.scrolled, 1)
	assert.Equal(t, int64(1), h.scrolled[0].ID)
	_, ok = h.a.Pending()
	assert.False(t, ok, "the scroll revealed the reply")
}

func TestAutoScrollTeardown(t *testing.T) {
	t.Run("stale tick after teardown is ignored", func(t *testing.T) {
		h := newScrollerHarness("a")
		h.notifier.Publish("a")
		ticks := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "bob")))
		require.Len(t, ticks, 1)

		h.a.Teardown()
		assert.False(t, h.a.Fire(ticks[0]))
		assert.Empty(t, h.scrolled)
	})

	t.Run("unsubscribes and is idempotent", func(t *testing.T) {
		h := newScrollerHarness("a")
		h.notifier.Publish("b")
		h.a.NewestDetected(msgFrom(1, "a", "bob"))

		h.a.Teardown()
		h.a.Teardown()
		assert.Empty(t, h.notifier.handlers)
		assert.Nil(t, h.notifier.Publish("a"))
		assert.Nil(t, h.a.NewestDetected(msgFrom(2, "a", "me")))
		assert.Empty(t, h.scrolled)
	})
}

func TestAutoScrollTickForOtherList(t *testing.T) {
	h := newScrollerHarness("a")
	h.notifier.Publish("a")
	ticks := collectTicks(h.a.NewestDetected(msgFrom(1, "a", "bob")))
	require.Len(t, ticks, 1)

	foreign := ticks[0]
	foreign.listID = listSurfaceID("b")
	assert.False(t, h.a.Fire(foreign))
	assert.True(t, h.a.Fire(ticks[0]))
}

func TestAutoScrollWithoutNotifier(t *testing.T) {
	bottom := &fakeBottom{at: true}
	var scrolled int
	a := newAutoScroller(listSurfaceID("a"), "me", defaultScrollDelays(), bottom, func(Message) { scrolled++ })
	a.tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		return func() tea.Msg { return fn(time.Now()) }
	}

	ticks := collectTicks(a.NewestDetected(msgFrom(1, "a", "bob")))
	require.Len(t, ticks, 1)
	assert.True(t, a.Fire(ticks[0]))
	assert.Equal(t, 1, scrolled)
}

func TestAutoScrollStateString(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "scroll-scheduled", stateScrollScheduled.String())
	assert.Equal(t, "deferred", stateDeferred.String())
}
