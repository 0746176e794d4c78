package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// autoScrollState is the state of a list's scroll anchoring.
type autoScrollState int

const (
	stateIdle autoScrollState = iota
	stateScrollScheduled
	stateDeferred
)

func (s autoScrollState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateScrollScheduled:
		return "scroll-scheduled"
	case stateDeferred:
		return "deferred"
	}
	return "unknown"
}

// scrollDelays are the waits before a scheduled scroll-to-bottom runs.
type scrollDelays struct {
	// Local applies to messages the local user sent.
	Local time.Duration
	// Remote applies to messages from anyone else, giving layout time to settle.
	Remote time.Duration
	// Activate applies when a deferred conversation becomes visible.
	Activate time.Duration
}

func defaultScrollDelays() scrollDelays {
	return scrollDelays{
		Local:    10 * time.Millisecond,
		Remote:   100 * time.Millisecond,
		Activate: 500 * time.Millisecond,
	}
}

// scrollTickMsg fires when a scheduled scroll is due. Only the tick whose seq
// matches the list's current sequence may act.
type scrollTickMsg struct {
	listID SurfaceID
	seq    uint64
}

type bottomReader interface {
	AtBottom() bool
}

// activeSubscription is what the scroller needs from the active-conversation
// adapter: a visibility query and a way to detach.
type activeSubscription interface {
	IsActive(conversationID string) bool
	Close()
}

type tickFunc func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

// autoScroller decides when a message list jumps to its newest message.
//
// Idle -> ScrollScheduled when a visible conversation receives a message the
// user should see (own message, or reader already at bottom).
// Idle -> Deferred when the message cannot be shown yet; the message is kept
// as the pending marker. Deferred -> ScrollScheduled or Idle when the
// conversation becomes active. ScrollScheduled -> Idle when the tick fires.
// A deferred arrival cancels a scheduled remote scroll but never one made for
// the local user's own message.
type autoScroller struct {
	listID      SurfaceID
	localUserID string
	delays      scrollDelays
	bottom      bottomReader
	active      activeSubscription
	scroll      func(anchor Message)
	tick        tickFunc
	log         zerolog.Logger

	state   autoScrollState
	pending *Message
	anchor  Message
	seq     uint64
	closed  bool
}

func newAutoScroller(listID SurfaceID, localUserID string, delays scrollDelays, bottom bottomReader, scroll func(anchor Message)) *autoScroller {
	return &autoScroller{
		listID:      listID,
		localUserID: localUserID,
		delays:      delays,
		bottom:      bottom,
		scroll:      scroll,
		tick:        tea.Tick,
		log:         componentLogger("autoscroll").With().Str("list", string(listID)).Logger(),
	}
}

// attach binds the active-conversation subscription. Without one every
// conversation counts as visible.
func (a *autoScroller) attach(sub activeSubscription) {
	a.active = sub
}

func (a *autoScroller) isActive(conversationID string) bool {
	if a.active == nil {
		return true
	}
	return a.active.IsActive(conversationID)
}

// State returns the current state.
func (a *autoScroller) State() autoScrollState {
	return a.state
}

// Pending returns the deferred message, if any.
func (a *autoScroller) Pending() (Message, bool) {
	if a.pending == nil {
		return Message{}, false
	}
	return *a.pending, true
}

// NewestDetected handles a new message appended to the window.
func (a *autoScroller) NewestDetected(m Message) tea.Cmd {
	if a.closed {
		return nil
	}
	own := m.IsFrom(a.localUserID)
	if a.isActive(m.ConversationID) && (own || a.bottom.AtBottom()) {
		a.pending = nil
		delay := a.delays.Remote
		if own {
			delay = a.delays.Local
		}
		a.log.Debug().Int64("id", m.ID).Bool("own", own).Dur("delay", delay).Msg("scheduling scroll")
		return a.schedule(delay, m)
	}

	a.pending = &m
	if a.state == stateScrollScheduled && a.anchor.IsFrom(a.localUserID) {
		// The sender's own message still lands; the marker waits behind it.
		a.log.Debug().Int64("id", m.ID).Int64("anchor", a.anchor.ID).Msg("deferring behind own scroll")
		return nil
	}

	// A newer detection supersedes a remote scroll still in flight.
	a.cancel()
	a.state = stateDeferred
	a.log.Debug().Int64("id", m.ID).Msg("deferring scroll")
	return nil
}

// ActiveConversationChanged flushes the pending marker when its conversation
// becomes visible. The marker is cleared either way; if the reader is not at
// the bottom the arrival does not scroll retroactively.
func (a *autoScroller) ActiveConversationChanged(conversationID string) tea.Cmd {
	if a.closed || a.state != stateDeferred || a.pending == nil {
		return nil
	}
	if a.pending.ConversationID != conversationID {
		return nil
	}
	m := *a.pending
	a.pending = nil
	if !a.bottom.AtBottom() {
		a.state = stateIdle
		a.log.Debug().Int64("id", m.ID).Msg("dropping deferred scroll, reader is in history")
		return nil
	}
	a.log.Debug().Int64("id", m.ID).Msg("flushing deferred scroll")
	return a.schedule(a.delays.Activate, m)
}

// Fire runs the scheduled scroll if tick is the outstanding one. Stale ticks
// and ticks arriving after teardown are ignored.
func (a *autoScroller) Fire(tick scrollTickMsg) bool {
	if a.closed || tick.listID != a.listID || tick.seq != a.seq || a.state != stateScrollScheduled {
		return false
	}
	a.state = stateIdle
	// Scrolling to the bottom reveals anything deferred behind the anchor.
	a.pending = nil
	if a.scroll != nil {
		a.scroll(a.anchor)
	}
	return true
}

// Teardown cancels the outstanding tick and detaches from the notifier.
// Calling it again is a no-op.
func (a *autoScroller) Teardown() {
	if a.closed {
		return
	}
	a.cancel()
	a.closed = true
	a.pending = nil
	if a.active != nil {
		a.active.Close()
	}
}

func (a *autoScroller) schedule(d time.Duration, anchor Message) tea.Cmd {
	a.seq++
	a.anchor = anchor
	a.state = stateScrollScheduled
	tick := scrollTickMsg{listID: a.listID, seq: a.seq}
	return a.tick(d, func(time.Time) tea.Msg { return tick })
}

// cancel invalidates any outstanding tick.
func (a *autoScroller) cancel() {
	a.seq++
	if a.state == stateScrollScheduled {
		a.state = stateIdle
	}
}
