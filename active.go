package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ConversationHandler receives the id of the conversation that just became
// active and returns any follow-up work.
type ConversationHandler func(conversationID string) tea.Cmd

// SubscriptionToken identifies a registered ConversationHandler.
type SubscriptionToken uint64

// ActiveConversationNotifier broadcasts which conversation is on screen.
type ActiveConversationNotifier interface {
	Subscribe(h ConversationHandler) SubscriptionToken
	Unsubscribe(tok SubscriptionToken)
	IsActive(conversationID string) bool
}

type handlerEntry struct {
	token   SubscriptionToken
	handler ConversationHandler
}

// activeConversations is the application's notifier. The sidebar selection
// publishes to it.
type activeConversations struct {
	active   string
	next     SubscriptionToken
	handlers []handlerEntry
}

func newActiveConversations() *activeConversations {
	return &activeConversations{}
}

func (a *activeConversations) Subscribe(h ConversationHandler) SubscriptionToken {
	a.next++
	a.handlers = append(a.handlers, handlerEntry{token: a.next, handler: h})
	return a.next
}

func (a *activeConversations) Unsubscribe(tok SubscriptionToken) {
	for i, e := range a.handlers {
		if e.token == tok {
			a.handlers = append(a.handlers[:i:i], a.handlers[i+1:]...)
			return
		}
	}
}

func (a *activeConversations) IsActive(conversationID string) bool {
	return conversationID != "" && conversationID == a.active
}

// Active returns the id of the active conversation.
func (a *activeConversations) Active() string {
	return a.active
}

// Publish makes conversationID active and notifies every subscriber in
// subscription order. Publishing the already active conversation is a no-op.
func (a *activeConversations) Publish(conversationID string) tea.Cmd {
	if conversationID == a.active {
		return nil
	}
	a.active = conversationID
	// Handlers may unsubscribe while we iterate.
	entries := append([]handlerEntry(nil), a.handlers...)
	var cmds []tea.Cmd
	for _, e := range entries {
		if cmd := e.handler(conversationID); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// conversationSubscription forwards activations of one conversation to a
// message list's scroller.
type conversationSubscription struct {
	notifier       ActiveConversationNotifier
	conversationID string
	token          SubscriptionToken
	attached       bool
}

func subscribeConversation(n ActiveConversationNotifier, conversationID string, onActive ConversationHandler) *conversationSubscription {
	s := &conversationSubscription{
		notifier:       n,
		conversationID: conversationID,
	}
	s.token = n.Subscribe(func(id string) tea.Cmd {
		if id != s.conversationID {
			return nil
		}
		return onActive(id)
	})
	s.attached = true
	return s
}

func (s *conversationSubscription) IsActive(conversationID string) bool {
	return s.notifier.IsActive(conversationID)
}

// Close detaches the handler. Only the first call unsubscribes.
func (s *conversationSubscription) Close() {
	if !s.attached {
		return
	}
	s.attached = false
	s.notifier.Unsubscribe(s.token)
}
