package main

import (
	"time"
)

// Message is a single chat message within one conversation.
// IDs are assigned monotonically per conversation by the feed.
type Message struct {
	ID             int64
	Date           time.Time
	SenderID       string
	SenderName     string
	ConversationID string
	Content        string
}

// IsFrom reports whether the message was authored by userID.
func (m Message) IsFrom(userID string) bool {
	return userID != "" && m.SenderID == userID
}

// sameAs reports whether o is a redelivery of m. Two writers picking the same
// id for different messages are told apart by sender.
func (m Message) sameAs(o Message) bool {
	return m.ID == o.ID && m.SenderID == o.SenderID
}

// before orders messages by date, then by id.
func (m Message) before(o Message) bool {
	if !m.Date.Equal(o.Date) {
		return m.Date.Before(o.Date)
	}
	return m.ID < o.ID
}

// insertMessage places msg into msgs keeping (Date, ID) order, drops it if the
// same message (ID and sender) is already present, and trims the oldest
// entries beyond maxMessages. The input slice is never modified in place so
// callers can keep the previous window for diffing.
func insertMessage(msgs []Message, msg Message, maxMessages int) []Message {
	for _, existing := range msgs {
		if existing.sameAs(msg) {
			return msgs
		}
	}

	// Scan from the end: new messages almost always belong there.
	idx := len(msgs)
	for idx > 0 && msg.before(msgs[idx-1]) {
		idx--
	}

	out := make([]Message, 0, len(msgs)+1)
	out = append(out, msgs[:idx]...)
	out = append(out, msg)
	out = append(out, msgs[idx:]...)

	if maxMessages > 0 && len(out) > maxMessages {
		out = out[len(out)-maxMessages:]
	}
	return out
}

// nextMessageID returns the id to assign to the next message appended to msgs.
func nextMessageID(msgs []Message) int64 {
	var max int64
	for _, m := range msgs {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}
