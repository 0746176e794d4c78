package main

// detectNewest reports the last message of cur when it is a genuinely new
// arrival relative to prev. A last message that is identical to the previous
// one, or that is not newer by date or id, is treated as no change so that
// reordering and duplicate delivery never trigger a scroll.
func detectNewest(prev, cur []Message) (Message, bool) {
	curLast, ok := lastOf(cur)
	if !ok {
		return Message{}, false
	}
	prevLast, ok := lastOf(prev)
	if !ok {
		return curLast, true
	}
	if curLast.ID == prevLast.ID {
		return Message{}, false
	}
	if curLast.Date.After(prevLast.Date) || curLast.ID > prevLast.ID {
		return curLast, true
	}
	return Message{}, false
}

// detectOldest reports the previous first message when cur starts with a
// strictly older message, meaning history was prepended.
func detectOldest(prev, cur []Message) (Message, bool) {
	curFirst, ok := firstOf(cur)
	if !ok {
		return Message{}, false
	}
	prevFirst, ok := firstOf(prev)
	if !ok {
		return Message{}, false
	}
	if curFirst.Date.Before(prevFirst.Date) || curFirst.ID < prevFirst.ID {
		return prevFirst, true
	}
	return Message{}, false
}

func firstOf(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[0], true
}

func lastOf(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// windowChange is the result of diffing one window update.
type windowChange struct {
	Newest    Message
	HasNewest bool
	// Oldest is the message that used to be first, when older history was
	// prepended in front of it.
	Oldest    Message
	HasOldest bool
}

// windowDiffer remembers the edges of the last window it saw.
type windowDiffer struct {
	edges []Message
}

// Diff compares cur against the previously seen window and remembers cur.
func (d *windowDiffer) Diff(cur []Message) windowChange {
	var c windowChange
	c.Newest, c.HasNewest = detectNewest(d.edges, cur)
	c.Oldest, c.HasOldest = detectOldest(d.edges, cur)
	d.edges = windowEdges(cur)
	return c
}

// Reset forgets the remembered window.
func (d *windowDiffer) Reset() {
	d.edges = nil
}

// windowEdges copies the first and last message, which is all the detectors read.
func windowEdges(msgs []Message) []Message {
	switch len(msgs) {
	case 0:
		return nil
	case 1:
		return []Message{msgs[0]}
	default:
		return []Message{msgs[0], msgs[len(msgs)-1]}
	}
}
