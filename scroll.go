package main

import (
	"github.com/charmbracelet/bubbles/viewport"
)

// SurfaceID identifies a scrollable region of the screen.
type SurfaceID string

// sidebarSurface is the conversation list; its wheel events must never move
// a message list's snapshot.
const sidebarSurface SurfaceID = "sidebar"

// ScrollGeometry is the raw geometry of a surface, in terminal rows.
type ScrollGeometry struct {
	ScrollHeight int
	ScrollTop    int
	ClientHeight int
}

// ScrollNotification is emitted whenever a surface scrolls or is resized.
type ScrollNotification struct {
	Origin   SurfaceID
	Geometry ScrollGeometry
}

// ScrollSnapshot is the classified geometry of the last accepted notification.
type ScrollSnapshot struct {
	ScrollHeight int
	ScrollTop    int
	ClientHeight int
	IsAtTop      bool
	IsAtBottom   bool
}

func classify(g ScrollGeometry) ScrollSnapshot {
	return ScrollSnapshot{
		ScrollHeight: g.ScrollHeight,
		ScrollTop:    g.ScrollTop,
		ClientHeight: g.ClientHeight,
		IsAtTop:      g.ScrollTop == 0,
		IsAtBottom:   g.ScrollHeight-g.ScrollTop == g.ClientHeight,
	}
}

// scrollTracker keeps the single live snapshot of one surface.
type scrollTracker struct {
	surface  SurfaceID
	snap     ScrollSnapshot
	recorded bool
}

func newScrollTracker(surface SurfaceID) *scrollTracker {
	return &scrollTracker{surface: surface}
}

// Observe records n if it originated from the tracked surface. Notifications
// from any other surface leave the snapshot untouched and report false.
func (t *scrollTracker) Observe(n ScrollNotification) (ScrollSnapshot, bool) {
	if n.Origin != t.surface {
		return t.snap, false
	}
	t.snap = classify(n.Geometry)
	t.recorded = true
	return t.snap, true
}

// AtBottom reports the last classification. A surface that has never
// scrolled is assumed to be at the bottom.
func (t *scrollTracker) AtBottom() bool {
	if !t.recorded {
		return true
	}
	return t.snap.IsAtBottom
}

// Snapshot returns the live snapshot and whether one was ever recorded.
func (t *scrollTracker) Snapshot() (ScrollSnapshot, bool) {
	return t.snap, t.recorded
}

// viewportGeometry reads the geometry of a bubbles viewport. Content shorter
// than the viewport still fills it, the same way a DOM element never reports
// a scrollHeight below its clientHeight.
func viewportGeometry(vp viewport.Model) ScrollGeometry {
	total := vp.TotalLineCount()
	if total < vp.Height {
		total = vp.Height
	}
	return ScrollGeometry{
		ScrollHeight: total,
		ScrollTop:    vp.YOffset,
		ClientHeight: vp.Height,
	}
}
