package main

import (
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// selectionStyle applies reverse video for selection highlighting.
var selectionStyle = lipgloss.NewStyle().Reverse(true)

// selectionRange returns the selection in list-local coordinates, ordered
// so that the start comes first.
func (m *model) selectionRange() (sx, sy, ex, ey int) {
	ox, oy := m.listOrigin()
	sx, sy = m.selectFrom[0]-ox, m.selectFrom[1]-oy
	ex, ey = m.selectTo[0]-ox, m.selectTo[1]-oy
	if sy > ey || (sy == ey && sx > ex) {
		sx, sy, ex, ey = ex, ey, sx, sy
	}
	return sx, sy, ex, ey
}

// selectedColumns returns the [from, to) columns of row y covered by the
// selection, on a line with lineLen cells.
func selectedColumns(y, sx, sy, ex, ey, lineLen int) (int, int) {
	switch {
	case sy == ey:
		return clampCol(sx, lineLen), clampCol(ex, lineLen)
	case y == sy:
		return clampCol(sx, lineLen), lineLen
	case y == ey:
		return 0, clampCol(ex, lineLen)
	default:
		return 0, lineLen
	}
}

// applySelectionHighlight overlays reverse-video on the selected region
// of the list output.
func (m *model) applySelectionHighlight(vp string) string {
	if !m.selecting && !m.hasSelection {
		return vp
	}
	vpLines := strings.Split(vp, "\n")
	sx, sy, ex, ey := m.selectionRange()

	for y := range vpLines {
		if y < sy || y > ey {
			continue
		}
		plain := []rune(ansi.Strip(vpLines[y]))
		from, to := selectedColumns(y, sx, sy, ex, ey, len(plain))
		if from >= to {
			continue
		}
		// Rebuild from plain text to avoid ANSI nesting issues.
		vpLines[y] = string(plain[:from]) + selectionStyle.Render(string(plain[from:to])) + string(plain[to:])
	}
	return strings.Join(vpLines, "\n")
}

// extractSelectedText returns the plain text between the selection start
// and end.
func (m *model) extractSelectedText() string {
	l := m.activeList()
	if l == nil {
		return ""
	}
	vpLines := l.VisibleLines()
	sx, sy, ex, ey := m.selectionRange()

	if sy < 0 {
		sy, sx = 0, 0
	}
	if ey >= len(vpLines) {
		ey = len(vpLines) - 1
	}
	if sy > ey {
		return ""
	}

	var selected []string
	for y := sy; y <= ey; y++ {
		line := []rune(ansi.Strip(vpLines[y]))
		from, to := selectedColumns(y, sx, sy, ex, ey, len(line))
		if from < to {
			selected = append(selected, strings.TrimRight(string(line[from:to]), " "))
		}
	}
	return strings.Join(selected, "\n")
}

// currentSelection is the text of the finished selection, if any.
func (m *model) currentSelection() string {
	if !m.hasSelection {
		return ""
	}
	return m.selectedText
}

func (m *model) clearSelection() {
	m.selecting = false
	m.hasSelection = false
	m.selectedText = ""
}

func clampCol(x, lineLen int) int {
	if x < 0 {
		return 0
	}
	if x > lineLen {
		return lineLen
	}
	return x
}

// copyToClipboard copies text to the system clipboard, falling back to an
// OSC 52 escape sequence when no clipboard tool is available.
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		if err == nil {
			logger.Debug().Int("bytes", len(text)).Msg("clipboard: copied")
			return clipboardCopiedMsg{bytes: len(text)}
		}
		logger.Debug().Err(err).Msg("clipboard: falling back to OSC 52")

		if _, err := osc52.New(text).WriteTo(os.Stdout); err != nil {
			logger.Warn().Err(err).Msg("clipboard: OSC 52 failed")
		}
		return clipboardCopiedMsg{bytes: len(text)}
	}
}

type clipboardCopiedMsg struct{ bytes int }
