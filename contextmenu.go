package main

import (
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Position is a screen cell.
type Position struct {
	X, Y int
}

// MenuSpec describes the link context menu to show.
type MenuSpec struct {
	Link string
	Text string
}

// UIShell presents menus on behalf of a message list.
type UIShell interface {
	ShowContextMenu(pos Position, spec MenuSpec) tea.Cmd
}

// linkSpan is a hyperlink found in a message body.
type linkSpan struct {
	Href  string
	Label string
	Title string
}

var linkParser = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// extractLinks returns the links in a markdown message body, in order.
// Bare URLs count as links whose label is the URL itself.
func extractLinks(markdown string) []linkSpan {
	if !strings.Contains(markdown, ":") {
		return nil
	}
	src := []byte(markdown)
	doc := linkParser.Parser().Parse(text.NewReader(src))

	var links []linkSpan
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Link:
			links = append(links, linkSpan{
				Href:  string(n.Destination),
				Label: strings.TrimSpace(nodeText(n, src)),
				Title: string(n.Title),
			})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if n.AutoLinkType != ast.AutoLinkURL {
				return ast.WalkSkipChildren, nil
			}
			href := string(n.URL(src))
			links = append(links, linkSpan{Href: href, Label: string(n.Label(src))})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return links
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		default:
			b.WriteString(nodeText(c, src))
		}
	}
	return b.String()
}

// isWebURL reports whether s is an absolute http(s) URL with a host.
func isWebURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// linkAt returns the link whose visible text covers column x of line.
// line may contain ANSI styling; columns are terminal cells.
func linkAt(line string, x int, links []linkSpan) (linkSpan, bool) {
	plain := ansi.Strip(line)
	for _, l := range links {
		for _, needle := range []string{l.Href, l.Label} {
			if needle == "" {
				continue
			}
			if spanCovers(plain, needle, x) {
				return l, true
			}
		}
	}
	return linkSpan{}, false
}

func spanCovers(plain, needle string, x int) bool {
	offset := 0
	for {
		i := strings.Index(plain[offset:], needle)
		if i < 0 {
			return false
		}
		start := ansi.StringWidth(plain[:offset+i])
		end := start + ansi.StringWidth(needle)
		if x >= start && x < end {
			return true
		}
		offset += i + len(needle)
	}
}

// pointerEvent is a secondary click resolved against rendered content.
type pointerEvent struct {
	Pos   Position // screen position, passed through to the shell
	Col   int      // column within Line
	Line  string
	Links []linkSpan
}

// contextMenuActivator turns secondary clicks on links into shell menus.
type contextMenuActivator struct {
	shell     UIShell
	selection func() string
}

// Activate shows the link menu when ev targets a web link and reports
// whether the event was consumed. Any other click is left to the caller.
func (c *contextMenuActivator) Activate(ev pointerEvent) (tea.Cmd, bool) {
	if c == nil || c.shell == nil {
		return nil, false
	}
	link, ok := linkAt(ev.Line, ev.Col, ev.Links)
	if !ok || !isWebURL(link.Href) {
		return nil, false
	}

	var label string
	if c.selection != nil {
		label = strings.TrimSpace(c.selection())
	}
	if label == "" {
		label = link.Label
	}
	if label == "" {
		label = link.Title
	}
	return c.shell.ShowContextMenu(ev.Pos, MenuSpec{Link: link.Href, Text: label}), true
}
