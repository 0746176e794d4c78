package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// feedMessagesMsg carries messages appended to a conversation's feed file.
type feedMessagesMsg struct {
	conversationID string
	messages       []Message
}

// conversationAddedMsg reports a new feed file.
type conversationAddedMsg struct {
	conversationID string
}

type feedErrMsg struct{ err error }

func (e feedErrMsg) Error() string { return e.err.Error() }

// feedClosedMsg is delivered once the watcher has shut down.
type feedClosedMsg struct{}

// feedWatcher tails every feed file in a directory.
type feedWatcher struct {
	dir     string
	w       *fsnotify.Watcher
	events  chan tea.Msg
	done    chan struct{}
	once    sync.Once
	log     zerolog.Logger
	offsets map[string]int64 // conversation -> bytes consumed
	partial map[string][]byte
}

// startFeedWatcher watches dir. offsets holds the byte position history was
// loaded up to for each known conversation.
func startFeedWatcher(dir string, offsets map[string]int64) (*feedWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("feed: create dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("feed: watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("feed: watch %s: %w", dir, err)
	}

	fw := &feedWatcher{
		dir:     dir,
		w:       w,
		events:  make(chan tea.Msg, 64),
		done:    make(chan struct{}),
		log:     componentLogger("feed"),
		offsets: make(map[string]int64, len(offsets)),
		partial: make(map[string][]byte),
	}
	for id, off := range offsets {
		fw.offsets[id] = off
	}
	go fw.run()
	return fw, nil
}

func (fw *feedWatcher) run() {
	defer close(fw.events)
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			fw.handle(ev)
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.log.Warn().Err(err).Msg("watcher error")
			fw.send(feedErrMsg{fmt.Errorf("feed watcher: %w", err)})
		}
	}
}

func (fw *feedWatcher) handle(ev fsnotify.Event) {
	id, ok := conversationFromPath(ev.Name)
	if !ok || filepath.Clean(filepath.Dir(ev.Name)) != filepath.Clean(fw.dir) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if _, known := fw.offsets[id]; !known {
		fw.offsets[id] = 0
		fw.log.Info().Str("conversation", id).Msg("new conversation")
		fw.send(conversationAddedMsg{conversationID: id})
	}

	msgs, err := fw.readNew(id, ev.Name)
	if err != nil {
		fw.log.Warn().Err(err).Str("conversation", id).Msg("tail failed")
		fw.send(feedErrMsg{err})
		return
	}
	if len(msgs) > 0 {
		fw.send(feedMessagesMsg{conversationID: id, messages: msgs})
	}
}

// readNew reads the complete lines appended since the last read.
func (fw *feedWatcher) readNew(id, path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	defer f.Close()

	off := fw.offsets[id]
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("feed: stat %s: %w", path, err)
	}
	if stat.Size() < off {
		// Truncated: start over.
		off = 0
		fw.partial[id] = nil
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("feed: seek %s: %w", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", path, err)
	}
	fw.offsets[id] = off + int64(len(data))

	data = append(fw.partial[id], data...)
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		fw.partial[id] = data
		return nil, nil
	}
	fw.partial[id] = append([]byte(nil), data[cut+1:]...)

	var msgs []Message
	for _, line := range bytes.Split(data[:cut], []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		msg, err := parseFeedLine(id, string(line))
		if err != nil {
			fw.log.Warn().Err(err).Str("conversation", id).Msg("skipping malformed feed line")
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (fw *feedWatcher) send(msg tea.Msg) {
	select {
	case fw.events <- msg:
	case <-fw.done:
	}
}

// Close stops the watcher. It is safe to call more than once.
func (fw *feedWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.w.Close()
	})
	return err
}

// waitForFeedEvent blocks on the watcher and returns its next message.
func waitForFeedEvent(fw *feedWatcher) tea.Cmd {
	if fw == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-fw.events
		if !ok {
			return feedClosedMsg{}
		}
		return msg
	}
}
