package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Feed files hold one conversation each, one message per line:
//
//	date \t id \t sender id \t sender name \t escaped content
const (
	feedExt        = ".log"
	feedTimeLayout = "2006-01-02 15:04:05"
)

// escapeContent escapes newlines and backslashes for single-line storage.
// Backslash is escaped first to avoid double-escaping.
func escapeContent(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// unescapeContent reverses escapeContent.
func unescapeContent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// feedFilePath returns the feed file of a conversation.
func feedFilePath(dir, conversationID string) string {
	safe := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"\t", "_",
		":", "_",
		" ", "_",
	).Replace(conversationID)
	return filepath.Join(dir, safe+feedExt)
}

// conversationFromPath is the inverse of feedFilePath for names it produced.
func conversationFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, feedExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	id := strings.TrimSuffix(base, feedExt)
	return id, id != ""
}

// listConversations returns the conversation ids in dir, sorted.
func listConversations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("feed: list %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := conversationFromPath(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// feedTime returns t at the resolution the feed stores, so a message shown
// before it is written orders the same way it will after a reload.
func feedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// formatFeedLine renders msg as one feed line, including the newline.
func formatFeedLine(msg Message) string {
	ts := msg.Date.UTC().Format(feedTimeLayout)
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s\n", ts, msg.ID, msg.SenderID, msg.SenderName, escapeContent(msg.Content))
}

// appendFeedEntry appends msg to its conversation's feed file.
func appendFeedEntry(dir string, msg Message) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("feed: create dir: %w", err)
	}
	path := feedFilePath(dir, msg.ConversationID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("feed: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatFeedLine(msg)); err != nil {
		return fmt.Errorf("feed: write %s: %w", path, err)
	}
	return nil
}

// loadFeedHistory loads the last maxMessages entries of a conversation and
// returns the file size they were read up to, so tailing can resume there.
func loadFeedHistory(dir, conversationID string, maxMessages int) ([]Message, int64, error) {
	if dir == "" {
		return nil, 0, nil
	}

	path := feedFilePath(dir, conversationID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("feed: open %s: %w", path, err)
	}
	defer f.Close()

	lines, size, err := readLastNLines(f, maxMessages)
	if err != nil {
		return nil, 0, fmt.Errorf("feed: read %s: %w", path, err)
	}

	msgs := make([]Message, 0, len(lines))
	for _, line := range lines {
		msg, err := parseFeedLine(conversationID, line)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("skipping malformed feed line")
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, size, nil
}

// readLastNLines reads the last n complete lines from a file by seeking
// backward. A trailing partial line is left for the tailer and the returned
// offset points at its start.
func readLastNLines(f *os.File, n int) ([]string, int64, error) {
	const chunkSize = 8192

	stat, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := stat.Size()
	if size == 0 {
		return nil, 0, nil
	}

	var buf []byte
	offset := size
	linesFound := 0

	for offset > 0 && linesFound <= n {
		readSize := int64(chunkSize)
		if readSize > offset {
			readSize = offset
		}
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, offset); err != nil && err != io.EOF {
			return nil, 0, err
		}
		buf = append(chunk, buf...)

		for _, b := range chunk {
			if b == '\n' {
				linesFound++
			}
		}
	}

	var complete int64
	if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
		complete = int64(i + 1)
	}
	end := offset + complete

	scanner := bufio.NewScanner(bytes.NewReader(buf[:complete]))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var all []string
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			all = append(all, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, end, nil
}

// parseFeedLine parses one tab-separated feed line.
func parseFeedLine(conversationID, line string) (Message, error) {
	parts := strings.SplitN(line, "\t", 5)
	if len(parts) < 5 {
		return Message{}, fmt.Errorf("expected 5 tab-separated fields, got %d", len(parts))
	}

	ts, err := time.Parse(feedTimeLayout, parts[0])
	if err != nil {
		return Message{}, fmt.Errorf("invalid timestamp %q: %w", parts[0], err)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("invalid id %q: %w", parts[1], err)
	}

	return Message{
		ID:             id,
		Date:           ts,
		SenderID:       parts[2],
		SenderName:     parts[3],
		ConversationID: conversationID,
		Content:        unescapeContent(parts[4]),
	}, nil
}
