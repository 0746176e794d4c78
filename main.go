package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

func main() {
	configFlag := flag.String("config", "", "path to config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging to debug.log")
	feedFlag := flag.String("feed", "", "feed directory (overrides feed_dir)")
	flag.Parse()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		fatalf("config error: %v", err)
	}
	if *feedFlag != "" {
		cfg.FeedDir = *feedFlag
	}

	if *debugFlag {
		f, err := openDebugLog("debug.log")
		if err != nil {
			fatalf("could not open debug log: %v", err)
		}
		defer f.Close()
		level := cfg.LogLevel
		if parseLevel(level) > zerolog.DebugLevel {
			level = "debug"
		}
		initLogging(logConfig{Level: level, Format: cfg.LogFormat, Output: f})
		logger.Info().Msg("debug logging enabled")
	} else {
		initLogging(logConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}

	listOpts, err := cfg.ListOptions()
	if err != nil {
		fatalf("config error: %v", err)
	}
	logger.Info().Str("feed", cfg.FeedDir).Str("user", cfg.UserID).Bool("stay_bottom", listOpts.StayBottom).Msg("config loaded")

	ids, err := listConversations(cfg.FeedDir)
	if err != nil {
		fatalf("feed error: %v", err)
	}
	histories := make(map[string][]Message, len(ids))
	offsets := make(map[string]int64, len(ids))
	for _, id := range ids {
		msgs, off, err := loadFeedHistory(cfg.FeedDir, id, cfg.MaxMessages)
		if err != nil {
			fatalf("feed error: %v", err)
		}
		histories[id] = msgs
		offsets[id] = off
	}
	logger.Info().Int("conversations", len(ids)).Msg("feed loaded")

	watcher, err := startFeedWatcher(cfg.FeedDir, offsets)
	if err != nil {
		fatalf("feed error: %v", err)
	}

	// Create the markdown renderer before the TUI starts so the terminal
	// background-color query (OSC 11) completes while stdio is still normal.
	renderer := glamourItemRenderer{md: newMarkdownRenderer(detectGlamourStyle())}

	m := newModel(cfg, *configFlag, listOpts, renderer, histories, ids, watcher)

	logger.Info().Msg("starting TUI")
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	m.shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
