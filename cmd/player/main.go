// Package main provides the local player entry point: an interactive
// console driving the playback engine against the system speaker.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/infra/logger"
	"github.com/tkodaira/melodeon/internal/infra/store"
	"github.com/tkodaira/melodeon/internal/player"
)

var (
	app       = kingpin.New("melodeon-player", "melodeon local player console")
	dbPath    = app.Flag("db", "Path to the catalog database").Default("melodeon.db").String()
	statePath = app.Flag("state", "Path to the playback snapshot file").Default("melodeon-state.json").String()
	verbose   = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Output: "stderr", Level: level}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if err := run(); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	db, err := store.Open(*dbPath, 1)
	if err != nil {
		return err
	}
	defer db.Close()

	library, err := db.ListSongs(context.Background())
	if err != nil {
		return err
	}

	adapter := player.NewAdapter(*statePath)
	ctrl := player.NewController(player.NewStore(), player.NewBeepDriver(), adapter)
	defer ctrl.Close()
	ctrl.RestoreSnapshot(adapter.Load())

	go printEvents(ctrl.Events())

	fmt.Printf("melodeon player: %d songs in library. Type 'help' for commands.\n", len(library))
	repl(ctrl, library)
	return nil
}

func printEvents(events <-chan player.Event) {
	for e := range events {
		if e.Type == player.EventTrackChanged && e.Track != nil {
			fmt.Printf("\n>> %s - %s\n", e.Track.Artist, e.Track.Title)
		}
		if e.Type == player.EventStopped {
			fmt.Println("\n>> playback stopped")
		}
	}
}

func repl(ctrl *player.Controller, library []track.Track) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			printHelp()
		case "list":
			for i, t := range library {
				fmt.Printf("%3d  %s - %s\n", i, t.Artist, t.Title)
			}
		case "queue":
			printQueue(ctrl.State())
		case "status":
			printStatus(ctrl.State())
		case "play":
			if i, ok := argIndex(args, len(library)); ok {
				ctrl.PlayListFrom(library, i)
			} else {
				ctrl.TogglePlay()
			}
		case "add":
			if i, ok := argIndex(args, len(library)); ok {
				ctrl.Enqueue([]track.Track{library[i]}, true)
			}
		case "next":
			ctrl.Next()
		case "prev":
			ctrl.Previous()
		case "pause":
			ctrl.TogglePlay()
		case "rm":
			if i, ok := argIndex(args, len(ctrl.State().Queue)); ok {
				ctrl.RemoveAt(i)
			}
		case "move":
			if len(args) == 2 {
				from, err1 := strconv.Atoi(args[0])
				to, err2 := strconv.Atoi(args[1])
				if err1 == nil && err2 == nil {
					ctrl.Reorder(from, to)
				}
			}
		case "shuffle":
			ctrl.ToggleShuffle()
		case "repeat":
			ctrl.CycleRepeatMode()
		case "vol":
			if len(args) == 1 {
				if pct, err := strconv.Atoi(args[0]); err == nil {
					ctrl.SetVolume(float64(pct) / 100)
				}
			}
		case "mute":
			ctrl.SetMuted(!ctrl.State().Muted)
		case "seek":
			if len(args) == 1 {
				if sec, err := strconv.ParseFloat(args[0], 64); err == nil {
					ctrl.SeekTo(sec)
				}
			}
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func argIndex(args []string, length int) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

func printQueue(s player.State) {
	if len(s.Queue) == 0 {
		fmt.Println("queue is empty")
		return
	}
	for i, t := range s.Queue {
		marker := "  "
		if i == s.CurrentIndex {
			marker = "▶ "
		}
		fmt.Printf("%s%3d  %s - %s\n", marker, i, t.Artist, t.Title)
	}
}

func printStatus(s player.State) {
	state := "paused"
	if s.Playing {
		state = "playing"
	}
	cur := "-"
	if t, ok := s.Current(); ok {
		cur = fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}
	fmt.Printf("%s: %s | shuffle=%v repeat=%s vol=%.0f%% muted=%v\n",
		state, cur, s.Shuffle, s.RepeatMode, s.Volume*100, s.Muted)
}

func printHelp() {
	fmt.Println(`commands:
  list               show the library
  play [n]           play the library from index n (no arg: toggle play/pause)
  add n              enqueue library track n
  queue              show the queue
  next / prev        skip forward / back
  pause              toggle play/pause
  rm n               remove queue entry n
  move from to       reorder queue entries
  shuffle            toggle shuffle
  repeat             cycle repeat mode (list / one_once / one_loop)
  vol n              set volume percent (0-100)
  mute               toggle mute
  seek sec           seek within the current track
  status             show player status
  quit               exit`)
}
