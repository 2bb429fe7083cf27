package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/config"
	"github.com/nathanj/quill/internal/draft"
	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
	quillsync "github.com/nathanj/quill/internal/sync"
)

var watchCmd = &cobra.Command{
	Use:   "watch <id> <file>",
	Short: "Watch a file and save its edits as drafts",
	Long: `Watch a markdown file and funnel every (debounced) change into the
document as a draft plus a queued sync. Runs the background sync scheduler
until interrupted. This is the editor-facing ingestion loop: point your
editor at the file and quill keeps the document in sync.`,
	GroupID: "sync",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := store.NormalizeDocumentID(args[0])
		path, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}

		if err := config.SetupFileLogging(slog.LevelInfo); err != nil {
			output.Warning("file logging unavailable: %v", err)
		}

		cfg, err := config.Load()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		engine, client, err := buildEngine(s)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		sched := quillsync.NewScheduler(engine, cfg.SyncInterval())
		sched.OnResults = func(results []models.SyncResult) {
			for _, r := range results {
				slog.Info("watch: sync outcome", "doc", r.DocumentID, "outcome", r.Outcome)
				if r.Outcome == models.OutcomeConflict {
					output.Warning("conflict on %s; run 'quill resolve %s'", r.DocumentID, r.DocumentID)
				}
			}
		}
		sched.Start()
		defer sched.Stop()

		// Probe connectivity so the offline→online edge triggers a drain.
		probeStop := make(chan struct{})
		defer close(probeStop)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					sched.SetOnline(client.Health() == nil)
				case <-probeStop:
					return
				}
			}
		}()

		// Editors replace files on save, so watch the directory and filter.
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
		}

		mgr := draft.NewManager(s)
		queue := outbox.NewQueue(s)
		debounce := cfg.WatchDebounce()
		var timer *time.Timer
		fire := make(chan struct{}, 1)

		ingest := func() {
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("watch: read file", "path", path, "err", err)
				return
			}
			content := string(data)
			if _, err := mgr.SaveDraft(id, draft.Patch{Content: &content}); err != nil {
				output.Error("save draft: %v", err)
				return
			}
			if _, err := queue.Enqueue(id); err != nil {
				output.Error("enqueue: %v", err)
				return
			}
			slog.Debug("watch: draft saved", "doc", id, "bytes", len(data))
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		output.Info("Watching %s -> %s (Ctrl-C to stop)", path, id)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				ingest()
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				slog.Warn("watch: watcher error", "err", err)
			case <-sigs:
				output.Info("Stopping.")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
