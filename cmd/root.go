package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/config"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/remote"
	"github.com/nathanj/quill/internal/store"
	quillsync "github.com/nathanj/quill/internal/sync"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Offline-first document drafting with background sync",
	Long: `quill - edit documents offline and reconcile with the server when
connectivity returns. Local edits are drafts in a durable store; a queued
outbox pushes them with revision-based conflict detection.`,
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "docs", Title: "Document Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir() {
	var err error
	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

// getBaseDir returns the base directory for the project
func getBaseDir() string {
	return baseDir
}

// openStore opens the local store in the working directory.
func openStore() (*store.Store, error) {
	return store.Open(getBaseDir())
}

// buildEngine wires the store, outbox and remote client into a sync engine
// from the global config.
func buildEngine(s *store.Store) (*quillsync.Engine, *remote.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	client := remote.New(cfg.ServerURL(), cfg.Sync.APIKey)
	engine := quillsync.NewEngine(s, outbox.NewQueue(s), client)
	engine.SnapshotEvery = cfg.SnapshotEvery()
	return engine, client, nil
}
