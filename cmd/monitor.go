package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/config"
	"github.com/nathanj/quill/internal/output"
	quillsync "github.com/nathanj/quill/internal/sync"
	"github.com/nathanj/quill/internal/tui/monitor"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Short:   "Live sync dashboard",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetDuration("refresh")

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
		model := monitor.NewModel(s, engine, sched, client.Health, refresh)
		p := tea.NewProgram(model, tea.WithAltScreen())
		sched.OnResults = monitor.Forward(p)

		sched.Start()
		defer sched.Stop()

		_, err = p.Run()
		return err
	},
}

func init() {
	monitorCmd.Flags().Duration("refresh", 2*time.Second, "Dashboard refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
