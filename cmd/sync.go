package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/output"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push queued drafts to the server",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusOnly, _ := cmd.Flags().GetBool("status")

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

		if statusOnly {
			pending, err := s.CountOperations()
			if err != nil {
				output.Error("count pending: %v", err)
				return err
			}
			fmt.Printf("Pending:   %d operations\n", pending)
			if lastSync, err := s.LastSyncedAt(); err == nil && lastSync != nil {
				fmt.Printf("Last sync: %s\n", lastSync.Local().Format(time.RFC3339))
			}
			if client.Health() == nil {
				fmt.Println("Server:    online")
			} else {
				fmt.Println("Server:    offline")
			}
			return nil
		}

		results, err := engine.Drain()
		if err != nil {
			output.Error("sync: %v", err)
			return err
		}

		if len(results) == 0 {
			pending, _ := s.CountOperations()
			if pending > 0 {
				output.Warning("%d operations still pending (server unreachable?)", pending)
			} else {
				fmt.Println("Nothing to sync.")
			}
			return nil
		}

		var synced, conflicts, dropped int
		for _, r := range results {
			switch r.Outcome {
			case models.OutcomeSynced:
				synced++
				fmt.Printf("  synced   %s (r%d)\n", r.DocumentID, r.NewRevision)
			case models.OutcomeConflict:
				conflicts++
				fmt.Printf("  conflict %s\n", r.DocumentID)
			case models.OutcomeDropped:
				dropped++
				fmt.Printf("  dropped  %s\n", r.DocumentID)
			}
		}

		output.Success("Synced %d, %d conflicts, %d dropped.", synced, conflicts, dropped)
		if conflicts > 0 {
			output.Warning("resolve conflicts with 'quill resolve <id> --reload' or '--duplicate'")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("status", false, "Show sync status only")
	rootCmd.AddCommand(syncCmd)
}
