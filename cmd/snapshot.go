package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot <id>",
	Short:   "Take an immutable snapshot of a document",
	GroupID: "docs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := store.NormalizeDocumentID(args[0])
		label, _ := cmd.Flags().GetString("message")
		list, _ := cmd.Flags().GetBool("list")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if list {
			snaps, err := s.ListSnapshots(id)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if len(snaps) == 0 {
				output.Info("No snapshots for %s.", id)
				return nil
			}
			for _, snap := range snaps {
				label := snap.Label
				if label == "" {
					label = output.Subtle("(no label)")
				}
				fmt.Printf("%s  %s  %s\n", snap.ID,
					snap.CreatedAt.Local().Format("2006-01-02 15:04"), label)
			}
			return nil
		}

		doc, err := s.GetDocument(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		snapID, err := store.NewSnapshotID()
		if err != nil {
			output.Error("generate id: %v", err)
			return err
		}

		now := time.Now().UTC()
		snap := &models.Snapshot{
			ID:         snapID,
			DocumentID: doc.ID,
			Label:      label,
			Title:      doc.Title,
			Content:    doc.Content,
			CreatedAt:  now,
		}
		if err := s.PutSnapshot(snap); err != nil {
			output.Error("%v", err)
			return err
		}

		doc.LastSnapshotAt = &now
		if err := s.PutDocument(doc); err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("Snapshot %s of %s.", snap.ID, doc.ID)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringP("message", "m", "", "Snapshot label")
	snapshotCmd.Flags().Bool("list", false, "List snapshots instead of creating one")
	rootCmd.AddCommand(snapshotCmd)
}
