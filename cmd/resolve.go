package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
	quillsync "github.com/nathanj/quill/internal/sync"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve <id>",
	Short:   "Resolve a sync conflict",
	Long: `Resolve a conflicted document either by adopting the server copy
(--reload, discards local edits) or by forking the local content into a
new document (--duplicate, leaves the original conflicted).`,
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := store.NormalizeDocumentID(args[0])
		reload, _ := cmd.Flags().GetBool("reload")
		duplicate, _ := cmd.Flags().GetBool("duplicate")
		yes, _ := cmd.Flags().GetBool("yes")
		collection, _ := cmd.Flags().GetString("collection")

		if reload == duplicate {
			output.Error("choose exactly one of --reload or --duplicate")
			return fmt.Errorf("invalid flags")
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		resolver := quillsync.NewResolver(s)

		if reload {
			if !yes {
				var confirmed bool
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Discard local edits of %s and adopt the server copy?", id)).
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					output.Info("Aborted.")
					return nil
				}
			}

			doc, err := resolver.ReloadFromServer(id)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			output.Success("Reloaded %s from server (r%d).", doc.ID, doc.RemoteRevision)
			return nil
		}

		dup, err := resolver.DuplicateLocal(id, collection)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Forked local content into %s (r0). Original %s still conflicted.", dup.ID, id)
		return nil
	},
}

func init() {
	resolveCmd.Flags().Bool("reload", false, "Adopt the server copy, discarding local edits")
	resolveCmd.Flags().Bool("duplicate", false, "Fork local content into a new document")
	resolveCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	resolveCmd.Flags().StringP("collection", "c", "", "Collection for the duplicate")
	rootCmd.AddCommand(resolveCmd)
}
