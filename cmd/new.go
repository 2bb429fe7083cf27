package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/draft"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
)

var newCmd = &cobra.Command{
	Use:     "new <title>",
	Short:   "Create a new document",
	GroupID: "docs",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		collection, _ := cmd.Flags().GetString("collection")
		noSync, _ := cmd.Flags().GetBool("no-sync")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		id, err := store.NewDocumentID()
		if err != nil {
			output.Error("generate id: %v", err)
			return err
		}

		doc, err := draft.NewManager(s).SaveDraft(id, draft.Patch{
			Title:        &title,
			CollectionID: &collection,
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if !noSync {
			if _, err := outbox.NewQueue(s).Enqueue(doc.ID); err != nil {
				output.Error("%v", err)
				return err
			}
		}

		output.Success("Created %s: %s", doc.ID, doc.Title)
		return nil
	},
}

func init() {
	newCmd.Flags().StringP("collection", "c", "", "Collection to create the document in")
	newCmd.Flags().Bool("no-sync", false, "Do not queue the document for sync")
	rootCmd.AddCommand(newCmd)
}
