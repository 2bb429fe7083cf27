package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List documents",
	GroupID: "docs",
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, _ := cmd.Flags().GetString("collection")
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		docs, err := s.ListDocuments()
		if err != nil {
			output.Error("list documents: %v", err)
			return err
		}

		if collection != "" {
			filtered := docs[:0]
			for _, d := range docs {
				if d.CollectionID == collection {
					filtered = append(filtered, d)
				}
			}
			docs = filtered
		}

		// Store order is meaningless; sort by collection, position, title
		sort.Slice(docs, func(i, j int) bool {
			if docs[i].CollectionID != docs[j].CollectionID {
				return docs[i].CollectionID < docs[j].CollectionID
			}
			if docs[i].Position != docs[j].Position {
				return docs[i].Position < docs[j].Position
			}
			return docs[i].Title < docs[j].Title
		})

		if asJSON {
			return output.JSON(docs)
		}

		if len(docs) == 0 {
			output.Info("No documents. Create one with 'quill new <title>'.")
			return nil
		}
		for _, d := range docs {
			title := d.Title
			if title == "" {
				title = output.Subtle("(untitled)")
			}
			fmt.Printf("%s  r%-4d %-8s  %s\n",
				d.ID, d.RemoteRevision, output.SyncBadge(d.Dirty, d.Conflict), title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("collection", "c", "", "Only documents in this collection")
	listCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
