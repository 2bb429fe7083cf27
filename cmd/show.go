package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a document, rendered as markdown",
	GroupID: "docs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := store.NormalizeDocumentID(args[0])
		asJSON, _ := cmd.Flags().GetBool("json")
		raw, _ := cmd.Flags().GetBool("raw")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		doc, err := s.GetDocument(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON {
			return output.JSON(doc)
		}

		fmt.Printf("%s  %s  r%d  %s\n\n",
			doc.ID, output.Title(doc.Title), doc.RemoteRevision,
			output.SyncBadge(doc.Dirty, doc.Conflict))

		if raw {
			fmt.Println(doc.Content)
		} else {
			rendered, err := output.RenderMarkdown(doc.Content)
			if err != nil {
				fmt.Println(doc.Content)
			} else {
				fmt.Print(rendered)
			}
		}

		if doc.Conflict && doc.ServerCopy != nil {
			output.Warning("conflicting server copy at revision %d: %q", doc.ServerCopy.Revision, doc.ServerCopy.Title)
			output.Info("resolve with 'quill resolve %s --reload' or '--duplicate'", doc.ID)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Output as JSON")
	showCmd.Flags().Bool("raw", false, "Print content without markdown rendering")
	rootCmd.AddCommand(showCmd)
}
