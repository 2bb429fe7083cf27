package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nathanj/quill/internal/draft"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
)

var saveCmd = &cobra.Command{
	Use:     "save <id>",
	Short:   "Save a draft of a document",
	Long: `Save a draft: merge the given fields onto the stored document and mark
it dirty. Content comes from --content, --file, or stdin. By default the
document is queued for sync; --no-sync saves the draft only.`,
	GroupID: "docs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := store.NormalizeDocumentID(args[0])

		patch, err := patchFromFlags(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		doc, err := draft.NewManager(s).SaveDraft(id, patch)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		noSync, _ := cmd.Flags().GetBool("no-sync")
		if !noSync {
			if _, err := outbox.NewQueue(s).Enqueue(doc.ID); err != nil {
				output.Error("%v", err)
				return err
			}
		}

		if doc.Conflict {
			output.Warning("%s has an unresolved conflict; run 'quill resolve %s'", doc.ID, doc.ID)
		}
		output.Success("Saved draft of %s", doc.ID)
		return nil
	},
}

// patchFromFlags builds the draft patch from the flags the caller actually
// set, so an omitted flag leaves the stored value untouched.
func patchFromFlags(cmd *cobra.Command) (draft.Patch, error) {
	var patch draft.Patch
	var readErr error

	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "title":
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		case "content":
			v, _ := cmd.Flags().GetString("content")
			patch.Content = &v
		case "file":
			path, _ := cmd.Flags().GetString("file")
			data, err := os.ReadFile(path)
			if err != nil {
				readErr = fmt.Errorf("read %s: %w", path, err)
				return
			}
			v := string(data)
			patch.Content = &v
		case "collection":
			v, _ := cmd.Flags().GetString("collection")
			patch.CollectionID = &v
		case "position":
			v, _ := cmd.Flags().GetInt("position")
			patch.Position = &v
		}
	})
	if readErr != nil {
		return draft.Patch{}, readErr
	}

	// Piped stdin is content unless --content/--file won already
	if patch.Content == nil {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return draft.Patch{}, fmt.Errorf("read stdin: %w", err)
			}
			if len(data) > 0 {
				v := string(data)
				patch.Content = &v
			}
		}
	}

	return patch, nil
}

func init() {
	saveCmd.Flags().StringP("title", "t", "", "New title")
	saveCmd.Flags().String("content", "", "New content")
	saveCmd.Flags().StringP("file", "f", "", "Read content from file")
	saveCmd.Flags().StringP("collection", "c", "", "Move to collection")
	saveCmd.Flags().Int("position", 0, "Ordering index within the collection")
	saveCmd.Flags().Bool("no-sync", false, "Save the draft without queueing a sync")
	rootCmd.AddCommand(saveCmd)
}
