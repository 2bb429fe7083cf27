package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nathanj/quill/internal/output"
	"github.com/nathanj/quill/internal/store"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local document store in the current directory",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Initialize(getBaseDir())
		if err != nil {
			output.Error("initialize store: %v", err)
			return err
		}
		defer s.Close()

		output.Success("Initialized quill store in .quill/")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
