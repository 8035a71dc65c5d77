package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search query",
	Short: "Find images whose description or coordinates contain query",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		images, err := a.gallery.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeImages(cmd, images)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}
