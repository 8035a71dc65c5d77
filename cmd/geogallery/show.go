package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show id",
	Short: "Show one image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		img, err := a.gallery.Preview(cmd.Context(), id)
		if err != nil {
			return err
		}
		if img == nil {
			return fmt.Errorf("image %d not found", id)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:          %d\n", img.ID)
		fmt.Fprintf(out, "URI:         %s\n", img.URI)
		fmt.Fprintf(out, "Timestamp:   %s\n", img.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Latitude:    %s\n", formatCoordinate(img.Latitude))
		fmt.Fprintf(out, "Longitude:   %s\n", formatCoordinate(img.Longitude))
		fmt.Fprintf(out, "Description: %s\n", img.Description)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
