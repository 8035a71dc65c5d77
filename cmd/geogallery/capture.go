package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/capture"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture image-file",
	Short: "Capture an image file into the gallery",
	Long: `Stores the picture in the media library and records it with the given
coordinates. Without --lat/--lon the configured default location is used; when
there is none the image is stored without a location.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetString("lat")
		lon, _ := cmd.Flags().GetString("lon")
		description, _ := cmd.Flags().GetString("description")

		locator, err := locatorFromFlags(lat, lon)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		img, err := a.gallery.CaptureAndSave(cmd.Context(), capture.FileCamera{Path: args[0]}, locator, description)
		if err != nil {
			return fmt.Errorf("failed to capture '%s': %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", img.ID, img.URI)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("lat", "", "Latitude in decimal degrees")
	captureCmd.Flags().String("lon", "", "Longitude in decimal degrees")
	captureCmd.Flags().StringP("description", "d", "", "Description (default \"Captured Image\")")
}
