package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/capture"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import image-file...",
	Short: "Import image files without a location of their own",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		failed := 0
		for _, path := range args {
			if !capture.IsImageFile(path) {
				log.Warn().Str("file", path).Msg("skipping file without an image extension")
				continue
			}
			img, err := a.gallery.Import(cmd.Context(), path)
			if err != nil {
				log.Error().Err(err).Str("file", path).Msg("import failed")
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", img.ID, path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to import", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
