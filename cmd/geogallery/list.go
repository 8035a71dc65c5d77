package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/domain"
)

type imageJSON struct {
	ID          int64     `json:"id"`
	URI         string    `json:"uri"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

func writeImages(cmd *cobra.Command, images []*domain.ImageRecord) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return printImages(cmd.OutOrStdout(), images)
	}
	return encodeImages(cmd.OutOrStdout(), images)
}

func encodeImages(w io.Writer, images []*domain.ImageRecord) error {
	ret := make([]imageJSON, 0, len(images))
	for _, img := range images {
		ret = append(ret, imageJSON{
			ID:          img.ID,
			URI:         img.URI,
			Latitude:    img.Latitude,
			Longitude:   img.Longitude,
			Timestamp:   img.Timestamp,
			Description: img.Description,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every image, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		located, _ := cmd.Flags().GetBool("located")
		var images []*domain.ImageRecord
		if located {
			images, err = a.repo.ListWithCoordinates(cmd.Context())
		} else {
			images, err = a.gallery.Images(cmd.Context())
		}
		if err != nil {
			return err
		}
		return writeImages(cmd, images)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	listCmd.Flags().Bool("located", false, "Only images with coordinates")
}
