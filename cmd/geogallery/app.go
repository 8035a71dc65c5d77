package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/lewtec/geogallery/internal/apperr"
	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/config"
	"github.com/lewtec/geogallery/internal/database"
	"github.com/lewtec/geogallery/internal/domain"
	"github.com/lewtec/geogallery/internal/gallery"
	"github.com/lewtec/geogallery/internal/repository"
)

// app wires the store, media library and capture service from the config
type app struct {
	db      *sql.DB
	repo    *repository.ImageRepository
	media   *capture.MediaLibrary
	capture *capture.Service
	gallery *gallery.Gallery
	maps    *gallery.MapView
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	repo := repository.NewImageRepository(db)
	if err := repo.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	media, err := capture.OpenMediaLibrary(cfg.Media.Dir)
	if err != nil {
		db.Close()
		return nil, err
	}
	media.ThumbnailWidth = cfg.Media.ThumbnailWidth

	prompter, err := cfg.Prompter()
	if err != nil {
		db.Close()
		return nil, err
	}
	svc := capture.NewService(capture.NewPermissions(prompter), media, capture.ConfigLocator(cfg.Capture.DefaultLocation))
	svc.CameraTimeout = cfg.Capture.CameraTimeout
	svc.LocationTimeout = cfg.Capture.LocationTimeout

	g := gallery.New(repo, svc)
	g.PruneMedia = cfg.Media.PruneOnDelete

	return &app{
		db:      db,
		repo:    repo,
		media:   media,
		capture: svc,
		gallery: g,
		maps:    gallery.NewMapView(repo, cfg.Map.InitialRegion),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// locatorFromFlags returns a FixedLocator when both --lat and --lon are given
func locatorFromFlags(lat, lon string) (capture.Locator, error) {
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, fmt.Errorf("--lat and --lon must be given together")
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --lat: %w", err)
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --lon: %w", err)
	}
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, apperr.ErrCoordinatesOutOfRange
	}
	return capture.FixedLocator{Latitude: latitude, Longitude: longitude}, nil
}

func formatCoordinate(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func printImages(w io.Writer, images []*domain.ImageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tLATITUDE\tLONGITUDE\tDESCRIPTION\tURI")
	for _, img := range images {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			img.ID,
			img.Timestamp.Local().Format("2006-01-02 15:04:05"),
			formatCoordinate(img.Latitude),
			formatCoordinate(img.Longitude),
			img.Description,
			img.URI,
		)
	}
	return tw.Flush()
}
