// Package gallery holds the read and capture flows behind the grid and map pages.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/domain"
)

// DefaultDescription is stored for captures without a description
const DefaultDescription = "Captured Image"

// Gallery lists, captures, previews and deletes images
type Gallery struct {
	repo    domain.ImageRepository
	capture *capture.Service

	// PruneMedia removes the media library asset of deleted images
	PruneMedia bool
}

// New creates a Gallery over repo. svc may be nil for read-only use.
func New(repo domain.ImageRepository, svc *capture.Service) *Gallery {
	return &Gallery{repo: repo, capture: svc, PruneMedia: true}
}

// Images returns every image, newest first
func (g *Gallery) Images(ctx context.Context) ([]*domain.ImageRecord, error) {
	return g.repo.List(ctx)
}

// Search returns images whose description or coordinates contain query
func (g *Gallery) Search(ctx context.Context, query string) ([]*domain.ImageRecord, error) {
	return g.repo.Search(ctx, query)
}

// Count returns the number of images
func (g *Gallery) Count(ctx context.Context) (int64, error) {
	return g.repo.Count(ctx)
}

// Preview returns one image, or nil if it does not exist
func (g *Gallery) Preview(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	return g.repo.GetByID(ctx, id)
}

// CaptureAndSave takes a picture and stores it. A nil locator uses the
// capture service's default one.
func (g *Gallery) CaptureAndSave(ctx context.Context, camera capture.Camera, locator capture.Locator, description string) (*domain.ImageRecord, error) {
	if g.capture == nil {
		return nil, errors.New("capture is not available")
	}
	if locator == nil {
		locator = g.capture.Locator
	}
	c, err := g.capture.CaptureImageWith(ctx, camera, locator)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = DefaultDescription
	}

	img, err := g.repo.Create(ctx, domain.NewImage{
		URI:         c.URI,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Description: description,
	})
	if err != nil {
		g.discard(ctx, c.URI)
		return nil, err
	}
	log.Ctx(ctx).Info().Int64("id", img.ID).Str("uri", img.URI).Msg("gallery: image saved")
	return img, nil
}

// Import stores the image file at path, as the inbox does
func (g *Gallery) Import(ctx context.Context, path string) (*domain.ImageRecord, error) {
	return g.CaptureAndSave(ctx, capture.FileCamera{Path: path}, nil, fmt.Sprintf("Imported %s", filepath.Base(path)))
}

// Delete removes an image. Missing ids are ignored. Callers re-fetch the list
// afterwards.
func (g *Gallery) Delete(ctx context.Context, id int64) error {
	var img *domain.ImageRecord
	if g.PruneMedia && g.capture != nil && g.capture.Media != nil {
		var err error
		img, err = g.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
	}

	if err := g.repo.Delete(ctx, id); err != nil {
		return err
	}
	if img == nil {
		return nil
	}

	if g.shared(ctx, img.URI, img.ID) {
		return nil
	}
	g.removeMedia(ctx, img.URI)
	return nil
}

// discard removes the asset of a capture that could not be stored, unless a
// stored record already points at the same picture
func (g *Gallery) discard(ctx context.Context, uri string) {
	if g.shared(ctx, uri, 0) {
		return
	}
	g.removeMedia(ctx, uri)
}

func (g *Gallery) removeMedia(ctx context.Context, uri string) {
	err := g.capture.Media.Remove(ctx, uri)
	switch {
	case errors.Is(err, capture.ErrNotInLibrary):
	case err != nil:
		log.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("gallery: could not prune media")
	}
}

// shared reports whether a record other than exclude points at uri. Identical
// pictures share one file in the media library.
func (g *Gallery) shared(ctx context.Context, uri string, exclude int64) bool {
	all, err := g.repo.List(ctx)
	if err != nil {
		return true
	}
	for _, other := range all {
		if other.ID != exclude && other.URI == uri {
			return true
		}
	}
	return false
}
