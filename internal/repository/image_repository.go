package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lewtec/geogallery/internal/apperr"
	"github.com/lewtec/geogallery/internal/database"
	"github.com/lewtec/geogallery/internal/domain"
	"github.com/lewtec/geogallery/internal/sqlc"
)

// ImageRepository implements domain.ImageRepository using SQLC
type ImageRepository struct {
	db      *sql.DB
	queries *sqlc.Queries
}

// NewImageRepository creates a new ImageRepository
func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{
		db:      db,
		queries: sqlc.New(db),
	}
}

// Initialize applies the schema migrations
func (r *ImageRepository) Initialize(ctx context.Context) error {
	return database.Migrate(ctx, r.db)
}

// Add inserts one record and returns its id
func (r *ImageRepository) Add(ctx context.Context, uri string, latitude, longitude *float64, description string) (int64, error) {
	img, err := r.Create(ctx, domain.NewImage{
		URI:         uri,
		Latitude:    latitude,
		Longitude:   longitude,
		Description: description,
	})
	if err != nil {
		return 0, err
	}
	return img.ID, nil
}

// Create inserts one record and returns it as stored
func (r *ImageRepository) Create(ctx context.Context, img domain.NewImage) (*domain.ImageRecord, error) {
	if err := ValidateNewImage(img); err != nil {
		return nil, err
	}

	row, err := r.queries.CreateImage(ctx, toCreateParams(img))
	if err != nil {
		return nil, writeError(err, "insert_failed", "while inserting image")
	}

	rec := toDomainImage(row)
	log.Ctx(ctx).Debug().Int64("image_id", rec.ID).Str("uri", rec.URI).Bool("located", rec.HasCoordinates()).Msg("image stored")
	return rec, nil
}

// AddBatch inserts all records in one transaction. Either every record is
// stored or none is.
func (r *ImageRepository) AddBatch(ctx context.Context, imgs []domain.NewImage) ([]int64, error) {
	for i, img := range imgs {
		if err := ValidateNewImage(img); err != nil {
			return nil, fmt.Errorf("on %dth image: %w", i+1, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, writeError(err, "batch_failed", "while starting batch transaction")
	}
	defer tx.Rollback()

	queries := r.queries.WithTx(tx)
	ids := make([]int64, 0, len(imgs))
	for i, img := range imgs {
		row, err := queries.CreateImage(ctx, toCreateParams(img))
		if err != nil {
			return nil, writeError(err, "batch_failed", fmt.Sprintf("while inserting %dth image of batch", i+1))
		}
		ids = append(ids, row.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, writeError(err, "batch_failed", "while committing batch")
	}
	log.Ctx(ctx).Debug().Int("count", len(ids)).Msg("image batch stored")
	return ids, nil
}

// GetByID retrieves a record by its ID
func (r *ImageRepository) GetByID(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	img, err := r.queries.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return toDomainImage(img), nil
}

// List retrieves all records, most recent first
func (r *ImageRepository) List(ctx context.Context) ([]*domain.ImageRecord, error) {
	images, err := r.queries.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("while listing images: %w", err)
	}
	return toDomainImages(images), nil
}

// ListWithCoordinates retrieves the located records, most recent first
func (r *ImageRepository) ListWithCoordinates(ctx context.Context) ([]*domain.ImageRecord, error) {
	images, err := r.queries.ListImagesWithCoordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("while listing located images: %w", err)
	}
	return toDomainImages(images), nil
}

// Search retrieves records whose description, latitude or longitude contains
// query as a literal substring. An empty query matches everything.
func (r *ImageRepository) Search(ctx context.Context, query string) ([]*domain.ImageRecord, error) {
	if query == "" {
		return r.List(ctx)
	}

	images, err := r.queries.SearchImages(ctx, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("while searching images for %q: %w", query, err)
	}
	return toDomainImages(images), nil
}

// Count returns the total number of records
func (r *ImageRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountImages(ctx)
}

// Delete removes a record by ID
func (r *ImageRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteImage(ctx, id)
	if err != nil {
		return writeError(err, "delete_failed", fmt.Sprintf("while deleting image %d", id))
	}
	log.Ctx(ctx).Debug().Int64("image_id", id).Int64("deleted", n).Msg("image delete")
	return nil
}

// ValidateNewImage checks the invariants the images table relies on
func ValidateNewImage(img domain.NewImage) error {
	if strings.TrimSpace(img.URI) == "" {
		return apperr.ErrEmptyURI
	}
	if (img.Latitude == nil) != (img.Longitude == nil) {
		return apperr.ErrPartialCoordinates
	}
	if img.Latitude != nil {
		lat, lon := *img.Latitude, *img.Longitude
		if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return apperr.ErrCoordinatesOutOfRange
		}
	}
	return nil
}

// escapeLike makes every character of s match literally inside a LIKE ... ESCAPE '\' pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func writeError(err error, code, message string) error {
	e := apperr.Wrap(err, apperr.WriteError, code, message)
	if database.IsConstraintError(err) {
		e.UserMessage = "The image could not be saved because it is incomplete."
	} else {
		e.UserMessage = "The image could not be saved. Please try again."
	}
	return e
}

func toCreateParams(img domain.NewImage) sqlc.CreateImageParams {
	params := sqlc.CreateImageParams{
		Uri: img.URI,
		Description: sql.NullString{
			String: img.Description,
			Valid:  img.Description != "",
		},
	}
	if img.Latitude != nil && img.Longitude != nil {
		params.Latitude = sql.NullFloat64{Float64: *img.Latitude, Valid: true}
		params.Longitude = sql.NullFloat64{Float64: *img.Longitude, Valid: true}
	}
	if !img.Timestamp.IsZero() {
		params.Timestamp = sql.NullString{
			String: img.Timestamp.UTC().Format(sqlc.TimestampLayout),
			Valid:  true,
		}
	}
	return params
}

func toDomainImages(images []sqlc.Image) []*domain.ImageRecord {
	result := make([]*domain.ImageRecord, len(images))
	for i, img := range images {
		result[i] = toDomainImage(img)
	}
	return result
}

// toDomainImage converts a sqlc.Image to domain.ImageRecord
func toDomainImage(img sqlc.Image) *domain.ImageRecord {
	rec := &domain.ImageRecord{
		ID:          img.ID,
		URI:         img.Uri,
		Timestamp:   img.Timestamp.Time,
		Description: img.Description.String,
	}
	if img.Latitude.Valid && img.Longitude.Valid {
		lat, lon := img.Latitude.Float64, img.Longitude.Float64
		rec.Latitude = &lat
		rec.Longitude = &lon
	}
	return rec
}

// Verify that ImageRepository implements domain.ImageRepository
var _ domain.ImageRepository = (*ImageRepository)(nil)
