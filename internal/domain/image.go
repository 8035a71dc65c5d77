package domain

import (
	"context"
	"time"
)

// ImageRecord is the metadata of one captured photograph
type ImageRecord struct {
	ID          int64
	URI         string
	Latitude    *float64
	Longitude   *float64
	Timestamp   time.Time
	Description string
}

// HasCoordinates reports whether both latitude and longitude are present
func (r *ImageRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// NewImage holds the caller-supplied fields of a record that is about to be stored.
// A zero Timestamp means "now".
type NewImage struct {
	URI         string
	Latitude    *float64
	Longitude   *float64
	Description string
	Timestamp   time.Time
}

// ImageRepository defines the interface for image metadata storage operations
type ImageRepository interface {
	// Initialize makes sure the schema exists. Safe to call more than once.
	Initialize(ctx context.Context) error

	// Add stores a new record and returns its id
	Add(ctx context.Context, uri string, latitude, longitude *float64, description string) (int64, error)

	// Create stores a new record and returns it as persisted
	Create(ctx context.Context, img NewImage) (*ImageRecord, error)

	// AddBatch stores all records in a single transaction and returns their ids
	AddBatch(ctx context.Context, imgs []NewImage) ([]int64, error)

	// GetByID retrieves a record, or nil when it does not exist
	GetByID(ctx context.Context, id int64) (*ImageRecord, error)

	// List retrieves all records, most recent first
	List(ctx context.Context) ([]*ImageRecord, error)

	// ListWithCoordinates retrieves the records that carry both coordinates
	ListWithCoordinates(ctx context.Context) ([]*ImageRecord, error)

	// Search retrieves records whose description, latitude or longitude contains query
	Search(ctx context.Context, query string) ([]*ImageRecord, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by id. Missing ids are not an error.
	Delete(ctx context.Context, id int64) error
}
