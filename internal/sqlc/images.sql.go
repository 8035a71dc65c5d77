package sqlc

import (
	"context"
	"database/sql"
)

const imageColumns = `id, uri, latitude, longitude, timestamp, description`

const countImages = `-- name: CountImages :one
SELECT COUNT(*) FROM images
`

func (q *Queries) CountImages(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countImages)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createImage = `-- name: CreateImage :one
INSERT INTO images (uri, latitude, longitude, timestamp, description)
VALUES (?, ?, ?, COALESCE(?, strftime('%Y-%m-%d %H:%M:%f', 'now')), ?)
RETURNING ` + imageColumns + `
`

type CreateImageParams struct {
	Uri         string
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	Timestamp   sql.NullString
	Description sql.NullString
}

func (q *Queries) CreateImage(ctx context.Context, arg CreateImageParams) (Image, error) {
	row := q.db.QueryRowContext(ctx, createImage,
		arg.Uri,
		arg.Latitude,
		arg.Longitude,
		arg.Timestamp,
		arg.Description,
	)
	var i Image
	err := scanImage(row, &i)
	return i, err
}

const deleteImage = `-- name: DeleteImage :execrows
DELETE FROM images WHERE id = ?
`

func (q *Queries) DeleteImage(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteImage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getImage = `-- name: GetImage :one
SELECT ` + imageColumns + ` FROM images WHERE id = ? LIMIT 1
`

func (q *Queries) GetImage(ctx context.Context, id int64) (Image, error) {
	row := q.db.QueryRowContext(ctx, getImage, id)
	var i Image
	err := scanImage(row, &i)
	return i, err
}

const listImages = `-- name: ListImages :many
SELECT ` + imageColumns + ` FROM images
ORDER BY timestamp DESC, id DESC
`

func (q *Queries) ListImages(ctx context.Context) ([]Image, error) {
	return q.queryImages(ctx, listImages)
}

const listImagesWithCoordinates = `-- name: ListImagesWithCoordinates :many
SELECT ` + imageColumns + ` FROM images
WHERE latitude IS NOT NULL AND longitude IS NOT NULL
ORDER BY timestamp DESC, id DESC
`

func (q *Queries) ListImagesWithCoordinates(ctx context.Context) ([]Image, error) {
	return q.queryImages(ctx, listImagesWithCoordinates)
}

const searchImages = `-- name: SearchImages :many
SELECT ` + imageColumns + ` FROM images
WHERE description LIKE ? ESCAPE '\'
   OR latitude LIKE ? ESCAPE '\'
   OR longitude LIKE ? ESCAPE '\'
ORDER BY timestamp DESC, id DESC
`

// SearchImages takes a LIKE pattern that is matched against description,
// latitude and longitude.
func (q *Queries) SearchImages(ctx context.Context, pattern string) ([]Image, error) {
	return q.queryImages(ctx, searchImages, pattern, pattern, pattern)
}

func (q *Queries) queryImages(ctx context.Context, query string, args ...interface{}) ([]Image, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Image{}
	for rows.Next() {
		var i Image
		if err := scanImage(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(s scanner, i *Image) error {
	return s.Scan(
		&i.ID,
		&i.Uri,
		&i.Latitude,
		&i.Longitude,
		&i.Timestamp,
		&i.Description,
	)
}
