package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/geogallery/internal/apperr"
	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/domain"
	"github.com/lewtec/geogallery/internal/repository"
)

type fixture struct {
	ctx     context.Context
	repo    *repository.ImageRepository
	media   *capture.MediaLibrary
	service *capture.Service
	gallery *Gallery
}

func setupGallery(t *testing.T, prompter capture.Prompter, locator capture.Locator) *fixture {
	t.Helper()
	db := repository.SetupTestDB(t)
	t.Cleanup(func() { repository.CleanupTestDB(t, db) })

	repo := repository.NewImageRepository(db)
	media := capture.NewMediaLibrary(memfs.New(), "/media")
	svc := capture.NewService(capture.NewPermissions(prompter), media, locator)
	return &fixture{
		ctx:     context.Background(),
		repo:    repo,
		media:   media,
		service: svc,
		gallery: New(repo, svc),
	}
}

func solidCamera(c color.Color) capture.Camera {
	return capture.CameraFunc(func(ctx context.Context) (*capture.Photo, error) {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for x := 0; x < 4; x++ {
			for y := 0; y < 4; y++ {
				img.Set(x, y, c)
			}
		}
		return &capture.Photo{Image: img, Format: "png"}, nil
	})
}

func TestGallery_CaptureAndSave(t *testing.T) {
	t.Run("stores located capture with default description", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.FixedLocator{Latitude: -26.28, Longitude: 27.81})

		img, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.NoError(t, err)
		require.Equal(t, DefaultDescription, img.Description)
		require.True(t, img.HasCoordinates())
		require.Equal(t, -26.28, *img.Latitude)

		images, err := f.gallery.Images(f.ctx)
		require.NoError(t, err)
		require.Len(t, images, 1)
		require.Equal(t, img.ID, images[0].ID)
	})

	t.Run("denied location stores record without coordinates", func(t *testing.T) {
		prompter := capture.StaticPrompter{capture.CameraAccess: capture.Granted, capture.MediaLibraryAccess: capture.Granted}
		f := setupGallery(t, prompter, capture.FixedLocator{Latitude: 1, Longitude: 2})

		img, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "beach")
		require.NoError(t, err)
		require.False(t, img.HasCoordinates())

		stored, err := f.gallery.Preview(f.ctx, img.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Nil(t, stored.Latitude)
		require.Nil(t, stored.Longitude)
		require.Equal(t, "beach", stored.Description)
	})

	t.Run("denied camera stores nothing", func(t *testing.T) {
		f := setupGallery(t, capture.StaticPrompter{}, capture.NoLocator{})

		_, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.ErrorIs(t, err, apperr.PermissionDenied)

		n, err := f.gallery.Count(f.ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("read-only gallery cannot capture", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, nil)
		_, err := New(f.repo, nil).CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.Error(t, err)
	})
}

// failingCreateRepo stores nothing new
type failingCreateRepo struct {
	*repository.ImageRepository
}

func (failingCreateRepo) Create(ctx context.Context, img domain.NewImage) (*domain.ImageRecord, error) {
	return nil, errors.New("disk full")
}

// assetName returns the media library name camera's picture is stored under
func assetName(t *testing.T, camera capture.Camera) string {
	t.Helper()
	ctx := context.Background()
	photo, err := camera.TakePicture(ctx)
	require.NoError(t, err)
	scratch := capture.NewMediaLibrary(memfs.New(), "/media")
	uri, err := scratch.Save(ctx, photo)
	require.NoError(t, err)
	name, err := scratch.NameFromURI(uri)
	require.NoError(t, err)
	return name
}

func TestGallery_CaptureAndSave_FailedInsert(t *testing.T) {
	t.Run("removes the saved asset", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		g := New(failingCreateRepo{f.repo}, f.service)

		_, err := g.CaptureAndSave(f.ctx, solidCamera(color.Black), nil, "")
		require.EqualError(t, err, "disk full")

		_, err = f.media.Open(assetName(t, solidCamera(color.Black)))
		require.Error(t, err, "asset must not outlive the failed insert")
	})

	t.Run("keeps an asset a stored record points at", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		stored, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.Black), nil, "")
		require.NoError(t, err)

		g := New(failingCreateRepo{f.repo}, f.service)
		_, err = g.CaptureAndSave(f.ctx, solidCamera(color.Black), nil, "")
		require.Error(t, err)

		name, err := f.media.NameFromURI(stored.URI)
		require.NoError(t, err)
		file, err := f.media.Open(name)
		require.NoError(t, err)
		file.Close()
	})
}

func TestGallery_Import(t *testing.T) {
	f := setupGallery(t, capture.GrantAll, capture.NoLocator{})

	path := filepath.Join(t.TempDir(), "holiday.png")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, image.NewGray(image.Rect(0, 0, 3, 3))))
	require.NoError(t, out.Close())

	img, err := f.gallery.Import(f.ctx, path)
	require.NoError(t, err)
	require.Equal(t, "Imported holiday.png", img.Description)
	require.False(t, img.HasCoordinates())

	_, err = f.gallery.Import(f.ctx, filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestGallery_Delete(t *testing.T) {
	t.Run("prunes media", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		img, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.NoError(t, err)
		name, err := f.media.NameFromURI(img.URI)
		require.NoError(t, err)

		require.NoError(t, f.gallery.Delete(f.ctx, img.ID))

		gone, err := f.gallery.Preview(f.ctx, img.ID)
		require.NoError(t, err)
		require.Nil(t, gone)
		_, err = f.media.Open(name)
		require.Error(t, err)
	})

	t.Run("keeps media shared with another record", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		first, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.NoError(t, err)
		second, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.NoError(t, err)
		require.Equal(t, first.URI, second.URI)

		require.NoError(t, f.gallery.Delete(f.ctx, first.ID))
		name, err := f.media.NameFromURI(second.URI)
		require.NoError(t, err)
		file, err := f.media.Open(name)
		require.NoError(t, err)
		file.Close()
	})

	t.Run("foreign uri is left alone", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		id, err := f.repo.Add(f.ctx, "file://a.jpg", nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, f.gallery.Delete(f.ctx, id))
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		require.NoError(t, f.gallery.Delete(f.ctx, 999))
	})

	t.Run("pruning disabled", func(t *testing.T) {
		f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
		f.gallery.PruneMedia = false
		img, err := f.gallery.CaptureAndSave(f.ctx, solidCamera(color.White), nil, "")
		require.NoError(t, err)
		require.NoError(t, f.gallery.Delete(f.ctx, img.ID))

		name, err := f.media.NameFromURI(img.URI)
		require.NoError(t, err)
		file, err := f.media.Open(name)
		require.NoError(t, err)
		file.Close()
	})
}

func TestGallery_Search(t *testing.T) {
	f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
	_, err := f.repo.Add(f.ctx, "file://a.jpg", repository.Float(-26.28), repository.Float(27.81), "test")
	require.NoError(t, err)
	_, err = f.repo.Add(f.ctx, "file://b.jpg", nil, nil, "other")
	require.NoError(t, err)

	found, err := f.gallery.Search(f.ctx, "test")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "file://a.jpg", found[0].URI)

	all, err := f.gallery.Search(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestMapView(t *testing.T) {
	f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
	located, err := f.repo.Add(f.ctx, "file://a.jpg", repository.Float(-26.28), repository.Float(27.81), "test")
	require.NoError(t, err)
	_, err = f.repo.Add(f.ctx, "file://b.jpg", nil, nil, "no gps")
	require.NoError(t, err)

	mv := NewMapView(f.repo, DefaultRegion)
	require.Equal(t, -26.280447, mv.Region().Latitude)
	require.Equal(t, 0.0421, mv.Region().LongitudeDelta)

	markers, err := mv.Markers(f.ctx)
	require.NoError(t, err)
	require.Equal(t, []Marker{{
		ID:        located,
		URI:       "file://a.jpg",
		Title:     "Image " + strconv.FormatInt(located, 10),
		Latitude:  -26.28,
		Longitude: 27.81,
	}}, markers)

	data, err := GeoJSON(markers)
	require.NoError(t, err)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	require.Equal(t, "Point", fc.Features[0].Geometry.Type)
	require.Equal(t, []float64{27.81, -26.28}, fc.Features[0].Geometry.Coordinates)
	require.Equal(t, "file://a.jpg", fc.Features[0].Properties["uri"])
}

func TestMapView_Empty(t *testing.T) {
	f := setupGallery(t, capture.GrantAll, capture.NoLocator{})
	markers, err := NewMapView(f.repo, DefaultRegion).Markers(f.ctx)
	require.NoError(t, err)
	require.Empty(t, markers)

	data, err := GeoJSON(markers)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
