package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/geogallery/internal/apperr"
)

func testImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func staticCamera(c color.Color) Camera {
	return CameraFunc(func(ctx context.Context) (*Photo, error) {
		return &Photo{Image: testImage(c), Format: "png", Name: "test.png"}, nil
	})
}

func newTestService(prompter Prompter, locator Locator) *Service {
	media := NewMediaLibrary(memfs.New(), "/media")
	return NewService(NewPermissions(prompter), media, locator)
}

func TestService_CaptureImage(t *testing.T) {
	ctx := context.Background()

	t.Run("stores photo and location", func(t *testing.T) {
		s := newTestService(GrantAll, FixedLocator{Latitude: -26.28, Longitude: 27.81})
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.True(t, c.Located())
		require.Equal(t, -26.28, *c.Latitude)
		require.Equal(t, 27.81, *c.Longitude)
		require.Regexp(t, `^file:///media/[0-9a-f]{64}\.png$`, c.URI)
		require.Equal(t, "test.png", c.Source)

		name, err := s.Media.NameFromURI(c.URI)
		require.NoError(t, err)
		f, err := s.Media.Open(name)
		require.NoError(t, err)
		defer f.Close()
		_, format, err := image.Decode(f)
		require.NoError(t, err)
		require.Equal(t, "png", format)
	})

	t.Run("denied location still captures", func(t *testing.T) {
		prompter := StaticPrompter{CameraAccess: Granted, MediaLibraryAccess: Granted, LocationAccess: Denied}
		called := false
		locator := LocatorFunc(func(ctx context.Context) (Coordinates, error) {
			called = true
			return Coordinates{Latitude: 1, Longitude: 1}, nil
		})
		s := newTestService(prompter, locator)
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.NotEmpty(t, c.URI)
		require.False(t, c.Located())
		require.Nil(t, c.Latitude)
		require.Nil(t, c.Longitude)
		require.False(t, called, "locator must not run without permission")
	})

	t.Run("failing locator still captures", func(t *testing.T) {
		s := newTestService(GrantAll, LocatorFunc(func(ctx context.Context) (Coordinates, error) {
			return Coordinates{}, errors.New("gps off")
		}))
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.False(t, c.Located())
	})

	t.Run("slow locator times out", func(t *testing.T) {
		s := newTestService(GrantAll, LocatorFunc(func(ctx context.Context) (Coordinates, error) {
			<-ctx.Done()
			return Coordinates{}, ctx.Err()
		}))
		s.LocationTimeout = 20 * time.Millisecond
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.False(t, c.Located())
	})

	t.Run("out of range fix is dropped", func(t *testing.T) {
		s := newTestService(GrantAll, FixedLocator{Latitude: 91, Longitude: 0})
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.False(t, c.Located())
	})

	t.Run("nil locator captures without location", func(t *testing.T) {
		s := newTestService(GrantAll, nil)
		c, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.NoError(t, err)
		require.False(t, c.Located())
	})

	t.Run("denied camera", func(t *testing.T) {
		s := newTestService(StaticPrompter{MediaLibraryAccess: Granted, LocationAccess: Granted}, NoLocator{})
		_, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.ErrorIs(t, err, apperr.PermissionDenied)
		require.ErrorIs(t, err, apperr.ErrCameraDenied)
	})

	t.Run("denied media library", func(t *testing.T) {
		s := newTestService(StaticPrompter{CameraAccess: Granted}, NoLocator{})
		_, err := s.CaptureImage(ctx, staticCamera(color.White))
		require.ErrorIs(t, err, apperr.PermissionDenied)
		require.ErrorIs(t, err, apperr.ErrMediaLibraryDenied)
	})

	t.Run("camera timeout", func(t *testing.T) {
		s := newTestService(GrantAll, NoLocator{})
		s.CameraTimeout = 20 * time.Millisecond
		camera := CameraFunc(func(ctx context.Context) (*Photo, error) {
			time.Sleep(time.Second)
			return nil, nil
		})
		_, err := s.CaptureImage(ctx, camera)
		require.ErrorIs(t, err, apperr.PermissionDenied)
		require.ErrorIs(t, err, apperr.ErrCameraTimeout)
	})

	t.Run("cancelled camera", func(t *testing.T) {
		s := newTestService(GrantAll, NoLocator{})
		_, err := s.CaptureImage(ctx, FileCamera{})
		require.ErrorIs(t, err, ErrCaptureCancelled)

		_, err = s.CaptureImage(ctx, ReaderCamera{})
		require.ErrorIs(t, err, ErrCaptureCancelled)
	})

	t.Run("explicit locator overrides default", func(t *testing.T) {
		s := newTestService(GrantAll, FixedLocator{Latitude: 10, Longitude: 10})
		c, err := s.CaptureImageWith(ctx, staticCamera(color.White), FixedLocator{Latitude: -3.7, Longitude: -38.5})
		require.NoError(t, err)
		require.Equal(t, -3.7, *c.Latitude)
		require.Equal(t, -38.5, *c.Longitude)
	})
}

func TestService_Activate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(StaticPrompter{CameraAccess: Granted, MediaLibraryAccess: Granted}, NoLocator{})

	statuses := s.Activate(ctx)
	require.Equal(t, Granted, statuses[CameraAccess])
	require.Equal(t, Granted, statuses[MediaLibraryAccess])
	require.Equal(t, Denied, statuses[LocationAccess])
	require.Equal(t, Denied, s.Permissions.Status(LocationAccess))
}

func TestPermissions_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("re-requests denied capability", func(t *testing.T) {
		answers := []Status{Denied, Granted}
		calls := 0
		p := NewPermissions(PrompterFunc(func(ctx context.Context, c Capability) (Status, error) {
			s := answers[calls]
			calls++
			return s, nil
		}))

		require.False(t, p.Ensure(ctx, CameraAccess))
		require.Equal(t, Denied, p.Status(CameraAccess))
		require.True(t, p.Ensure(ctx, CameraAccess))
		require.True(t, p.Ensure(ctx, CameraAccess))
		require.Equal(t, 2, calls, "granted answers are cached")
	})

	t.Run("prompter error denies", func(t *testing.T) {
		p := NewPermissions(PrompterFunc(func(ctx context.Context, c Capability) (Status, error) {
			return Granted, errors.New("dialog crashed")
		}))
		require.False(t, p.Ensure(ctx, LocationAccess))
		require.Equal(t, Denied, p.Status(LocationAccess))
	})

	t.Run("undetermined before asking", func(t *testing.T) {
		p := NewPermissions(GrantAll)
		require.Equal(t, Undetermined, p.Status(MediaLibraryAccess))
	})
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"granted", "GRANTED", " yes ", "true"} {
		s, err := ParseStatus(in)
		require.NoError(t, err, in)
		require.Equal(t, Granted, s, in)
	}
	for _, in := range []string{"denied", "No", "false"} {
		s, err := ParseStatus(in)
		require.NoError(t, err, in)
		require.Equal(t, Denied, s, in)
	}
	_, err := ParseStatus("maybe")
	require.Error(t, err)
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	pos, err := Chain{NoLocator{}, nil, FixedLocator{Latitude: 1, Longitude: 2}}.CurrentPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, Coordinates{Latitude: 1, Longitude: 2}, pos)

	_, err = Chain{NoLocator{}}.CurrentPosition(ctx)
	require.ErrorIs(t, err, apperr.LocationUnavailable)

	_, err = Chain{}.CurrentPosition(ctx)
	require.ErrorIs(t, err, apperr.ErrNoLocation)

	_, err = ConfigLocator(nil).CurrentPosition(ctx)
	require.ErrorIs(t, err, apperr.ErrNoLocation)

	pos, err = ConfigLocator(&Coordinates{Latitude: 5, Longitude: 6}).CurrentPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 5.0, pos.Latitude)
}
