package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lewtec/geogallery/internal/apperr"
)

const (
	DefaultCameraTimeout   = 10 * time.Second
	DefaultLocationTimeout = 5 * time.Second
)

// Capture is a photo stored in the media library plus its optional location
type Capture struct {
	URI       string
	Latitude  *float64
	Longitude *float64
	// Source is the name hint of the photo, may be empty
	Source string
}

// Located reports whether the capture carries a location fix
func (c *Capture) Located() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Service acquires one picture and, best-effort, one location fix
type Service struct {
	Permissions     *Permissions
	Media           *MediaLibrary
	Locator         Locator
	CameraTimeout   time.Duration
	LocationTimeout time.Duration
}

// NewService creates a Service with the default timeouts
func NewService(perms *Permissions, media *MediaLibrary, locator Locator) *Service {
	return &Service{
		Permissions:     perms,
		Media:           media,
		Locator:         locator,
		CameraTimeout:   DefaultCameraTimeout,
		LocationTimeout: DefaultLocationTimeout,
	}
}

// Activate requests every permission once
func (s *Service) Activate(ctx context.Context) map[Capability]Status {
	statuses := s.Permissions.RequestAll(ctx)
	log.Ctx(ctx).Info().
		Str("camera", string(statuses[CameraAccess])).
		Str("location", string(statuses[LocationAccess])).
		Str("media_library", string(statuses[MediaLibraryAccess])).
		Msg("capture: activated")
	return statuses
}

// CaptureImage takes a picture with camera, stores it in the media library and
// tags it with the service's locator. Only camera and media library failures
// are errors. A missing location leaves the coordinates nil.
func (s *Service) CaptureImage(ctx context.Context, camera Camera) (*Capture, error) {
	return s.CaptureImageWith(ctx, camera, s.Locator)
}

// CaptureImageWith is CaptureImage with an explicit locator
func (s *Service) CaptureImageWith(ctx context.Context, camera Camera, locator Locator) (*Capture, error) {
	if !s.Permissions.Ensure(ctx, CameraAccess) {
		return nil, apperr.ErrCameraDenied
	}

	photo, err := withTimeout(ctx, s.cameraTimeout(), camera.TakePicture)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperr.Wrap(err, apperr.ErrCameraTimeout.Kind, apperr.ErrCameraTimeout.Code, apperr.ErrCameraTimeout.Message).
				WithUserMessage(apperr.ErrCameraTimeout.UserMessage)
		}
		return nil, err
	}
	if photo == nil || photo.Image == nil {
		return nil, ErrCaptureCancelled
	}

	if !s.Permissions.Ensure(ctx, MediaLibraryAccess) {
		return nil, apperr.ErrMediaLibraryDenied
	}
	uri, err := s.Media.Save(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("while saving photo to the media library: %w", err)
	}

	result := &Capture{URI: uri, Source: photo.Name}
	pos, err := s.locate(ctx, locator)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("capture: saving without location")
	} else {
		lat, lon := pos.Latitude, pos.Longitude
		result.Latitude = &lat
		result.Longitude = &lon
	}

	log.Ctx(ctx).Info().Str("uri", uri).Bool("located", result.Located()).Msg("capture: image captured")
	return result, nil
}

// locate never fails the capture; every error it returns is LocationUnavailable
func (s *Service) locate(ctx context.Context, locator Locator) (Coordinates, error) {
	if locator == nil {
		return Coordinates{}, apperr.ErrNoLocation
	}
	if !s.Permissions.Ensure(ctx, LocationAccess) {
		return Coordinates{}, apperr.ErrLocationDenied
	}

	pos, err := withTimeout(ctx, s.locationTimeout(), locator.CurrentPosition)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Coordinates{}, apperr.Wrap(err, apperr.LocationUnavailable, apperr.ErrLocationTimeout.Code, apperr.ErrLocationTimeout.Message)
		}
		if apperr.KindOf(err) == apperr.LocationUnavailable {
			return Coordinates{}, err
		}
		return Coordinates{}, apperr.Wrap(err, apperr.LocationUnavailable, "location_failed", "could not get current position")
	}
	if pos.Latitude < -90 || pos.Latitude > 90 || pos.Longitude < -180 || pos.Longitude > 180 {
		return Coordinates{}, apperr.New(apperr.LocationUnavailable, "location_invalid", fmt.Sprintf("position %v out of range", pos))
	}
	return pos, nil
}

func (s *Service) cameraTimeout() time.Duration {
	if s.CameraTimeout > 0 {
		return s.CameraTimeout
	}
	return DefaultCameraTimeout
}

func (s *Service) locationTimeout() time.Duration {
	if s.LocationTimeout > 0 {
		return s.LocationTimeout
	}
	return DefaultLocationTimeout
}

// withTimeout runs fn under a deadline and stops waiting once it passes, even
// if fn ignores its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
