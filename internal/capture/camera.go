package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
)

// ErrCaptureCancelled is returned when the camera closed without a picture
var ErrCaptureCancelled = errors.New("capture cancelled")

// Photo is a picture straight from a camera
type Photo struct {
	Image  image.Image
	Format string
	// Name is a hint about where the picture came from, may be empty
	Name string
}

// Camera takes one picture per call
type Camera interface {
	TakePicture(ctx context.Context) (*Photo, error)
}

// DecodeImage reads the image at filepath
func DecodeImage(filepath string) (image.Image, string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

// FileCamera takes its picture from an image file on disk
type FileCamera struct {
	Path string
}

func (c FileCamera) TakePicture(ctx context.Context) (*Photo, error) {
	if c.Path == "" {
		return nil, ErrCaptureCancelled
	}
	img, format, err := DecodeImage(c.Path)
	if err != nil {
		return nil, fmt.Errorf("while checking if '%s' is an image: %w", c.Path, err)
	}
	return &Photo{Image: img, Format: format, Name: filepath.Base(c.Path)}, nil
}

// ReaderCamera takes its picture from a stream, usually an upload.
// A nil reader means the user closed the camera without shooting.
type ReaderCamera struct {
	Reader io.Reader
	Name   string
}

func (c ReaderCamera) TakePicture(ctx context.Context) (*Photo, error) {
	if c.Reader == nil {
		return nil, ErrCaptureCancelled
	}
	img, format, err := image.Decode(c.Reader)
	if err != nil {
		return nil, fmt.Errorf("while decoding uploaded image: %w", err)
	}
	return &Photo{Image: img, Format: format, Name: c.Name}, nil
}

// CameraFunc adapts a function to Camera
type CameraFunc func(ctx context.Context) (*Photo, error)

func (f CameraFunc) TakePicture(ctx context.Context) (*Photo, error) {
	return f(ctx)
}
