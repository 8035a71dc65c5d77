package capture

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

const (
	thumbsDir = ".thumbs"

	// DefaultThumbnailWidth is the grid thumbnail width in pixels
	DefaultThumbnailWidth uint = 320
)

// ErrNotInLibrary is returned for URIs or names that do not point into the library
var ErrNotInLibrary = errors.New("not a media library asset")

// MediaLibrary keeps image bytes. Assets are PNG files named by the SHA-256 of
// their content and referenced from the store as file:// URIs.
type MediaLibrary struct {
	fs   billy.Filesystem
	root string

	ThumbnailWidth uint
}

// NewMediaLibrary wraps fs. root is the absolute location of fs, used in URIs.
func NewMediaLibrary(fs billy.Filesystem, root string) *MediaLibrary {
	return &MediaLibrary{
		fs:             fs,
		root:           path.Clean("/" + filepath.ToSlash(root)),
		ThumbnailWidth: DefaultThumbnailWidth,
	}
}

// OpenMediaLibrary uses dir on the local disk, creating it if needed
func OpenMediaLibrary(dir string) (*MediaLibrary, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("while resolving media dir '%s': %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("while creating media dir '%s': %w", abs, err)
	}
	return NewMediaLibrary(osfs.New(abs), abs), nil
}

// Save encodes photo as PNG into the library and returns its URI
func (m *MediaLibrary) Save(ctx context.Context, photo *Photo) (string, error) {
	tempFile := fmt.Sprintf("%s.tmp", uuid.New())
	f, err := m.fs.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("while creating media file: %w", err)
	}
	hasher := sha256.New()
	w := io.MultiWriter(f, hasher)
	if err := png.Encode(w, photo.Image); err != nil {
		f.Close()
		m.fs.Remove(tempFile)
		return "", fmt.Errorf("while encoding photo: %w", err)
	}
	if err := f.Close(); err != nil {
		m.fs.Remove(tempFile)
		return "", fmt.Errorf("while writing media file: %w", err)
	}

	name := fmt.Sprintf("%x.png", hasher.Sum(nil))
	if _, err := m.fs.Stat(name); err == nil {
		// same picture already in the library
		m.fs.Remove(tempFile)
	} else if err := m.fs.Rename(tempFile, name); err != nil {
		m.fs.Remove(tempFile)
		return "", fmt.Errorf("while naming media file: %w", err)
	}

	uri := m.URI(name)
	log.Ctx(ctx).Debug().Str("uri", uri).Str("source", photo.Name).Msg("media: asset saved")
	return uri, nil
}

// URI returns the reference stored for the asset name
func (m *MediaLibrary) URI(name string) string {
	return "file://" + path.Join(m.root, name)
}

// NameFromURI returns the asset name of uri, or ErrNotInLibrary
func (m *MediaLibrary) NameFromURI(uri string) (string, error) {
	p, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", ErrNotInLibrary
	}
	p = path.Clean(p)
	dir, name := path.Split(p)
	if path.Clean(dir) != m.root {
		return "", ErrNotInLibrary
	}
	if err := validName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Open opens an asset for reading
func (m *MediaLibrary) Open(name string) (billy.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return m.fs.Open(name)
}

// Remove deletes the asset uri points to. URIs outside the library are left alone.
func (m *MediaLibrary) Remove(ctx context.Context, uri string) error {
	name, err := m.NameFromURI(uri)
	if err != nil {
		return err
	}
	if err := m.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("while removing media file '%s': %w", name, err)
	}
	m.fs.Remove(m.thumbPath(name, m.ThumbnailWidth))
	log.Ctx(ctx).Debug().Str("uri", uri).Msg("media: asset removed")
	return nil
}

// Thumbnail returns a JPEG of the asset at ThumbnailWidth, generating it on first use
func (m *MediaLibrary) Thumbnail(ctx context.Context, name string) (billy.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	width := m.ThumbnailWidth
	thumbName := m.thumbPath(name, width)
	if f, err := m.fs.Open(thumbName); err == nil {
		return f, nil
	}

	src, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		return nil, fmt.Errorf("while decoding '%s' for thumbnail: %w", name, err)
	}

	if err := m.fs.MkdirAll(path.Dir(thumbName), 0755); err != nil {
		return nil, fmt.Errorf("while creating thumbnail dir: %w", err)
	}
	out, err := m.fs.Create(thumbName)
	if err != nil {
		return nil, fmt.Errorf("while creating thumbnail: %w", err)
	}
	if uint(img.Bounds().Dx()) > width {
		img = resize.Resize(width, 0, img, resize.Lanczos3)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		out.Close()
		m.fs.Remove(thumbName)
		return nil, fmt.Errorf("while encoding thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("name", name).Uint("width", width).Msg("media: thumbnail generated")
	return m.fs.Open(thumbName)
}

func (m *MediaLibrary) thumbPath(name string, width uint) string {
	return path.Join(thumbsDir, fmt.Sprint(width), strings.TrimSuffix(name, path.Ext(name))+".jpg")
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return ErrNotInLibrary
	}
	return nil
}
