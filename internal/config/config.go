// Package config loads the geogallery YAML configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/gallery"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Media       MediaConfig       `yaml:"media"`
	Capture     CaptureConfig     `yaml:"capture"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Map         MapConfig         `yaml:"map"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Language    string            `yaml:"language"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MediaConfig struct {
	Dir            string `yaml:"dir"`
	PruneOnDelete  bool   `yaml:"prune_on_delete"`
	ThumbnailWidth uint   `yaml:"thumbnail_width"`
}

type CaptureConfig struct {
	CameraTimeout   time.Duration        `yaml:"camera_timeout"`
	LocationTimeout time.Duration        `yaml:"location_timeout"`
	DefaultLocation *capture.Coordinates `yaml:"default_location"`
	InboxDir        string               `yaml:"inbox_dir"`
}

type PermissionsConfig struct {
	Camera       string `yaml:"camera"`
	Location     string `yaml:"location"`
	MediaLibrary string `yaml:"media_library"`
}

type MapConfig struct {
	InitialRegion gallery.Region `yaml:"initial_region"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "geogallery.db"},
		Media: MediaConfig{
			Dir:            "media",
			PruneOnDelete:  true,
			ThumbnailWidth: capture.DefaultThumbnailWidth,
		},
		Capture: CaptureConfig{
			CameraTimeout:   capture.DefaultCameraTimeout,
			LocationTimeout: capture.DefaultLocationTimeout,
		},
		Permissions: PermissionsConfig{
			Camera:       string(capture.Granted),
			Location:     string(capture.Granted),
			MediaLibrary: string(capture.Granted),
		},
		Map:      MapConfig{InitialRegion: gallery.DefaultRegion},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Language: "en",
	}
}

// Load reads filename over the defaults. Relative paths in the file are
// resolved against the file's directory. An empty filename returns Default().
func Load(filename string) (*Config, error) {
	ret := Default()
	if filename == "" {
		return ret, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("while parsing '%s': %w", filename, err)
	}
	ret.resolve(filepath.Dir(filename))
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", filename, err)
	}
	return ret, nil
}

func (c *Config) resolve(base string) {
	rel := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Database.Path = rel(c.Database.Path)
	c.Media.Dir = rel(c.Media.Dir)
	c.Capture.InboxDir = rel(c.Capture.InboxDir)
}

// Validate checks values the defaults cannot fix
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Media.Dir == "" {
		return fmt.Errorf("media.dir is required")
	}
	if c.Media.ThumbnailWidth == 0 {
		return fmt.Errorf("media.thumbnail_width must be positive")
	}
	if c.Capture.CameraTimeout <= 0 {
		return fmt.Errorf("capture.camera_timeout must be positive")
	}
	if c.Capture.LocationTimeout <= 0 {
		return fmt.Errorf("capture.location_timeout must be positive")
	}
	if loc := c.Capture.DefaultLocation; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("capture.default_location %v is not a valid coordinate", *loc)
		}
	}
	if _, err := c.Prompter(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Prompter answers permission requests from the permissions section
func (c *Config) Prompter() (capture.StaticPrompter, error) {
	ret := capture.StaticPrompter{}
	for capability, value := range map[capture.Capability]string{
		capture.CameraAccess:       c.Permissions.Camera,
		capture.LocationAccess:     c.Permissions.Location,
		capture.MediaLibraryAccess: c.Permissions.MediaLibrary,
	} {
		status, err := capture.ParseStatus(value)
		if err != nil {
			return nil, fmt.Errorf("permissions.%s: %w", capability, err)
		}
		ret[capability] = status
	}
	return ret, nil
}

// WriteSample writes a commented configuration file
func WriteSample(filename string) error {
	return os.WriteFile(filename, []byte(Sample), 0644)
}

const Sample = `# geogallery configuration file
# Relative paths are resolved against the directory of this file.

database:
  path: geogallery.db

media:
  # Where captured photos are stored
  dir: media
  # Remove the photo file when its image is deleted from the gallery
  prune_on_delete: true
  thumbnail_width: 320

capture:
  camera_timeout: 10s
  location_timeout: 5s
  # Used when a capture has no coordinates of its own
  # default_location:
  #   latitude: -26.280447
  #   longitude: 27.813399
  # Image files dropped here are imported automatically while serving
  # inbox_dir: inbox

# granted or denied
permissions:
  camera: granted
  location: granted
  media_library: granted

map:
  initial_region:
    latitude: -26.280447
    longitude: 27.813399
    latitude_delta: 0.0922
    longitude_delta: 0.0421

server:
  addr: ":8080"

log:
  # trace, debug, info, warn, error
  level: info
  # console or json
  format: console

# en or pt-BR
language: en
`
