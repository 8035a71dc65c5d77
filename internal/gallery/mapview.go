package gallery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lewtec/geogallery/internal/domain"
)

// Region is the visible area of the map
type Region struct {
	Latitude       float64 `yaml:"latitude" json:"latitude"`
	Longitude      float64 `yaml:"longitude" json:"longitude"`
	LatitudeDelta  float64 `yaml:"latitude_delta" json:"latitudeDelta"`
	LongitudeDelta float64 `yaml:"longitude_delta" json:"longitudeDelta"`
}

// DefaultRegion is where the map opens when nothing is configured
var DefaultRegion = Region{
	Latitude:       -26.280447,
	Longitude:      27.813399,
	LatitudeDelta:  0.0922,
	LongitudeDelta: 0.0421,
}

// Marker is one pin on the map
type Marker struct {
	ID        int64   `json:"id"`
	URI       string  `json:"uri"`
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapView places located images on a map
type MapView struct {
	repo   domain.ImageRepository
	region Region
}

// NewMapView creates a MapView opening at region
func NewMapView(repo domain.ImageRepository, region Region) *MapView {
	return &MapView{repo: repo, region: region}
}

// Region returns the initial region
func (m *MapView) Region() Region {
	return m.region
}

// Markers returns one marker per image with both coordinates, newest first
func (m *MapView) Markers(ctx context.Context) ([]Marker, error) {
	images, err := m.repo.ListWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}
	markers := make([]Marker, 0, len(images))
	for _, img := range images {
		if !img.HasCoordinates() {
			continue
		}
		markers = append(markers, Marker{
			ID:        img.ID,
			URI:       img.URI,
			Title:     fmt.Sprintf("Image %d", img.ID),
			Latitude:  *img.Latitude,
			Longitude: *img.Longitude,
		})
	}
	return markers, nil
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON encodes markers as a FeatureCollection of points
func GeoJSON(markers []Marker) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(markers))}
	for _, mk := range markers {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			// GeoJSON positions are longitude first
			Geometry: geometry{Type: "Point", Coordinates: [2]float64{mk.Longitude, mk.Latitude}},
			Properties: map[string]any{
				"id":    mk.ID,
				"uri":   mk.URI,
				"title": mk.Title,
			},
		})
	}
	return json.Marshal(fc)
}
