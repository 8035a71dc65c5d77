// Package web serves the gallery and map pages, the media library and a small
// JSON API.
package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lewtec/geogallery/internal/apperr"
	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/domain"
	"github.com/lewtec/geogallery/internal/gallery"
)

// DefaultMaxUploadSize bounds the capture form
const DefaultMaxUploadSize = 32 << 20

// notices that may be shown through ?notice=
var notices = map[string]bool{
	"captured":         true,
	"deleted":          true,
	"cancelled":        true,
	"capture_failed":   true,
	"camera_denied":    true,
	"camera_timeout":   true,
	"media_denied":     true,
	"invalid_location": true,
	"write_failed":     true,
}

// Server holds the HTTP handlers
type Server struct {
	gallery *gallery.Gallery
	maps    *gallery.MapView
	media   *capture.MediaLibrary
	pages   *Pages

	MaxUploadSize int64
}

// NewServer creates a Server. media may be nil when images are not served locally.
func NewServer(g *gallery.Gallery, maps *gallery.MapView, media *capture.MediaLibrary) (*Server, error) {
	pages, err := NewPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		gallery:       g,
		maps:          maps,
		media:         media,
		pages:         pages,
		MaxUploadSize: DefaultMaxUploadSize,
	}, nil
}

// Handler returns the router with logging, recovery and localisation applied
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(HTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(i18nMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "not_found")
	})

	r.Get("/", s.indexHandler)
	r.Post("/capture", s.captureHandler)
	r.Get("/images/{id}", s.previewHandler)
	r.Post("/images/{id}/delete", s.deleteHandler)
	r.Get("/map", s.mapHandler)
	r.Get("/map/markers.geojson", s.geoJSONHandler)
	r.Get("/media/{name}", s.mediaHandler)
	r.Get("/media/{name}/thumb", s.thumbnailHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/images", s.apiImagesHandler)
		r.Get("/images/count", s.apiCountHandler)
	})
	return r
}

type imageView struct {
	ID              int64
	Src             string
	Thumb           string
	Description     string
	DescriptionHTML template.HTML
	Located         bool
	Latitude        float64
	Longitude       float64
	TimestampISO    string
	TimestampLabel  string
}

func (s *Server) view(img *domain.ImageRecord) imageView {
	v := imageView{
		ID:              img.ID,
		Src:             img.URI,
		Thumb:           img.URI,
		Description:     img.Description,
		DescriptionHTML: Markdown(img.Description),
		Located:         img.HasCoordinates(),
		TimestampISO:    img.Timestamp.Format(time.RFC3339),
		TimestampLabel:  img.Timestamp.Local().Format("2006-01-02 15:04"),
	}
	if v.Located {
		v.Latitude, v.Longitude = *img.Latitude, *img.Longitude
	}
	if src, thumb, ok := s.mediaURLs(img.URI); ok {
		v.Src, v.Thumb = src, thumb
	}
	return v
}

// mediaURLs maps a library URI to the routes serving it
func (s *Server) mediaURLs(uri string) (string, string, bool) {
	if s.media == nil {
		return "", "", false
	}
	name, err := s.media.NameFromURI(uri)
	if err != nil {
		return "", "", false
	}
	src := "/media/" + url.PathEscape(name)
	return src, src + "/thumb", true
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	images, err := s.gallery.Search(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("while listing images")
		s.renderError(w, r, http.StatusInternalServerError, "error_message")
		return
	}

	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, s.view(img))
	}
	s.render(w, r, http.StatusOK, "index", map[string]any{
		"Title":      Localize(ctx, "gallery_title"),
		"Query":      query,
		"Images":     views,
		"CountLabel": LocalizeCount(ctx, "gallery_count", int64(len(views))),
		"Notice":     noticeFromRequest(r),
	})
}

func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := imageID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "not_found")
		return
	}
	img, err := s.gallery.Preview(ctx, id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("id", id).Msg("while fetching image")
		s.renderError(w, r, http.StatusInternalServerError, "error_message")
		return
	}
	if img == nil {
		s.renderError(w, r, http.StatusNotFound, "not_found")
		return
	}
	s.render(w, r, http.StatusOK, "preview", map[string]any{
		"Title": Localize(ctx, "preview_title") + " " + strconv.FormatInt(img.ID, 10),
		"Image": s.view(img),
	})
}

func (s *Server) captureHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)
	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			log.Ctx(ctx).Warn().Err(err).Msg("while parsing capture form")
			http.Error(w, "invalid capture form", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid capture form", http.StatusBadRequest)
			return
		}
	}

	locator, err := parseLocation(r.FormValue("latitude"), r.FormValue("longitude"))
	if err != nil {
		redirectWithNotice(w, r, noticeFor(err))
		return
	}

	camera := capture.ReaderCamera{}
	if r.MultipartForm != nil {
		file, header, err := r.FormFile("photo")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			http.Error(w, "invalid photo", http.StatusBadRequest)
			return
		default:
			defer file.Close()
			camera = capture.ReaderCamera{Reader: file, Name: header.Filename}
		}
	}

	img, err := s.gallery.CaptureAndSave(ctx, camera, locator, strings.TrimSpace(r.FormValue("description")))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("capture failed")
		redirectWithNotice(w, r, noticeFor(err))
		return
	}
	log.Ctx(ctx).Info().Int64("id", img.ID).Msg("image captured")
	redirectWithNotice(w, r, "captured")
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := imageID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "not_found")
		return
	}
	if err := s.gallery.Delete(ctx, id); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("id", id).Msg("while deleting image")
		redirectWithNotice(w, r, "write_failed")
		return
	}
	redirectWithNotice(w, r, "deleted")
}

type markerView struct {
	gallery.Marker
	Thumb string
}

func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	markers, err := s.maps.Markers(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("while listing markers")
		s.renderError(w, r, http.StatusInternalServerError, "error_message")
		return
	}
	views := make([]markerView, 0, len(markers))
	for _, m := range markers {
		v := markerView{Marker: m, Thumb: m.URI}
		if _, thumb, ok := s.mediaURLs(m.URI); ok {
			v.Thumb = thumb
		}
		views = append(views, v)
	}
	s.render(w, r, http.StatusOK, "map", map[string]any{
		"Title":   Localize(ctx, "map_title"),
		"Region":  s.maps.Region(),
		"Markers": views,
	})
}

func (s *Server) geoJSONHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	markers, err := s.maps.Markers(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("while listing markers")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data, err := gallery.GeoJSON(markers)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (s *Server) mediaHandler(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		http.NotFound(w, r)
		return
	}
	name := chi.URLParam(r, "name")
	f, err := s.media.Open(name)
	if err != nil {
		s.mediaError(w, r, name, err)
		return
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, time.Time{}, f)
}

func (s *Server) thumbnailHandler(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		http.NotFound(w, r)
		return
	}
	name := chi.URLParam(r, "name")
	f, err := s.media.Thumbnail(r.Context(), name)
	if err != nil {
		s.mediaError(w, r, name, err)
		return
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name+".jpg", time.Time{}, f)
}

func (s *Server) mediaError(w http.ResponseWriter, r *http.Request, name string, err error) {
	if errors.Is(err, capture.ErrNotInLibrary) || errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Str("name", name).Msg("while serving media")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

type apiImage struct {
	ID          int64     `json:"id"`
	URI         string    `json:"uri"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

func (s *Server) apiImagesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	images, err := s.gallery.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("while listing images")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": apperr.UserMessage(err, "internal error")})
		return
	}
	ret := make([]apiImage, 0, len(images))
	for _, img := range images {
		ret = append(ret, apiImage{
			ID:          img.ID,
			URI:         img.URI,
			Latitude:    img.Latitude,
			Longitude:   img.Longitude,
			Timestamp:   img.Timestamp,
			Description: img.Description,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) apiCountHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.gallery.Count(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("while counting images")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": apperr.UserMessage(err, "internal error")})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.Render(r.Context(), w, page, languageFromRequest(r), data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("while rendering page")
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, messageID string) {
	ctx := r.Context()
	title := Localize(ctx, "error_title")
	if status == http.StatusNotFound {
		title = Localize(ctx, "not_found")
	}
	s.render(w, r, status, "error", map[string]any{
		"Title":   title,
		"Message": Localize(ctx, messageID),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, notice string) {
	http.Redirect(w, r, "/?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func noticeFromRequest(r *http.Request) string {
	key := r.URL.Query().Get("notice")
	if !notices[key] {
		return ""
	}
	return Localize(r.Context(), "notice_"+key)
}

// noticeFor maps a capture failure to the notice shown after the redirect
func noticeFor(err error) string {
	switch {
	case errors.Is(err, capture.ErrCaptureCancelled):
		return "cancelled"
	case errors.Is(err, apperr.ErrCameraDenied):
		return "camera_denied"
	case errors.Is(err, apperr.ErrCameraTimeout):
		return "camera_timeout"
	case errors.Is(err, apperr.ErrMediaLibraryDenied):
		return "media_denied"
	case errors.Is(err, apperr.ErrPartialCoordinates), errors.Is(err, apperr.ErrCoordinatesOutOfRange):
		return "invalid_location"
	case errors.Is(err, apperr.WriteError):
		return "write_failed"
	}
	return "capture_failed"
}

func imageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// parseLocation reads the optional coordinate fields. Both empty means "use
// the default locator".
func parseLocation(latitude, longitude string) (capture.Locator, error) {
	latitude, longitude = strings.TrimSpace(latitude), strings.TrimSpace(longitude)
	if latitude == "" && longitude == "" {
		return nil, nil
	}
	if latitude == "" || longitude == "" {
		return nil, apperr.ErrPartialCoordinates
	}
	lat, err := strconv.ParseFloat(latitude, 64)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.WriteError, apperr.ErrCoordinatesOutOfRange.Code, "latitude is not a number")
	}
	lon, err := strconv.ParseFloat(longitude, 64)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.WriteError, apperr.ErrCoordinatesOutOfRange.Code, "longitude is not a number")
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperr.ErrCoordinatesOutOfRange
	}
	return capture.FixedLocator{Latitude: lat, Longitude: lon}, nil
}
