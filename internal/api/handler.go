// Package api provides the HTTP handler for single-image upload requests.
//
// A request carries one multipart file under the field name "image". The
// handler compresses it to the configured target size and publishes the
// result to the storage collaborator, returning a JSON body with the
// access URL. Requests are independent: no state is shared between them.
package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/imgpress/imgpress/internal/compressor"
	"github.com/imgpress/imgpress/internal/storage"
)

// FileField is the multipart form field the upload must arrive under.
const FileField = "image"

// Handler serves POST image uploads.
type Handler struct {
	cfg       compressor.Config
	publisher storage.Publisher
	namespace string
	maxUpload int64
}

// NewHandler creates an upload handler. namespace is the storage folder
// uploads are published under; maxUpload caps the accepted request size
// in bytes.
func NewHandler(cfg compressor.Config, publisher storage.Publisher, namespace string, maxUpload int64) *Handler {
	return &Handler{
		cfg:       cfg,
		publisher: publisher,
		namespace: namespace,
		maxUpload: maxUpload,
	}
}

type uploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	URL           string `json:"url"`
	PublicID      string `json:"public_id"`
	Bytes         int    `json:"bytes"`
	Format        string `json:"format"`
	QualityUsed   int    `json:"qualityUsed"`
	TargetReached bool   `json:"targetReached"`
}

// ServeHTTP accepts POST multipart uploads; all other methods are rejected.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.handleUpload(w, r)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("path", r.URL.Path).Msg("Handler entry: upload")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondFailure(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respondFailure(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(FileField)
	if err != nil {
		respondFailure(w, http.StatusBadRequest, `file field "image" is required`)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		log.Warn().Str("content_type", contentType).Msg("Rejected non-image upload")
		respondFailure(w, http.StatusUnsupportedMediaType, "only image uploads are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondFailure(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	log.Info().
		Str("filename", header.Filename).
		Str("content_type", contentType).
		Int("size", len(data)).
		Msg("Upload received")

	result, err := compressor.Compress(data, h.cfg)
	if err != nil {
		var decodeErr *compressor.DecodeError
		if errors.As(err, &decodeErr) {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("Upload could not be decoded")
			respondFailure(w, http.StatusUnsupportedMediaType, "unsupported or corrupt image")
			return
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("Image encoding failed")
		respondFailure(w, http.StatusInternalServerError, "image compression failed")
		return
	}

	published, err := h.publisher.Publish(r.Context(), result.Data, h.namespace)
	if err != nil {
		status := http.StatusInternalServerError
		message := "failed to store image"
		var pubErr *storage.PublishError
		if errors.As(err, &pubErr) {
			if pubErr.StatusCode > 0 {
				status = pubErr.StatusCode
			}
			message = pubErr.Message
		}
		log.Error().Err(err).Int("status", status).Msg("Publish failed")
		respondFailure(w, status, message)
		return
	}

	log.Info().
		Str("public_id", published.ID).
		Int("bytes", len(result.Data)).
		Int("quality", result.Quality).
		Bool("target_reached", result.TargetReached).
		Msg("Upload complete")

	respondJSON(w, http.StatusOK, uploadResponse{
		Success:       true,
		Message:       "image uploaded",
		URL:           published.URL,
		PublicID:      published.ID,
		Bytes:         len(result.Data),
		Format:        result.Format,
		QualityUsed:   result.Quality,
		TargetReached: result.TargetReached,
	})
}
