// Package handlers implements the HTTP endpoints of the ledger API.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/autoledger/internal/api/middleware"
	"github.com/dvloznov/autoledger/internal/extract"
	"github.com/dvloznov/autoledger/internal/jobs"
)

// Extractor is the slice of the normalizer the handler needs; tests swap in
// a fake.
type Extractor interface {
	Normalize(ctx context.Context, input extract.Input) (extract.Draft, error)
}

// ExtractHandler handles extraction endpoints.
type ExtractHandler struct {
	extractor Extractor
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExtractHandler creates a new extraction handler.
func NewExtractHandler(extractor Extractor, publisher jobs.Publisher, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor: extractor,
		publisher: publisher,
		log:       log,
	}
}

type extractRequest struct {
	Text  string `json:"text"`
	Image *struct {
		Data     string `json:"data"` // base64
		MIMEType string `json:"mime_type"`
	} `json:"image"`
}

func (req *extractRequest) toInput() (extract.Input, error) {
	in := extract.Input{Text: req.Text}
	if req.Image != nil {
		raw, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			return extract.Input{}, errors.New("image data is not valid base64")
		}
		in.Image = &extract.Image{Bytes: raw, MIMEType: req.Image.MIMEType}
	}
	return in, nil
}

// Extract handles POST /api/extract: one synchronous extraction.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := h.extractor.Normalize(r.Context(), input)
	if err != nil {
		var aiErr *extract.AIError
		switch {
		case errors.Is(err, extract.ErrEmptyInput):
			middleware.WriteError(w, http.StatusBadRequest, "Supply text or an image")
		case errors.As(err, &aiErr):
			h.log.Error().Err(err).Msg("AI extraction failed")
			middleware.WriteError(w, http.StatusBadGateway, "AI extraction failed")
		default:
			h.log.Error().Err(err).Msg("Extraction failed")
			middleware.WriteError(w, http.StatusInternalServerError, "Extraction failed")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, draft)
}

// EnqueueExtract handles POST /api/extract/jobs: asynchronous extraction.
func (h *ExtractHandler) EnqueueExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Text == "" && req.Image == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Supply text or an image")
		return
	}

	job := &jobs.ExtractJob{Text: req.Text}
	if req.Image != nil {
		raw, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "image data is not valid base64")
			return
		}
		job.ImageData = raw
		job.ImageMIMEType = req.Image.MIMEType
	}

	if err := h.publisher.PublishExtract(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}
