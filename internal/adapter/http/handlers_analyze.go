package adapthttp

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"nutriscan/internal/app"
)

const (
	maxImageBytes     = 10 << 20
	maxMultipartBytes = maxImageBytes + 1<<20
)

var errImageTooLarge = errors.New("image must be at most 10 MB")

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		FoodName string `json:"foodName" validate:"required"`
	}
	if err := s.decodeAndValidate(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The upstream call runs to completion even if the client goes away.
	res, err := s.analysis.AnalyzeByName(context.WithoutCancel(r.Context()), requesterFromContext(r), body.FoodName)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errImageTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, app.ErrImageRequired)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, app.ErrImageRequired)
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errImageTooLarge)
		return
	}

	res, err := s.analysis.AnalyzeByImage(context.WithoutCancel(r.Context()), requesterFromContext(r), app.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeAnalysisError maps service errors to status codes. Upstream and
// storage failures share one generic message.
func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrFoodNameRequired), errors.Is(err, app.ErrImageRequired):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, app.ErrUnsupportedImage):
		writeError(w, http.StatusUnsupportedMediaType, err)
	case errors.Is(err, app.ErrAnalysisInProgress):
		writeError(w, http.StatusConflict, err)
	default:
		log.Printf("analyze: %v", err)
		writeError(w, http.StatusBadGateway, app.ErrAnalysisFailed)
	}
}
