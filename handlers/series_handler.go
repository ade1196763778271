package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

// maxLogoBytes — предел размера загружаемого логотипа.
const maxLogoBytes = 5 << 20 // 5 MB

type SeriesHandler struct {
	seriesService services.SeriesService
	logger        *slog.Logger
}

func NewSeriesHandler(seriesService services.SeriesService, logger *slog.Logger) *SeriesHandler {
	return &SeriesHandler{seriesService: seriesService, logger: logger}
}

// List обрабатывает GET /api/series.
func (h *SeriesHandler) List(w http.ResponseWriter, r *http.Request) {
	series, err := h.seriesService.List(r.Context())
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// Create обрабатывает POST /api/series.
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateSeriesInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.seriesService.Create(r.Context(), input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, series)
}

// Get обрабатывает GET /api/series/{seriesID}: серия с этапами и зачетами.
func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.seriesService.GetDetail(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// Update обрабатывает PATCH /api/series/{seriesID}.
func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.UpdateSeriesInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.seriesService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// Delete обрабатывает DELETE /api/series/{seriesID}.
func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.seriesService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo обрабатывает POST /api/series/{seriesID}/logo
// (multipart/form-data, поле "logo").
func (h *SeriesHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	series, err := h.seriesService.UploadLogo(r.Context(), id, header.Filename, contentType, file)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// DeleteLogo обрабатывает DELETE /api/series/{seriesID}/logo.
func (h *SeriesHandler) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.seriesService.DeleteLogo(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
