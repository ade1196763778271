package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cyclocross/stevenscup-app/services"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// errorResponse — единый формат ошибок API.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// readJSON декодирует тело запроса, ограничивая размер и запрещая
// неизвестные поля.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains malformed JSON (at position %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("body contains invalid value for field %q", typeErr.Field)
			}
			return fmt.Errorf("body contains invalid value (at position %d)", typeErr.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		default:
			return err
		}
	}

	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// idParam достает числовой параметр пути.
func idParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

// mapServiceError переводит ошибки сервисного слоя в HTTP-статусы.
func mapServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSeriesNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrContestNotFound),
		errors.Is(err, services.ErrRaceNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrParticipationNotFound),
		errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, services.ErrAssignmentConflict),
		errors.Is(err, services.ErrSeriesNameConflict),
		errors.Is(err, services.ErrParticipantBibConflict),
		errors.Is(err, services.ErrUserEmailConflict):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrAuthInvalidCredentials),
		errors.Is(err, services.ErrAuthSessionInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrSeriesNameRequired),
		errors.Is(err, services.ErrSeriesSeasonRequired),
		errors.Is(err, services.ErrSeriesInvalidStatus),
		errors.Is(err, services.ErrEventNameRequired),
		errors.Is(err, services.ErrEventDateRequired),
		errors.Is(err, services.ErrContestNameRequired),
		errors.Is(err, services.ErrContestInvalidYearRange),
		errors.Is(err, services.ErrParticipantNameRequired),
		errors.Is(err, services.ErrParticipantInvalidBib),
		errors.Is(err, services.ErrRaceInvalidStatus),
		errors.Is(err, services.ErrOnlyFinishedReorder),
		errors.Is(err, services.ErrImportNoContests):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrImportFetchFailed):
		writeError(w, http.StatusBadGateway, err.Error())

	default:
		slog.Error("unhandled service error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
