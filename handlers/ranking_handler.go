package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type RankingHandler struct {
	rankingService services.RankingService
	logger         *slog.Logger
}

func NewRankingHandler(rankingService services.RankingService, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{rankingService: rankingService, logger: logger}
}

// All обрабатывает GET /api/rankings: сводка по всем сериям, топ-10
// в каждом зачете.
func (h *RankingHandler) All(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.rankingService.GetAllSeriesRankings(r.Context())
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

// Series обрабатывает GET /api/series/{seriesID}/rankings: полные
// рейтинги всех зачетов серии.
func (h *RankingHandler) Series(w http.ResponseWriter, r *http.Request) {
	seriesID, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rankings, err := h.rankingService.GetSeriesRankings(r.Context(), seriesID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

// Contest обрабатывает GET /api/contests/{contestID}/rankings.
func (h *RankingHandler) Contest(w http.ResponseWriter, r *http.Request) {
	contestID, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.rankingService.GetContestRankingDetail(r.Context(), contestID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
