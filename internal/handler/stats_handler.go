package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// StatsFinder はnewzer_statsの読み取りインターフェース。
// repository.StatsRepositoryの部分集合として定義する。
type StatsFinder interface {
	FindByOwnerID(ctx context.Context, ownerID string) (*model.NewzerStats, error)
}

// StatsHandler はユーザー統計のHTTPハンドラー。
type StatsHandler struct {
	stats StatsFinder
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(stats StatsFinder) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// statsResponse はユーザー統計のレスポンス。
type statsResponse struct {
	OwnerID       string `json:"owner_id"`
	FollowerCount int    `json:"follower_count"`
	NewzCount     int    `json:"newz_count"`
	StationCount  int    `json:"station_count"`
}

// GetStats は指定ユーザーの非正規化カウンターを返す。
// GET /api/newzers/:id/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")

	stats, err := h.stats.FindByOwnerID(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if stats == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		OwnerID:       stats.OwnerID,
		FollowerCount: stats.FollowerCount,
		NewzCount:     stats.NewzCount,
		StationCount:  stats.StationCount,
	})
}
