package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pocketnewz/internal/middleware"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// StationServiceInterface はステーションハンドラーが必要とするサービスインターフェース。
type StationServiceInterface interface {
	// CreateStation はステーションを作成する。
	CreateStation(ctx context.Context, ownerID, title string, isPublic, isCollaborative bool) (*model.Station, error)
	// DeleteStation はステーションを削除する。所有者のみが削除できる。
	DeleteStation(ctx context.Context, callerID, stationID string) error
}

// StationHandler はステーション管理のHTTPハンドラー。
type StationHandler struct {
	service StationServiceInterface
}

// NewStationHandler はStationHandlerを生成する。
func NewStationHandler(service StationServiceInterface) *StationHandler {
	return &StationHandler{service: service}
}

// createStationRequest はステーション作成リクエストのボディ。
type createStationRequest struct {
	Title           string `json:"title"`
	IsPublic        bool   `json:"is_public"`
	IsCollaborative bool   `json:"is_collaborative"`
}

// stationResponse はステーションのレスポンス。
type stationResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	IsPublic        bool      `json:"is_public"`
	IsCollaborative bool      `json:"is_collaborative"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateStation はステーションを作成する。
// POST /api/stations
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	station, err := h.service.CreateStation(r.Context(), userID, req.Title, req.IsPublic, req.IsCollaborative)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stationResponse{
		ID:              station.ID,
		OwnerID:         station.OwnerID,
		Title:           station.Title,
		IsPublic:        station.IsPublic,
		IsCollaborative: station.IsCollaborative,
		CreatedAt:       station.CreatedAt,
	})
}

// DeleteStation はステーションを削除する。
// DELETE /api/stations/:id
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stationID := chi.URLParam(r, "id")
	if err := h.service.DeleteStation(r.Context(), userID, stationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
