package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pocketnewz/internal/middleware"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// EngagementServiceInterface はエンゲージメントハンドラーが必要とするサービスインターフェース。
type EngagementServiceInterface interface {
	// RecordView は視聴を記録し、現在の視聴数を返す。
	RecordView(ctx context.Context, viewerID, newzID string) (int, error)
	// RecordSharedView は共有リンク経由の視聴を記録し、現在の視聴数を返す。
	RecordSharedView(ctx context.Context, newzID string) (int, error)
	// RecordShare は共有を記録し、現在の共有数を返す。
	RecordShare(ctx context.Context, callerID, newzID string) (int, error)
	// SubmitRating は評価を登録し、新しい平均評価を返す。
	SubmitRating(ctx context.Context, raterID, newzID string, score float64) (float64, error)
}

// EngagementHandler はエンゲージメント操作のHTTPハンドラー。
type EngagementHandler struct {
	service EngagementServiceInterface
}

// NewEngagementHandler はEngagementHandlerを生成する。
func NewEngagementHandler(service EngagementServiceInterface) *EngagementHandler {
	return &EngagementHandler{service: service}
}

// ratingRequest は評価リクエストのボディ。
type ratingRequest struct {
	Score float64 `json:"score"`
}

// viewsResponse は視聴数のレスポンス。
type viewsResponse struct {
	NewzID string `json:"newz_id"`
	Views  int    `json:"views"`
}

// sharesResponse は共有数のレスポンス。
type sharesResponse struct {
	NewzID string `json:"newz_id"`
	Shares int    `json:"shares"`
}

// ratingResponse は平均評価のレスポンス。
type ratingResponse struct {
	NewzID    string  `json:"newz_id"`
	AvgRating float64 `json:"avg_rating"`
}

// RecordView は視聴を記録する。
// POST /api/newz/:id/view
func (h *EngagementHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	newzID := chi.URLParam(r, "id")
	views, err := h.service.RecordView(r.Context(), userID, newzID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewsResponse{NewzID: newzID, Views: views})
}

// RecordShare は共有を記録する。
// POST /api/newz/:id/share
func (h *EngagementHandler) RecordShare(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	newzID := chi.URLParam(r, "id")
	shares, err := h.service.RecordShare(r.Context(), userID, newzID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sharesResponse{NewzID: newzID, Shares: shares})
}

// SubmitRating は評価を登録する。
// POST /api/newz/:id/rating
func (h *EngagementHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	newzID := chi.URLParam(r, "id")

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	avg, err := h.service.SubmitRating(r.Context(), userID, newzID, req.Score)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ratingResponse{NewzID: newzID, AvgRating: avg})
}

// SharedView は共有リンク経由の視聴を記録する。認証不要。
// POST /share/view?newz_id=xxx（ボディのnewz_idも受け付ける）
// POST以外のメソッドは400を返す。
func (h *EngagementHandler) SharedView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("POSTメソッドでリクエストしてください"))
		return
	}

	newzID := r.URL.Query().Get("newz_id")
	if newzID == "" {
		var body struct {
			NewzID string `json:"newz_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			newzID = body.NewzID
		}
	}
	if newzID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("newz_idが空です"))
		return
	}

	views, err := h.service.RecordSharedView(r.Context(), newzID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewsResponse{NewzID: newzID, Views: views})
}
