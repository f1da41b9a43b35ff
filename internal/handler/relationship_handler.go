package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pocketnewz/internal/middleware"
	"github.com/hitoshi/pocketnewz/internal/relationship"
)

// RelationshipServiceInterface はフォロー・コラボレーションハンドラーが必要とするサービスインターフェース。
type RelationshipServiceInterface interface {
	// ToggleFollow はフォロー状態を反転し、結果のフォローセットとフォロワー数を返す。
	ToggleFollow(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error)
	// InviteContributor はステーションへの投稿権限を付与し、コラボレーションのパスを返す。
	InviteContributor(ctx context.Context, ownerUID, contributorID, stationID string) (string, error)
}

// RelationshipHandler はフォロー・コラボレーションのHTTPハンドラー。
type RelationshipHandler struct {
	service RelationshipServiceInterface
}

// NewRelationshipHandler はRelationshipHandlerを生成する。
func NewRelationshipHandler(service RelationshipServiceInterface) *RelationshipHandler {
	return &RelationshipHandler{service: service}
}

// toggleFollowRequest はフォロー切り替えリクエストのボディ。
type toggleFollowRequest struct {
	FollowID string `json:"follow_id"`
}

// toggleFollowResponse はフォロー切り替えのレスポンス。
type toggleFollowResponse struct {
	Following     bool     `json:"following"`
	FollowingIDs  []string `json:"following_ids"`
	FollowerCount int      `json:"follower_count"`
}

// inviteContributorRequest はコラボレーション招待リクエストのボディ。
type inviteContributorRequest struct {
	ContributorID string `json:"contributor_id"`
}

// inviteContributorResponse はコラボレーション招待のレスポンス。
type inviteContributorResponse struct {
	Path string `json:"path"`
}

// ToggleFollow はフォロー状態を反転する。
// POST /api/follows/toggle
func (h *RelationshipHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req toggleFollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	result, err := h.service.ToggleFollow(r.Context(), userID, req.FollowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toggleFollowResponse{
		Following:     result.Following,
		FollowingIDs:  result.FollowingIDs,
		FollowerCount: result.FollowerCount,
	})
}

// InviteContributor はステーションへの投稿権限を付与する。
// POST /api/stations/:id/collaborators
func (h *RelationshipHandler) InviteContributor(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stationID := chi.URLParam(r, "id")

	var req inviteContributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	path, err := h.service.InviteContributor(r.Context(), userID, req.ContributorID, stationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inviteContributorResponse{Path: path})
}
