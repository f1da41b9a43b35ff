package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pocketnewz/internal/lifecycle"
	"github.com/hitoshi/pocketnewz/internal/middleware"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// NewzServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewzServiceInterface interface {
	// CreateNewz はニュースを作成する。
	CreateNewz(ctx context.Context, posterID string, req lifecycle.CreateNewzRequest) (*model.NewzItem, error)
	// DeleteNewz はニュースを削除する。所有者または投稿者のみが削除できる。
	DeleteNewz(ctx context.Context, callerID, newzID string) error
	// AddComment はニュースへコメントを投稿する。
	AddComment(ctx context.Context, authorID, newzID, body string) (*model.Comment, error)
	// ListComments はニュースのコメント一覧を返す。
	ListComments(ctx context.Context, newzID string) ([]*model.Comment, error)
}

// NewzHandler はニュース管理のHTTPハンドラー。
type NewzHandler struct {
	service NewzServiceInterface
}

// NewNewzHandler はNewzHandlerを生成する。
func NewNewzHandler(service NewzServiceInterface) *NewzHandler {
	return &NewzHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// createNewzRequest はニュース作成リクエストのボディ。
type createNewzRequest struct {
	OwnerID    string   `json:"owner_id,omitempty"`
	Title      string   `json:"title"`
	Caption    string   `json:"caption,omitempty"`
	IsPublic   bool     `json:"is_public"`
	StationIDs []string `json:"station_ids,omitempty"`
}

// newzResponse はニュースのレスポンス。
type newzResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	PosterID   string    `json:"poster_id"`
	Title      string    `json:"title"`
	Caption    string    `json:"caption,omitempty"`
	IsPublic   bool      `json:"is_public"`
	UploadDate time.Time `json:"upload_date"`
	StationIDs []string  `json:"station_ids,omitempty"`
}

// commentRequest はコメント投稿リクエストのボディ。
type commentRequest struct {
	Body string `json:"body"`
}

// commentResponse はコメントのレスポンス。
type commentResponse struct {
	ID        string    `json:"id"`
	NewzID    string    `json:"newz_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toNewzResponse(item *model.NewzItem) newzResponse {
	return newzResponse{
		ID:         item.ID,
		OwnerID:    item.OwnerID,
		PosterID:   item.PosterID,
		Title:      item.Title,
		Caption:    item.Caption,
		IsPublic:   item.IsPublic,
		UploadDate: item.UploadDate,
		StationIDs: item.StationIDs,
	}
}

// CreateNewz はニュースを作成する。
// POST /api/newz
func (h *NewzHandler) CreateNewz(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createNewzRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	item, err := h.service.CreateNewz(r.Context(), userID, lifecycle.CreateNewzRequest{
		OwnerID:    req.OwnerID,
		Title:      req.Title,
		Caption:    req.Caption,
		IsPublic:   req.IsPublic,
		StationIDs: req.StationIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toNewzResponse(item))
}

// DeleteNewz はニュースを削除する。
// DELETE /api/newz/:id
func (h *NewzHandler) DeleteNewz(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	newzID := chi.URLParam(r, "id")
	if err := h.service.DeleteNewz(r.Context(), userID, newzID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment はニュースへコメントを投稿する。
// POST /api/newz/:id/comments
func (h *NewzHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	newzID := chi.URLParam(r, "id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	comment, err := h.service.AddComment(r.Context(), userID, newzID, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(commentResponse{
		ID:        comment.ID,
		NewzID:    comment.NewzID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	})
}

// ListComments はニュースのコメント一覧を返す。
// GET /api/newz/:id/comments
func (h *NewzHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	newzID := chi.URLParam(r, "id")

	comments, err := h.service.ListComments(r.Context(), newzID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, commentResponse{
			ID:        c.ID,
			NewzID:    c.NewzID,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"comments": resp})
}
