package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/pocketnewz/internal/auth"
	"github.com/hitoshi/pocketnewz/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// IssueSession は指定ユーザーのセッションを発行する。
	IssueSession(ctx context.Context, userID string) (*model.Session, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
	// GetCurrentUser はセッションから現在のユーザーを取得する。
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
	CookieDomain string
	CookieMaxAge int
}

// AuthHandler はセッション管理のHTTPハンドラー。
// セッション発行はIdPからの署名付きコールバックでのみ行う。
type AuthHandler struct {
	service  AuthServiceInterface
	verifier *auth.WebhookVerifier
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, verifier *auth.WebhookVerifier, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		verifier: verifier,
		config:   config,
	}
}

// sessionRequest はセッション発行リクエストのボディ。
type sessionRequest struct {
	UserID string `json:"user_id"`
}

// userResponse は現在ユーザーのレスポンス。
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// CreateSession はIdPの署名付きコールバックからセッションを発行する。
// POST /auth/sessions
// ボディのHMAC署名をX-Identity-Signatureヘッダーで検証する。
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64*1024))
	if err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if !h.verifier.VerifySignature(body, r.Header.Get(auth.SignatureHeader)) {
		writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     "SIGNATURE_INVALID",
			Message:  "署名の検証に失敗しました。",
			Category: "auth",
			Action:   "正しい署名でリクエストしてください。",
		})
		return
	}

	var req sessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.UserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("user_idが空です"))
		return
	}

	session, err := h.service.IssueSession(r.Context(), req.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.CookieMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusCreated)
}

// Logout はセッションを破棄し、Cookieを削除する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		PhotoURL: user.PhotoURL,
	})
}
