package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pocketnewz/internal/auth"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// maxWebhookBodySize はWebhookペイロードの最大サイズ。
const maxWebhookBodySize = 256 * 1024

// IdentityEventProcessor はアイデンティティイベント処理のインターフェース。
// lifecycle.Serviceの部分集合として定義する。
type IdentityEventProcessor interface {
	OnIdentityCreated(ctx context.Context, event *model.IdentityEvent)
	OnIdentityDeleted(ctx context.Context, event *model.IdentityEvent)
}

// IdentityHandler はIdP WebhookのHTTPハンドラー。
// バックグラウンド処理のセマンティクスを持つため、署名が検証できた
// リクエストには処理結果にかかわらず常に204を返す。
type IdentityHandler struct {
	processor IdentityEventProcessor
	verifier  *auth.WebhookVerifier
	logger    *slog.Logger
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(processor IdentityEventProcessor, verifier *auth.WebhookVerifier, logger *slog.Logger) *IdentityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityHandler{
		processor: processor,
		verifier:  verifier,
		logger:    logger,
	}
}

// HandleEvent はIdPからのアイデンティティイベントを処理する。
// POST /identity/events
func (h *IdentityHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if !h.verifier.VerifySignature(body, r.Header.Get(auth.SignatureHeader)) {
		h.logger.Warn("webhook signature verification failed")
		writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     "SIGNATURE_INVALID",
			Message:  "署名の検証に失敗しました。",
			Category: "auth",
			Action:   "正しい署名でリクエストしてください。",
		})
		return
	}

	event, err := auth.ParseIdentityEvent(body)
	if err != nil {
		// 署名済みだが解釈できないペイロード。ログに残して204を返す。
		h.logger.Warn("unparseable identity event",
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch event.Type {
	case model.IdentityCreated:
		h.processor.OnIdentityCreated(r.Context(), event)
	case model.IdentityDeleted:
		h.processor.OnIdentityDeleted(r.Context(), event)
	}

	w.WriteHeader(http.StatusNoContent)
}
