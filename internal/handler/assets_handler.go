package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/pocketnewz/internal/blob"
	"github.com/hitoshi/pocketnewz/internal/model"
)

// NewzFinder はニュースの読み取りインターフェース。
// repository.NewzRepositoryの部分集合として定義する。
type NewzFinder interface {
	FindByID(ctx context.Context, id string) (*model.NewzItem, error)
}

// AssetsHandler はメディアアセットのHTTPハンドラー。
// 複製・署名付きURL発行・署名検証付き読み取りを提供する。
type AssetsHandler struct {
	store    blob.Store
	signer   *blob.Signer
	newzRepo NewzFinder
	urlTTL   time.Duration
}

// NewAssetsHandler はAssetsHandlerを生成する。
func NewAssetsHandler(store blob.Store, signer *blob.Signer, newzRepo NewzFinder, urlTTL time.Duration) *AssetsHandler {
	return &AssetsHandler{
		store:    store,
		signer:   signer,
		newzRepo: newzRepo,
		urlTTL:   urlTTL,
	}
}

// assetHandleResponse は複製されたオブジェクトのレスポンス。
type assetHandleResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Clone は指定ニュースのメディアを別ニュースIDの配下へ複製する。認証不要。
// POST /assets/clone?oldNewzId=xxx&newNewzId=yyy
// POST以外のメソッドは400を返す。
func (h *AssetsHandler) Clone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("POSTメソッドでリクエストしてください"))
		return
	}

	oldID := r.URL.Query().Get("oldNewzId")
	newID := r.URL.Query().Get("newNewzId")
	if oldID == "" || newID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("oldNewzIdとnewNewzIdの両方が必要です"))
		return
	}

	handles, err := blob.CloneNewzAssets(r.Context(), h.store, oldID, newID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]assetHandleResponse, 0, len(handles))
	for _, handle := range handles {
		resp = append(resp, assetHandleResponse{Path: handle.Path, Size: handle.Size})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"cloned": resp})
}

// SignedURL は公開ニュースのメディアへの期限付き署名付きURLを発行する。認証不要。
// GET /assets/url?path=NewzReels/<newz_id>/<name>
// 非公開ニュースのメディアには発行しない。
func (h *AssetsHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("pathが空です"))
		return
	}

	newzID := newzIDFromAssetPath(path)
	if newzID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("不正なアセットパスです"))
		return
	}

	item, err := h.newzRepo.FindByID(r.Context(), newzID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if item == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNewzNotFoundError(newzID))
		return
	}
	if !item.IsPublic {
		handleServiceError(w, model.NewNotPublicError(newzID))
		return
	}

	signed, err := h.signer.SignedReadURL(blob.Handle{Path: path}, h.urlTTL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": signed})
}

// Get は署名付きURLを検証してオブジェクトを配信する。認証不要。
// GET /assets/get?path=xxx&exp=123&sig=abc
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	sig := r.URL.Query().Get("sig")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil || path == "" || sig == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("署名パラメータが不正です"))
		return
	}

	if !h.signer.VerifyReadURL(path, exp, sig) {
		writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     "SIGNATURE_INVALID",
			Message:  "署名が無効または期限切れです。",
			Category: "auth",
			Action:   "署名付きURLを再発行してください。",
		})
		return
	}

	data, err := h.store.Get(r.Context(), path)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeNotFound,
			Message:  "指定されたアセットが見つかりません。",
			Category: "asset",
			Action:   "パスを確認してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// newzIDFromAssetPath は "NewzReels/<newz_id>/..." 形式のパスからニュースIDを取り出す。
// 形式が一致しない場合は空文字列を返す。
func newzIDFromAssetPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != blob.NewzReelsPrefix {
		return ""
	}
	return parts[1]
}
