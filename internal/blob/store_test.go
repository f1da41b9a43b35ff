package blob

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	return NewFSStore(t.TempDir())
}

// ListByPrefixがプレフィックス配下のオブジェクトのみを返すことを検証
func TestFSStore_ListByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustPut(t, store, "NewzReels/newz-1/video.mp4", []byte("video"))
	mustPut(t, store, "NewzReels/newz-1/thumb.jpg", []byte("thumb"))
	mustPut(t, store, "NewzReels/newz-2/other.mp4", []byte("other"))

	handles, err := store.ListByPrefix(ctx, "NewzReels/newz-1")
	if err != nil {
		t.Fatalf("ListByPrefix returned error: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
	for _, h := range handles {
		if !strings.HasPrefix(h.Path, "NewzReels/newz-1/") {
			t.Errorf("unexpected path outside prefix: %s", h.Path)
		}
	}
}

// 存在しないプレフィックスの列挙が空の結果を返すことを検証
func TestFSStore_ListByPrefix_Missing(t *testing.T) {
	store := newTestStore(t)

	handles, err := store.ListByPrefix(context.Background(), "NewzReels/ghost")
	if err != nil {
		t.Fatalf("ListByPrefix returned error: %v", err)
	}
	if len(handles) != 0 {
		t.Errorf("expected empty result, got %d handles", len(handles))
	}
}

// ルート外へのパス脱出が拒否されることを検証
func TestFSStore_RejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "../escape.txt", []byte("x")); err == nil {
		t.Error("expected error for path traversal in Put")
	}
	if _, err := store.ListByPrefix(ctx, "/abs"); err == nil {
		t.Error("expected error for absolute path in ListByPrefix")
	}
	if err := store.DeleteByPrefix(ctx, "a/../../b"); err == nil {
		t.Error("expected error for traversal in DeleteByPrefix")
	}
}

// DeleteByPrefixが冪等であることを検証
func TestFSStore_DeleteByPrefix_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustPut(t, store, "NewzReels/newz-1/video.mp4", []byte("video"))

	if err := store.DeleteByPrefix(ctx, "NewzReels/newz-1"); err != nil {
		t.Fatalf("DeleteByPrefix returned error: %v", err)
	}
	// 2回目も成功する
	if err := store.DeleteByPrefix(ctx, "NewzReels/newz-1"); err != nil {
		t.Fatalf("second DeleteByPrefix returned error: %v", err)
	}

	handles, err := store.ListByPrefix(ctx, "NewzReels/newz-1")
	if err != nil {
		t.Fatalf("ListByPrefix returned error: %v", err)
	}
	if len(handles) != 0 {
		t.Errorf("expected no handles after delete, got %d", len(handles))
	}
}

// CloneNewzAssetsが旧プレフィックス配下の全オブジェクトを新プレフィックスへ複製することを検証
func TestCloneNewzAssets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustPut(t, store, "NewzReels/old-1/video.mp4", []byte("video-data"))
	mustPut(t, store, "NewzReels/old-1/thumb.jpg", []byte("thumb-data"))

	cloned, err := CloneNewzAssets(ctx, store, "old-1", "new-1")
	if err != nil {
		t.Fatalf("CloneNewzAssets returned error: %v", err)
	}
	if len(cloned) != 2 {
		t.Fatalf("expected 2 cloned handles, got %d", len(cloned))
	}

	handles, err := store.ListByPrefix(ctx, "NewzReels/new-1")
	if err != nil {
		t.Fatalf("ListByPrefix returned error: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 objects under new prefix, got %d", len(handles))
	}

	// 複製元は残る
	old, err := store.ListByPrefix(ctx, "NewzReels/old-1")
	if err != nil {
		t.Fatalf("ListByPrefix returned error: %v", err)
	}
	if len(old) != 2 {
		t.Errorf("source objects should remain, got %d", len(old))
	}
}

// 空IDでのクローンが拒否されることを検証
func TestCloneNewzAssets_RequiresBothIDs(t *testing.T) {
	store := newTestStore(t)

	if _, err := CloneNewzAssets(context.Background(), store, "", "new-1"); err == nil {
		t.Error("expected error for empty oldNewzId")
	}
	if _, err := CloneNewzAssets(context.Background(), store, "old-1", ""); err == nil {
		t.Error("expected error for empty newNewzId")
	}
}

// 署名付きURLの発行と検証のラウンドトリップを検証
func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", "http://localhost:8080")

	signed, err := signer.SignedReadURL(Handle{Path: "NewzReels/newz-1/video.mp4"}, 10*time.Minute)
	if err != nil {
		t.Fatalf("SignedReadURL returned error: %v", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("failed to parse signed URL: %v", err)
	}
	path := u.Query().Get("path")
	exp, err := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("failed to parse exp: %v", err)
	}
	sig := u.Query().Get("sig")

	if !signer.VerifyReadURL(path, exp, sig) {
		t.Error("valid signature should verify")
	}

	// 改ざんされたパスは検証に失敗する
	if signer.VerifyReadURL("NewzReels/other/video.mp4", exp, sig) {
		t.Error("tampered path should not verify")
	}

	// 別の秘密鍵では検証に失敗する
	other := NewSigner("other-secret", "http://localhost:8080")
	if other.VerifyReadURL(path, exp, sig) {
		t.Error("signature from different secret should not verify")
	}
}

// 期限切れURLが拒否されることを検証
func TestSigner_Expiry(t *testing.T) {
	signer := NewSigner("test-secret", "http://localhost:8080")

	signed, err := signer.SignedReadURL(Handle{Path: "NewzReels/newz-1/video.mp4"}, -time.Minute)
	if err != nil {
		t.Fatalf("SignedReadURL returned error: %v", err)
	}

	u, _ := url.Parse(signed)
	exp, _ := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	if signer.VerifyReadURL(u.Query().Get("path"), exp, u.Query().Get("sig")) {
		t.Error("expired URL should not verify")
	}
}

func mustPut(t *testing.T, store *FSStore, path string, data []byte) {
	t.Helper()
	if _, err := store.Put(context.Background(), path, data); err != nil {
		t.Fatalf("Put(%s) returned error: %v", path, err)
	}
}
