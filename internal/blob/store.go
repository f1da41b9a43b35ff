// Package blob はメディアアセットのブロブストレージを提供する。
//
// ストアはプレフィックスベースの列挙・コピー・削除と署名付き読み取りURLを公開する。
// ニュースのメディアは "NewzReels/<newz_id>/" プレフィックス配下に格納される。
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NewzReelsPrefix はニュースメディアのルートプレフィックス。
const NewzReelsPrefix = "NewzReels"

// Handle はストア内の1オブジェクトへの参照を表す。
type Handle struct {
	Path string
	Size int64
}

// Name はパスの最終要素（オブジェクト名）を返す。
func (h Handle) Name() string {
	parts := strings.Split(h.Path, "/")
	return parts[len(parts)-1]
}

// Store はブロブストレージの操作インターフェース。
type Store interface {
	// ListByPrefix は指定プレフィックス配下の全オブジェクトを返す。
	ListByPrefix(ctx context.Context, prefix string) ([]Handle, error)

	// Copy はオブジェクトを指定パスへ複製し、新しいハンドルを返す。
	Copy(ctx context.Context, src Handle, destPath string) (Handle, error)

	// Put はオブジェクトを書き込み、ハンドルを返す。既存オブジェクトは上書きされる。
	Put(ctx context.Context, path string, data []byte) (Handle, error)

	// Get はオブジェクトの内容を返す。存在しない場合はエラーを返す。
	Get(ctx context.Context, path string) ([]byte, error)

	// DeleteByPrefix は指定プレフィックス配下の全オブジェクトを削除する。
	// 対象が存在しない場合もエラーにしない（冪等）。
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// NewzAssetPrefix は指定ニュースのメディアプレフィックスを返す。
func NewzAssetPrefix(newzID string) string {
	return NewzReelsPrefix + "/" + newzID
}

// FSStore はローカルファイルシステムをバックエンドとするStore実装。
type FSStore struct {
	root string
}

// NewFSStore はrootディレクトリ配下にオブジェクトを格納するFSStoreを生成する。
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// resolve はオブジェクトパスをファイルシステムパスに変換する。
// ルート外への脱出（".."や絶対パス）は拒否する。
func (s *FSStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty object path")
	}
	if strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid object path: %s", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

// ListByPrefix は指定プレフィックス配下の全オブジェクトをパス昇順で返す。
func (s *FSStore) ListByPrefix(ctx context.Context, prefix string) ([]Handle, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var handles []Handle
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		handles = append(handles, Handle{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i].Path < handles[j].Path })
	return handles, nil
}

// Copy はオブジェクトを指定パスへ複製し、新しいハンドルを返す。
func (s *FSStore) Copy(ctx context.Context, src Handle, destPath string) (Handle, error) {
	srcFS, err := s.resolve(src.Path)
	if err != nil {
		return Handle{}, err
	}
	destFS, err := s.resolve(destPath)
	if err != nil {
		return Handle{}, err
	}

	if err := os.MkdirAll(filepath.Dir(destFS), 0o755); err != nil {
		return Handle{}, fmt.Errorf("failed to create destination directory: %w", err)
	}

	in, err := os.Open(srcFS)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to open source object: %w", err)
	}
	defer in.Close()

	out, err := os.Create(destFS)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create destination object: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, in)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to copy object: %w", err)
	}

	return Handle{Path: destPath, Size: size}, nil
}

// Put はオブジェクトを書き込み、ハンドルを返す。既存オブジェクトは上書きされる。
func (s *FSStore) Put(ctx context.Context, path string, data []byte) (Handle, error) {
	fsPath, err := s.resolve(path)
	if err != nil {
		return Handle{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
		return Handle{}, fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(fsPath, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("failed to write object: %w", err)
	}
	return Handle{Path: path, Size: int64(len(data))}, nil
}

// Get はオブジェクトの内容を返す。存在しない場合はエラーを返す。
func (s *FSStore) Get(ctx context.Context, path string) ([]byte, error) {
	fsPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// DeleteByPrefix は指定プレフィックス配下の全オブジェクトを削除する。冪等。
func (s *FSStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	dir, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Store = (*FSStore)(nil)

// CloneNewzAssets はoldID配下の全メディアをnewID配下へ複製し、新しいハンドル群を返す。
// 複製元が空の場合は空のスライスを返す。
func CloneNewzAssets(ctx context.Context, store Store, oldID, newID string) ([]Handle, error) {
	if oldID == "" || newID == "" {
		return nil, fmt.Errorf("both oldNewzId and newNewzId are required")
	}

	sources, err := store.ListByPrefix(ctx, NewzAssetPrefix(oldID))
	if err != nil {
		return nil, err
	}

	cloned := make([]Handle, 0, len(sources))
	for _, src := range sources {
		dest := NewzAssetPrefix(newID) + "/" + src.Name()
		handle, err := store.Copy(ctx, src, dest)
		if err != nil {
			return cloned, fmt.Errorf("failed to clone %s: %w", src.Path, err)
		}
		cloned = append(cloned, handle)
	}

	return cloned, nil
}
