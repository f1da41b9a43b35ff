package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithStats(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- IssueSession ---

// 既存ユーザーへのセッション発行が成功することを検証
func TestIssueSession(t *testing.T) {
	var created *model.Session

	svc := NewService(
		&mockUserRepo{
			findByIDFn: func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "newzer@example.com"}, nil
			},
		},
		&mockSessionRepo{
			createFn: func(_ context.Context, session *model.Session) error {
				created = session
				return nil
			},
		},
		ServiceConfig{SessionMaxAge: 3600},
	)

	session, err := svc.IssueSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("session.UserID = %s, want user-1", session.UserID)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 hex chars", len(session.ID))
	}
	if created == nil {
		t.Fatal("session was not persisted")
	}
	if remaining := time.Until(created.ExpiresAt); remaining < 59*time.Minute {
		t.Errorf("session expiry too soon: %v", remaining)
	}
}

// 未知のユーザーへのセッション発行が失敗することを検証
func TestIssueSession_UnknownUser(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	if _, err := svc.IssueSession(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

// 空のユーザーIDが拒否されることを検証
func TestIssueSession_EmptyUserID(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	if _, err := svc.IssueSession(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user ID")
	}
}

// --- GetCurrentUser ---

// 有効なセッションからユーザーを取得できることを検証
func TestGetCurrentUser(t *testing.T) {
	svc := NewService(
		&mockUserRepo{
			findByIDFn: func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Name: "テストユーザー"}, nil
			},
		},
		&mockSessionRepo{
			findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
				return &model.Session{ID: id, UserID: "user-1"}, nil
			},
		},
		ServiceConfig{SessionMaxAge: 3600},
	)

	user, err := svc.GetCurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %s, want user-1", user.ID)
	}
}

// 期限切れ（存在しない）セッションがエラーになることを検証
func TestGetCurrentUser_ExpiredSession(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	if _, err := svc.GetCurrentUser(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for expired session")
	}
}

// --- Logout ---

// ログアウトがセッションを削除することを検証
func TestLogout(t *testing.T) {
	var deletedID string

	svc := NewService(
		&mockUserRepo{},
		&mockSessionRepo{
			deleteByIDFn: func(_ context.Context, id string) error {
				deletedID = id
				return nil
			},
		},
		ServiceConfig{SessionMaxAge: 3600},
	)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session ID = %s, want session-1", deletedID)
	}
}

// セッション削除の失敗が呼び出し元へ伝播することを検証
func TestLogout_RepoError(t *testing.T) {
	svc := NewService(
		&mockUserRepo{},
		&mockSessionRepo{
			deleteByIDFn: func(_ context.Context, _ string) error {
				return errors.New("db down")
			},
		},
		ServiceConfig{SessionMaxAge: 3600},
	)

	if err := svc.Logout(context.Background(), "session-1"); err == nil {
		t.Fatal("expected error when session delete fails")
	}
}
