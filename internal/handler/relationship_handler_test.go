package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/pocketnewz/internal/model"
	"github.com/hitoshi/pocketnewz/internal/relationship"
)

// --- モック定義 ---

// mockRelationshipService はRelationshipServiceInterfaceのモック実装。
type mockRelationshipService struct {
	toggleFollowFn      func(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error)
	inviteContributorFn func(ctx context.Context, ownerUID, contributorID, stationID string) (string, error)
}

func (m *mockRelationshipService) ToggleFollow(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error) {
	if m.toggleFollowFn != nil {
		return m.toggleFollowFn(ctx, followerID, followID)
	}
	return nil, nil
}

func (m *mockRelationshipService) InviteContributor(ctx context.Context, ownerUID, contributorID, stationID string) (string, error) {
	if m.inviteContributorFn != nil {
		return m.inviteContributorFn(ctx, ownerUID, contributorID, stationID)
	}
	return "", nil
}

// --- POST /api/follows/toggle テスト ---

func TestRelationshipHandler_ToggleFollow_FollowOn(t *testing.T) {
	svc := &mockRelationshipService{
		toggleFollowFn: func(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error) {
			if followerID != "follower-1" {
				t.Errorf("followerID = %q, want %q", followerID, "follower-1")
			}
			if followID != "followed-1" {
				t.Errorf("followID = %q, want %q", followID, "followed-1")
			}
			return &relationship.FollowResult{
				Following:     true,
				FollowingIDs:  []string{"followed-1"},
				FollowerCount: 10,
			}, nil
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"follow_id": "followed-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/follows/toggle", bytes.NewBufferString(body))
	req = withUserID(req, "follower-1")
	w := httptest.NewRecorder()

	h.ToggleFollow(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONResponse(t, w)
	if result["following"] != true {
		t.Errorf("following = %v, want true", result["following"])
	}
	if result["follower_count"] != float64(10) {
		t.Errorf("follower_count = %v, want 10", result["follower_count"])
	}
	ids, ok := result["following_ids"].([]any)
	if !ok || len(ids) != 1 || ids[0] != "followed-1" {
		t.Errorf("following_ids = %v, want [followed-1]", result["following_ids"])
	}
}

func TestRelationshipHandler_ToggleFollow_FollowOff(t *testing.T) {
	svc := &mockRelationshipService{
		toggleFollowFn: func(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error) {
			return &relationship.FollowResult{
				Following:     false,
				FollowingIDs:  []string{},
				FollowerCount: 9,
			}, nil
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"follow_id": "followed-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/follows/toggle", bytes.NewBufferString(body))
	req = withUserID(req, "follower-1")
	w := httptest.NewRecorder()

	h.ToggleFollow(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONResponse(t, w)
	if result["following"] != false {
		t.Errorf("following = %v, want false", result["following"])
	}
}

func TestRelationshipHandler_ToggleFollow_Unauthenticated_ReturnsUnauthorized(t *testing.T) {
	h := NewRelationshipHandler(&mockRelationshipService{})

	body := `{"follow_id": "followed-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/follows/toggle", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.ToggleFollow(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRelationshipHandler_ToggleFollow_SelfFollow_ReturnsBadRequest(t *testing.T) {
	svc := &mockRelationshipService{
		toggleFollowFn: func(ctx context.Context, followerID, followID string) (*relationship.FollowResult, error) {
			return nil, model.NewInvalidArgumentError("自分自身をフォローすることはできません")
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"follow_id": "follower-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/follows/toggle", bytes.NewBufferString(body))
	req = withUserID(req, "follower-1")
	w := httptest.NewRecorder()

	h.ToggleFollow(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/stations/:id/collaborators テスト ---

func TestRelationshipHandler_InviteContributor_Success(t *testing.T) {
	svc := &mockRelationshipService{
		inviteContributorFn: func(ctx context.Context, ownerUID, contributorID, stationID string) (string, error) {
			if ownerUID != "owner-1" {
				t.Errorf("ownerUID = %q, want %q", ownerUID, "owner-1")
			}
			if contributorID != "contributor-1" {
				t.Errorf("contributorID = %q, want %q", contributorID, "contributor-1")
			}
			if stationID != "station-1" {
				t.Errorf("stationID = %q, want %q", stationID, "station-1")
			}
			return "collaborations/collab-1", nil
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"contributor_id": "contributor-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/stations/station-1/collaborators", bytes.NewBufferString(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "station-1")
	w := httptest.NewRecorder()

	h.InviteContributor(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	result := decodeJSONResponse(t, w)
	if result["path"] != "collaborations/collab-1" {
		t.Errorf("path = %v, want %q", result["path"], "collaborations/collab-1")
	}
}

func TestRelationshipHandler_InviteContributor_AlreadyExists_ReturnsConflict(t *testing.T) {
	svc := &mockRelationshipService{
		inviteContributorFn: func(ctx context.Context, ownerUID, contributorID, stationID string) (string, error) {
			return "", model.NewAlreadyCollaboratorError(contributorID, stationID)
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"contributor_id": "contributor-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/stations/station-1/collaborators", bytes.NewBufferString(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "station-1")
	w := httptest.NewRecorder()

	h.InviteContributor(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeAlreadyExists {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeAlreadyExists)
	}
}

func TestRelationshipHandler_InviteContributor_NotOwner_ReturnsPreconditionFailed(t *testing.T) {
	svc := &mockRelationshipService{
		inviteContributorFn: func(ctx context.Context, ownerUID, contributorID, stationID string) (string, error) {
			return "", model.NewNotStationOwnerError(stationID)
		},
	}
	h := NewRelationshipHandler(svc)

	body := `{"contributor_id": "contributor-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/stations/station-1/collaborators", bytes.NewBufferString(body))
	req = withUserID(req, "stranger")
	req = withChiURLParam(req, "id", "station-1")
	w := httptest.NewRecorder()

	h.InviteContributor(w, req)

	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusPreconditionFailed)
	}
}
