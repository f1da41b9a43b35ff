package auth

import (
	"testing"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// 署名の発行と検証のラウンドトリップを検証
func TestWebhookVerifier_RoundTrip(t *testing.T) {
	verifier := NewWebhookVerifier("webhook-secret")
	payload := []byte(`{"type":"identity.created","user_id":"user-1"}`)

	sig := verifier.Sign(payload)
	if !verifier.VerifySignature(payload, sig) {
		t.Error("valid signature should verify")
	}
}

// 改ざんされたペイロードの署名検証が失敗することを検証
func TestWebhookVerifier_Tampered(t *testing.T) {
	verifier := NewWebhookVerifier("webhook-secret")
	payload := []byte(`{"type":"identity.created","user_id":"user-1"}`)
	sig := verifier.Sign(payload)

	tampered := []byte(`{"type":"identity.deleted","user_id":"user-1"}`)
	if verifier.VerifySignature(tampered, sig) {
		t.Error("tampered payload should not verify")
	}
}

// 別の秘密鍵で発行された署名が拒否されることを検証
func TestWebhookVerifier_WrongSecret(t *testing.T) {
	payload := []byte(`{"type":"identity.created","user_id":"user-1"}`)
	sig := NewWebhookVerifier("other-secret").Sign(payload)

	if NewWebhookVerifier("webhook-secret").VerifySignature(payload, sig) {
		t.Error("signature from different secret should not verify")
	}
}

// プレフィックスなしの署名が拒否されることを検証
func TestWebhookVerifier_MissingPrefix(t *testing.T) {
	verifier := NewWebhookVerifier("webhook-secret")
	payload := []byte(`{}`)

	if verifier.VerifySignature(payload, "deadbeef") {
		t.Error("signature without sha256= prefix should not verify")
	}
}

// 作成イベントのパースを検証
func TestParseIdentityEvent_Created(t *testing.T) {
	payload := []byte(`{
		"type": "identity.created",
		"user_id": "user-1",
		"email": "newzer@example.com",
		"name": "山田太郎",
		"given_name": "太郎",
		"family_name": "山田",
		"photo_url": "https://cdn.example.com/photo.jpg",
		"phone": "+81-90-0000-0000"
	}`)

	event, err := ParseIdentityEvent(payload)
	if err != nil {
		t.Fatalf("ParseIdentityEvent returned error: %v", err)
	}
	if event.Type != model.IdentityCreated {
		t.Errorf("event.Type = %s, want %s", event.Type, model.IdentityCreated)
	}
	if event.UserID != "user-1" || event.Email != "newzer@example.com" {
		t.Errorf("unexpected event fields: %+v", event)
	}
	if event.GivenName != "太郎" || event.FamilyName != "山田" {
		t.Errorf("unexpected name fields: %+v", event)
	}
}

// 削除イベントのパースを検証
func TestParseIdentityEvent_Deleted(t *testing.T) {
	event, err := ParseIdentityEvent([]byte(`{"type":"identity.deleted","user_id":"user-1"}`))
	if err != nil {
		t.Fatalf("ParseIdentityEvent returned error: %v", err)
	}
	if event.Type != model.IdentityDeleted {
		t.Errorf("event.Type = %s, want %s", event.Type, model.IdentityDeleted)
	}
}

// 不正なペイロードが拒否されることを検証
func TestParseIdentityEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"不正なJSON", `{not json`},
		{"未知のイベント種別", `{"type":"identity.renamed","user_id":"user-1"}`},
		{"種別なし", `{"user_id":"user-1"}`},
		{"user_idなし", `{"type":"identity.created"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseIdentityEvent([]byte(tc.payload)); err == nil {
				t.Errorf("expected error for payload %s", tc.payload)
			}
		})
	}
}
