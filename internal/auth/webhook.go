package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// SignatureHeader はIdP Webhookの署名を運ぶHTTPヘッダー名。
const SignatureHeader = "X-Identity-Signature"

// WebhookVerifier はIdPからのWebhookペイロードの署名検証とパースを行う。
// 署名はペイロード本体のHMAC-SHA256で、"sha256=" プレフィックス付き16進表記。
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier はWebhookVerifierを生成する。
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// VerifySignature はペイロードの署名を定数時間比較で検証する。
func (v *WebhookVerifier) VerifySignature(payload []byte, signature string) bool {
	sig, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}

// Sign はペイロードの署名値を返す。テストとローカル検証用。
func (v *WebhookVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// identityEventPayload はIdP WebhookのJSONペイロードのワイヤー表現。
type identityEventPayload struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	PhotoURL   string `json:"photo_url"`
	Phone      string `json:"phone"`
}

// ParseIdentityEvent は検証済みペイロードをIdentityEventにパースする。
// 未知のイベント種別、user_id欠落の場合はエラーを返す。
func ParseIdentityEvent(payload []byte) (*model.IdentityEvent, error) {
	var p identityEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	eventType := model.IdentityEventType(p.Type)
	switch eventType {
	case model.IdentityCreated, model.IdentityDeleted:
	default:
		return nil, fmt.Errorf("unknown identity event type: %q", p.Type)
	}

	if p.UserID == "" {
		return nil, fmt.Errorf("identity event is missing user_id")
	}

	return &model.IdentityEvent{
		Type:       eventType,
		UserID:     p.UserID,
		Email:      p.Email,
		Name:       p.Name,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		PhotoURL:   p.PhotoURL,
		Phone:      p.Phone,
	}, nil
}
