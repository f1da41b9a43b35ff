package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSSRFGuard はSSRFGuardの生成をテストする。
func TestNewSSRFGuard(t *testing.T) {
	guard := NewSSRFGuard()
	if guard == nil {
		t.Fatal("NewSSRFGuard() returned nil")
	}
}

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(10*time.Second, 5*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 5*1024*1024)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5*time.Second, 5*1024*1024)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL_PublicURL は公開URLの検証が成功することをテストする。
func TestValidateURL_PublicURL(t *testing.T) {
	guard := NewSSRFGuard()

	publicURLs := []string{
		"https://lh3.googleusercontent.com/a/photo.jpg",
		"https://cdn.example.com/avatars/newzer-1.png",
		"http://images.example.org/profile",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%s) = %v, want nil", u, err)
			}
		})
	}
}

// TestValidateURL_BlockedURL は危険なURLの検証が失敗することをテストする。
func TestValidateURL_BlockedURL(t *testing.T) {
	guard := NewSSRFGuard()

	blockedURLs := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"不正なスキーム", "ftp://example.com/photo.jpg"},
		{"javascriptスキーム", "javascript:alert(1)"},
		{"空ホスト", "https:///photo.jpg"},
		{"localhost", "http://localhost/photo.jpg"},
		{"ループバックIP", "http://127.0.0.1/photo.jpg"},
		{"プライベートIP 10系", "http://10.0.0.5/photo.jpg"},
		{"プライベートIP 172系", "http://172.16.0.1/photo.jpg"},
		{"プライベートIP 192系", "http://192.168.1.1/photo.jpg"},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/"},
		{"IPv6ループバック", "http://[::1]/photo.jpg"},
	}

	for _, tc := range blockedURLs {
		t.Run(tc.name, func(t *testing.T) {
			if err := guard.ValidateURL(tc.url); err == nil {
				t.Errorf("ValidateURL(%s) = nil, want error", tc.url)
			}
		})
	}
}

// TestValidateURL_CaseInsensitiveScheme はスキームの大文字小文字を無視することをテストする。
func TestValidateURL_CaseInsensitiveScheme(t *testing.T) {
	guard := NewSSRFGuard()

	if err := guard.ValidateURL("HTTPS://example.com/photo.jpg"); err != nil {
		t.Errorf("ValidateURL with uppercase scheme = %v, want nil", err)
	}
}
