// Package email はテンプレートベースのメール送信を提供する。
//
// 送信はfire-and-forgetであり、失敗はログに記録されるのみでリトライされない。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message は1通のテンプレートメールを表す。
type Message struct {
	To           string            `json:"to"`
	From         string            `json:"from"`
	Subject      string            `json:"subject"`
	TemplateID   string            `json:"template_id"`
	TemplateData map[string]string `json:"template_data,omitempty"`
}

// Sender はメール送信のインターフェース。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client はHTTPテンプレートAPI経由でメールを送信する。
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// apiURLが空の場合、送信は何もせず成功する（開発環境向け）。
func NewClient(apiURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send はメールを1通送信する。
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.apiURL == "" {
		c.logger.Debug("メールAPIが未設定のため送信をスキップしました",
			slog.String("to", msg.To),
			slog.String("template_id", msg.TemplateID),
		)
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}

// SendAsync はメールをfire-and-forgetで送信する。
// 失敗はログに記録されるのみで、呼び出し元には報告されない。
func (c *Client) SendAsync(msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := c.Send(ctx, msg); err != nil {
			c.logger.Error("メール送信に失敗しました",
				slog.String("to", msg.To),
				slog.String("template_id", msg.TemplateID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// compile-time interface check
var _ Sender = (*Client)(nil)
