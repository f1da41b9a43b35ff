// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー投稿コンテンツをサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// コメント本文には安全なインラインタグのみを通過させ、
// タイトルやキャプションは全タグを除去したプレーンテキストに変換する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー投稿コンテンツのサニタイズ機能のインターフェースを定義する。
// ニュース作成時とコメント投稿時、保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeComment はコメント本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（br, a, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeComment(raw string) string

	// SanitizeText は入力から全てのHTMLタグを除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// ニュースのタイトル、キャプション、ステーション名に使用する。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	commentPolicy *bluemonday.Policy
	textPolicy    *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// コメント用ポリシーの内容:
//   - 許可タグ: br, a, code, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noreferrer noopener" を自動付与、相対URLは不許可
//
// テキスト用ポリシーは全タグを除去する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// コメントは短いインライン表現のみ許可する。
	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
	p.AllowElements("br", "code", "strong", "em")

	// aタグの設定:
	// - href属性を許可
	// - 相対URLは不許可（投稿コンテンツには不適切）
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		commentPolicy: p,
		textPolicy:    bluemonday.StrictPolicy(),
	}
}

// SanitizeComment はコメント本文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeComment(raw string) string {
	return s.commentPolicy.Sanitize(raw)
}

// SanitizeText は入力から全てのHTMLタグを除去したプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.textPolicy.Sanitize(raw))
}
