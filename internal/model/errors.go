// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, engagement, station, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード。
// RPCエラー分類（invalid-argument / failed-precondition / not-found /
// aborted / already-exists / internal）に対応する。
const (
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeFailedPrecondition = "FAILED_PRECONDITION"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAborted            = "ABORTED"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeInternal           = "INTERNAL"
)

// NewInvalidArgumentError は必須パラメータの欠落・不正エラーを生成する。
func NewInvalidArgumentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("リクエストパラメータが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストの必須パラメータを確認してください。",
	}
}

// NewUnauthenticatedError は未認証呼び出しエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeFailedPrecondition,
		Message:  "認証されていない呼び出しです。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewNewzNotFoundError はニュース未検出エラーを生成する。
func NewNewzNotFoundError(newzID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたニュースが見つかりません: %s", newzID),
		Category: "engagement",
		Action:   "ニュースIDを確認してください。",
	}
}

// NewStationNotFoundError はステーション未検出エラーを生成する。
func NewStationNotFoundError(stationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたステーションが見つかりません: %s", stationID),
		Category: "station",
		Action:   "ステーションIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewOwnerViewError は投稿者自身による視聴カウント要求の拒否エラーを生成する。
func NewOwnerViewError() *APIError {
	return &APIError{
		Code:     ErrCodeAborted,
		Message:  "自分のニュースの視聴はカウントできません。",
		Category: "engagement",
		Action:   "他のユーザーのニュースを視聴してください。",
	}
}

// NewNotPublicError は非公開ニュースへの共有リンクアクセス拒否エラーを生成する。
func NewNotPublicError(newzID string) *APIError {
	return &APIError{
		Code:     ErrCodeFailedPrecondition,
		Message:  fmt.Sprintf("指定されたニュースは公開されていません: %s", newzID),
		Category: "engagement",
		Action:   "公開されているニュースの共有リンクを使用してください。",
	}
}

// NewAlreadyCollaboratorError はコラボレーター重複招待エラーを生成する。
func NewAlreadyCollaboratorError(contributorID, stationID string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyExists,
		Message:  fmt.Sprintf("ユーザー %s はステーション %s のコラボレーターとして既に登録されています。", contributorID, stationID),
		Category: "station",
		Action:   "コラボレーター一覧を確認してください。",
	}
}

// NewNotStationOwnerError はステーション所有者以外の操作拒否エラーを生成する。
func NewNotStationOwnerError(stationID string) *APIError {
	return &APIError{
		Code:     ErrCodeFailedPrecondition,
		Message:  fmt.Sprintf("このステーションの所有者ではありません: %s", stationID),
		Category: "station",
		Action:   "自分が所有するステーションに対してのみ実行できます。",
	}
}

// NewStationNotCollaborativeError はコラボ非対応ステーションへの招待拒否エラーを生成する。
func NewStationNotCollaborativeError(stationID string) *APIError {
	return &APIError{
		Code:     ErrCodeFailedPrecondition,
		Message:  fmt.Sprintf("このステーションはコラボレーションを許可していません: %s", stationID),
		Category: "station",
		Action:   "ステーションのコラボレーション設定を有効にしてください。",
	}
}

// NewNotNewzOwnerError はニュース所有者以外の削除操作拒否エラーを生成する。
func NewNotNewzOwnerError(newzID string) *APIError {
	return &APIError{
		Code:     ErrCodeFailedPrecondition,
		Message:  fmt.Sprintf("このニュースの所有者または投稿者ではありません: %s", newzID),
		Category: "engagement",
		Action:   "自分が投稿したニュースに対してのみ実行できます。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
