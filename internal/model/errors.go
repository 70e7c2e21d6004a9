// Package model はドメインモデルを定義する。
package model

import "fmt"

// InvalidParameterError はユーザーが修正可能な不正パラメータを表す（400相当）。
type InvalidParameterError struct {
	Name    string // パラメータ名
	Value   string // 受け取った値
	Message string // クライアントに返すメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%q: %s", e.Name, e.Value, e.Message)
}

// NewInvalidPageError はページ番号が正の整数でない場合のエラーを生成する。
func NewInvalidPageError(raw string) *InvalidParameterError {
	return &InvalidParameterError{
		Name:    "page",
		Value:   raw,
		Message: "Invalid page parameter. Page must be a positive integer.",
	}
}

// OutOfRangeError はページ番号が総ページ数を超えた場合のエラー。
// 復帰のヒントとして有効な総ページ数を保持する。
type OutOfRangeError struct {
	TotalPages  int
	CurrentPage int
}

// Error はerrorインターフェースを実装する。
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (total pages: %d)", e.CurrentPage, e.TotalPages)
}

// NotFoundError は記事IDが解決できない場合のエラー。
type NotFoundError struct {
	ID string
}

// Error はerrorインターフェースを実装する。
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return "post not found: invalid post id"
	}
	return fmt.Sprintf("post not found: %s", e.ID)
}

// UpstreamFetchError は外部SNSへの通信・認証・非2xx応答の失敗を表す。
// 呼び出し元へは伝播させず、ログに記録して空の結果として扱う。
type UpstreamFetchError struct {
	Platform   Platform
	Op         string // session, timeline, statuses など
	StatusCode int    // HTTPステータス（通信失敗時は0）
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Platform, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// RenderDegradation は埋め込み解決に失敗し、縮退レンダリングに切り替えたことを表す。
// 呼び出し元には返さず、ログとメトリクスにのみ記録する。
type RenderDegradation struct {
	PostID string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *RenderDegradation) Error() string {
	return fmt.Sprintf("embed resolution failed for %s, using fallback render: %v", e.PostID, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *RenderDegradation) Unwrap() error {
	return e.Err
}
