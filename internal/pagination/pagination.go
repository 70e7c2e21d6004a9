// Package pagination はページ番号による一覧の分割を提供する。
package pagination

import (
	"strconv"
	"strings"

	"github.com/hitoshi/mdpress/internal/model"
)

// DefaultPageSize は1ページあたりの既定の件数。
const DefaultPageSize = 5

// Page は一覧の1ページ分。
type Page[T any] struct {
	Items       []T `json:"items"`
	Total       int `json:"total"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// ParsePage はクエリパラメータのページ番号を解釈する。
// 空文字列は1ページ目とし、1以上の整数以外はInvalidParameterErrorを返す。
func ParsePage(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, model.NewInvalidPageError(raw)
	}
	return n, nil
}

// Paginate はitemsからpageページ目を切り出す。
// 総ページ数を超えるページにはOutOfRangeErrorを返す。空の一覧の1ページ目は総ページ数0で成功する。
func Paginate[T any](items []T, page, size int) (*Page[T], error) {
	if page < 1 {
		return nil, model.NewInvalidPageError(strconv.Itoa(page))
	}
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(items)
	totalPages := (total + size - 1) / size

	if page > totalPages && totalPages > 0 {
		return nil, &model.OutOfRangeError{TotalPages: totalPages, CurrentPage: page}
	}

	start := min((page-1)*size, total)
	end := min(start+size, total)

	window := make([]T, end-start)
	copy(window, items[start:end])

	return &Page[T]{
		Items:       window,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}
