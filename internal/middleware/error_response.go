package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponseBody はAPIエラーレスポンスの形式。
// ページ範囲外の場合のみtotalPagesとcurrentPageを含む。
type ErrorResponseBody struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	TotalPages  *int   `json:"totalPages,omitempty"`
	CurrentPage *int   `json:"currentPage,omitempty"`
}

// WriteJSON はvをJSONとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteErrorResponse はエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	WriteJSON(w, statusCode, body)
}

// WriteInternalServerError は500レスポンスを書き込む。詳細はログのみに記録する。
func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusInternalServerError, ErrorResponseBody{
		Error:   "Internal server error",
		Message: message,
	})
}
