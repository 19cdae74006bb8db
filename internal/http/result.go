package httpapi

import (
	"encoding/json"
	"net/http"

	"sitelink-data/internal/domain"
)

// Result 统一响应包装（与前端 Axios 拦截器约定保持一致）
// - code: 2000 成功
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// httpStatusFor 领域错误分类 → HTTP 状态码
func httpStatusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError 按错误分类输出响应
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatusFor(err), Fail(err.Error()))
}

// tenantIDFromReq 取租户标识（上游网关注入，本服务透传不校验归属）
func tenantIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.Header.Get("X-Tenant-Id")
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("tenant ID is required"))
		return "", false
	}
	return tenantID, true
}

// actorFromReq 取已认证操作人标识（认证在上游完成）
func actorFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user ID is required"))
		return "", false
	}
	return userID, true
}
