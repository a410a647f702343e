package httpapi

import "github.com/Fadhlan-athha/manajemen-warga/internal/service"

// Envelope codes carried in Result.Code alongside the real HTTP status.
const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired 与 HTTP 401 一起返回，前端拦截器据此跳转登录
	ResultTokenExpired = 60401
	// ResultConflict 数据已存在；前端提示后带 confirm_overwrite 重新提交
	ResultConflict = 40900
)

// Result 所有接口共用的响应包
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"` // success | error | warning
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message}
}

// ConflictResult lists the stored identities that block a non-overwrite submission.
func ConflictResult(err *service.ConflictError) Result[map[string][]service.Conflict] {
	return Result[map[string][]service.Conflict]{
		Code:    ResultConflict,
		Type:    "warning",
		Message: err.Error(),
		Result:  map[string][]service.Conflict{"conflicts": err.Conflicts},
	}
}

// SessionExpired 会话缺失或过期
func SessionExpired() Result[any] {
	return Result[any]{Code: ResultTokenExpired, Type: "error", Message: "session expired or missing"}
}
