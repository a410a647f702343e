package httpapi

import (
	"errors"
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/service"

	"go.uber.org/zap"
)

// statusFor 服务层错误 → HTTP 状态码
func statusFor(err error) int {
	var (
		verr      *service.ValidationError
		conflict  *service.ConflictError
		scope     *service.ScopeViolation
		forbidden *service.ForbiddenError
		transient *service.TransientServiceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &scope), errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	case status == http.StatusForbidden:
		logger.Warn("Request denied",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, status, ConflictResult(conflict))
	case errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, status, SessionExpired())
	case status == http.StatusInternalServerError:
		writeJSON(w, status, Fail("internal error"))
	default:
		writeJSON(w, status, Fail(err.Error()))
	}
}
