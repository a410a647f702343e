package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
)

var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated 缺少或无效的会话
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError malformed input; nothing was queried or written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflict 一个已存在的身份值
type Conflict struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ConflictError lists the identity values that already exist. The caller may resend
// with overwrite confirmed.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.Field+"="+c.Value)
	}
	return "already exists: " + strings.Join(parts, ", ")
}

// ScopeViolation a write or read targeted a subdivision outside the caller's scope.
type ScopeViolation struct {
	Scope       string
	Subdivision string
}

func (e *ScopeViolation) Error() string {
	return fmt.Sprintf("subdivision %q is outside scope %s", e.Subdivision, e.Scope)
}

// ForbiddenError 角色没有该功能权限，或账号没有有效角色
type ForbiddenError struct {
	Role    string
	Feature string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return "forbidden: " + e.Reason
	}
	return fmt.Sprintf("role %q may not access %s", e.Role, e.Feature)
}

// TransientServiceError the store could not answer; retrying may succeed.
type TransientServiceError struct {
	Op  string
	Err error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable: %v", e.Op, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

func transient(op string, err error) error {
	return &TransientServiceError{Op: op, Err: err}
}

// ErrInvalidCredentials 邮箱或密码错误
var ErrInvalidCredentials = errors.New("invalid email or password")

// mapRepoErr translates repository sentinels into service errors.
func mapRepoErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStale):
		return &ConflictError{Conflicts: []Conflict{{Field: "status", Value: "already processed"}}}
	}
	return transient(op, err)
}
