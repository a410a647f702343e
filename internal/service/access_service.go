package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/metrics"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// AccessService 解析调用者并执行权限矩阵/范围检查
type AccessService interface {
	// ResolvePrincipal 每次特权请求从 admin_roles 重新读取角色与 RT
	ResolvePrincipal(ctx context.Context, userID string) (*access.Principal, error)
	// Authorize 在取数之前检查功能权限
	Authorize(p *access.Principal, feature access.Feature) error
	// CheckScope 检查目标 RT 是否在调用者范围内
	CheckScope(p *access.Principal, subdivision string) error
	Features(p *access.Principal) []access.Feature
}

type accessService struct {
	adminRepo repository.AdminRolesRepository
	matrix    *access.Matrix
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAccessService 创建 AccessService
func NewAccessService(adminRepo repository.AdminRolesRepository, matrix *access.Matrix, m *metrics.Metrics, logger *zap.Logger) AccessService {
	if matrix == nil {
		matrix = access.DefaultMatrix()
	}
	return &accessService{adminRepo: adminRepo, matrix: matrix, metrics: m, logger: logger}
}

func (s *accessService) ResolvePrincipal(ctx context.Context, userID string) (*access.Principal, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	rec, err := s.adminRepo.GetAdminRole(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Access denied: no admin role", zap.String("user_id", userID))
			return nil, &ForbiddenError{Reason: "account has no administrator role"}
		}
		s.logger.Error("Failed to load admin role", zap.String("user_id", userID), zap.Error(err))
		return nil, transient("resolve principal", err)
	}

	role, ok := access.ParseRole(rec.Role)
	if !ok {
		s.logger.Warn("Access denied: unknown role",
			zap.String("user_id", userID),
			zap.String("role", rec.Role),
		)
		return nil, &ForbiddenError{Role: rec.Role, Reason: fmt.Sprintf("unknown role %q", rec.Role)}
	}
	p, err := access.NewPrincipal(rec.UserID, rec.DisplayName, role, rec.SubdivisionCode)
	if err != nil {
		s.logger.Warn("Access denied: role without subdivision",
			zap.String("user_id", userID),
			zap.String("role", string(role)),
		)
		return nil, &ForbiddenError{Role: string(role), Reason: err.Error()}
	}
	return p, nil
}

func (s *accessService) Authorize(p *access.Principal, feature access.Feature) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !s.matrix.IsPermitted(p.Role, feature) {
		s.metrics.IncrementAccessDenied("feature", string(p.Role))
		return &ForbiddenError{Role: string(p.Role), Feature: string(feature)}
	}
	return nil
}

func (s *accessService) CheckScope(p *access.Principal, subdivision string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.Scope.Allows(subdivision) {
		s.metrics.IncrementAccessDenied("scope", string(p.Role))
		return &ScopeViolation{Scope: p.Scope.String(), Subdivision: subdivision}
	}
	return nil
}

func (s *accessService) Features(p *access.Principal) []access.Feature {
	if p == nil {
		return []access.Feature{}
	}
	return s.matrix.Features(p.Role)
}
