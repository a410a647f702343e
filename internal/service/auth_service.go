package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理员登录与会话
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate 会话 token -> Principal（角色每次重新解析）
	Authenticate(ctx context.Context, token string) (*access.Principal, error)
	Me(p *access.Principal) *MeResponse
	// SeedAdmin 创建或重置一个管理员账号
	SeedAdmin(ctx context.Context, req SeedAdminRequest) error
}

type authService struct {
	adminRepo repository.AdminRolesRepository
	sessions  *store.SessionStore
	access    AccessService
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService
func NewAuthService(adminRepo repository.AdminRolesRepository, sessions *store.SessionStore, accessSvc AccessService, logger *zap.Logger) AuthService {
	return &authService{adminRepo: adminRepo, sessions: sessions, access: accessSvc, logger: logger}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // 秒
	*MeResponse
}

// MeResponse 当前管理员
type MeResponse struct {
	UserID      string           `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Role        access.Role      `json:"role"`
	Scope       string           `json:"scope"`
	Features    []access.Feature `json:"features"`
}

// SeedAdminRequest 种子管理员
type SeedAdminRequest struct {
	Email           string
	Password        string
	Role            access.Role
	SubdivisionCode *string
	DisplayName     string
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalid("", "email and password are required")
	}
	user, err := s.adminRepo.GetAdminUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Admin login failed", zap.String("reason", "unknown_email"), zap.String("ip_address", req.IPAddress))
			return nil, ErrInvalidCredentials
		}
		return nil, transient("login", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		s.logger.Warn("Admin login failed",
			zap.String("reason", "wrong_password"),
			zap.String("user_id", user.UserID),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, ErrInvalidCredentials
	}

	// 没有有效角色的账号不发放会话
	p, err := s.access.ResolvePrincipal(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	token, err := s.sessions.Create(ctx, user.UserID)
	if err != nil {
		s.logger.Error("Failed to create session", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, transient("create session", err)
	}
	s.logger.Info("Admin logged in",
		zap.String("user_id", user.UserID),
		zap.String("role", string(p.Role)),
		zap.String("scope", p.Scope.String()),
	)
	return &LoginResponse{
		Token:      token,
		ExpiresIn:  int64(s.sessions.TTL().Seconds()),
		MeResponse: s.Me(p),
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return transient("logout", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*access.Principal, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNoSession) {
			return nil, ErrUnauthenticated
		}
		return nil, transient("resolve session", err)
	}
	return s.access.ResolvePrincipal(ctx, userID)
}

func (s *authService) Me(p *access.Principal) *MeResponse {
	return &MeResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		Scope:       p.Scope.String(),
		Features:    s.access.Features(p),
	}
}

func (s *authService) SeedAdmin(ctx context.Context, req SeedAdminRequest) error {
	if _, err := access.NewPrincipal("", req.DisplayName, req.Role, req.SubdivisionCode); err != nil {
		return invalid("subdivision_code", "%v", err)
	}
	if len(req.Password) < 8 {
		return invalid("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &domain.AdminUser{Email: req.Email, PasswordHash: hash}
	role := &domain.AdminRole{Role: string(req.Role), SubdivisionCode: req.SubdivisionCode, DisplayName: req.DisplayName}
	if err := s.adminRepo.UpsertAdmin(ctx, user, role); err != nil {
		return transient("seed admin", err)
	}
	s.logger.Info("Admin account seeded", zap.String("email", req.Email), zap.String("role", string(req.Role)))
	return nil
}
