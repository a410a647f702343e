package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
)

// PostgresAdminRolesRepository 管理员账号/角色 Repository 实现
type PostgresAdminRolesRepository struct {
	db *sql.DB
}

// NewPostgresAdminRolesRepository 创建管理员 Repository
func NewPostgresAdminRolesRepository(db *sql.DB) *PostgresAdminRolesRepository {
	return &PostgresAdminRolesRepository{db: db}
}

var _ AdminRolesRepository = (*PostgresAdminRolesRepository)(nil)

// GetAdminRole 查询管理员角色与 RT 范围
func (r *PostgresAdminRolesRepository) GetAdminRole(ctx context.Context, userID string) (*domain.AdminRole, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	var (
		role        domain.AdminRole
		subdivision sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id::text, role, subdivision_code, COALESCE(display_name, '')
		FROM admin_roles
		WHERE user_id::text = $1`, userID,
	).Scan(&role.UserID, &role.Role, &subdivision, &role.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query admin role: %w", err)
	}
	if subdivision.Valid {
		s := subdivision.String
		role.SubdivisionCode = &s
	}
	return &role, nil
}

// GetAdminUserByEmail 登录时按邮箱查询
func (r *PostgresAdminRolesRepository) GetAdminUserByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id::text, email, password_hash
		FROM admin_users
		WHERE lower(email) = lower($1)`, strings.TrimSpace(email),
	).Scan(&u.UserID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query admin user: %w", err)
	}
	return &u, nil
}

// UpsertAdmin 创建或覆盖账号与角色；user.UserID 为空时由数据库生成
func (r *PostgresAdminRolesRepository) UpsertAdmin(ctx context.Context, user *domain.AdminUser, role *domain.AdminRole) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO admin_users (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING user_id::text`,
		strings.ToLower(strings.TrimSpace(user.Email)), user.PasswordHash,
	).Scan(&user.UserID)
	if err != nil {
		return fmt.Errorf("failed to upsert admin user: %w", err)
	}

	role.UserID = user.UserID
	var subdivision any
	if role.SubdivisionCode != nil {
		subdivision = *role.SubdivisionCode
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_roles (user_id, role, subdivision_code, display_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			subdivision_code = EXCLUDED.subdivision_code,
			display_name = EXCLUDED.display_name`,
		role.UserID, role.Role, subdivision, role.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert admin role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin: %w", err)
	}
	return nil
}
