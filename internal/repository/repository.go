package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/lib/pq"
)

var (
	// ErrNotFound 记录不存在（或不在调用者范围内）
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 唯一键冲突（national_id）
	ErrDuplicate = errors.New("duplicate key")
	// ErrStale 条件更新未命中：记录状态已被其他请求改变
	ErrStale = errors.New("record state changed")
)

// DuplicateError carries the column and value that hit a unique constraint.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s=%s", e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// IdentityField 可用于存在性检查的列
type IdentityField string

const (
	FieldNationalID       IdentityField = "national_id"
	FieldFamilyCardNumber IdentityField = "family_card_number"
)

// Valid reports whether f names a checkable identity column.
func (f IdentityField) Valid() bool {
	return f == FieldNationalID || f == FieldFamilyCardNumber
}

// PeopleFilter 居民查询过滤器
type PeopleFilter struct {
	Search           string // 模糊搜索 full_name / national_id / family_card_number / house_number
	FamilyCardNumber string
}

// PeopleRepository 居民 Repository 接口
// 范围过滤在查询内部完成，调用者传入服务端解析出的 Scope
type PeopleRepository interface {
	ListPeople(ctx context.Context, scope access.Scope, filter PeopleFilter) ([]*domain.Person, error)
	GetPerson(ctx context.Context, id string) (*domain.Person, error)
	GetByNationalID(ctx context.Context, nationalID string) (*domain.Person, error)

	ExistsBy(ctx context.Context, field IdentityField, value string) (bool, error)
	// ExistingNationalIDs returns the subset of nationalIDs already stored.
	ExistingNationalIDs(ctx context.Context, nationalIDs []string) ([]string, error)

	// InsertPeople 全部插入或全部失败；national_id 冲突返回 *DuplicateError
	InsertPeople(ctx context.Context, people []*domain.Person) error
	// UpsertPeople 以 national_id 为键插入或覆盖
	UpsertPeople(ctx context.Context, people []*domain.Person) error
	UpdatePerson(ctx context.Context, scope access.Scope, p *domain.Person) error
	DeletePerson(ctx context.Context, scope access.Scope, id string) error
}

// LedgerRepository 财务、报告、信件、iuran、垃圾银行与公告
type LedgerRepository interface {
	ListTransactions(ctx context.Context, scope access.Scope) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, scope access.Scope, id string) error

	ListReports(ctx context.Context, scope access.Scope) ([]*domain.IncidentReport, error)
	GetReport(ctx context.Context, id string) (*domain.IncidentReport, error)
	CreateReport(ctx context.Context, r *domain.IncidentReport) error
	UpdateReportStatus(ctx context.Context, scope access.Scope, id, status string) error
	DeleteReport(ctx context.Context, scope access.Scope, id string) error

	// ListLetters nationalID 为空时不按 NIK 过滤
	ListLetters(ctx context.Context, scope access.Scope, nationalID string) ([]*domain.LetterRequest, error)
	GetLetter(ctx context.Context, id string) (*domain.LetterRequest, error)
	CreateLetter(ctx context.Context, l *domain.LetterRequest) error
	// DecideLetter 仅在 status=pending 时生效，否则 ErrStale
	DecideLetter(ctx context.Context, scope access.Scope, l *domain.LetterRequest) error

	ListDues(ctx context.Context, scope access.Scope) ([]*domain.DuesRecord, error)
	GetDues(ctx context.Context, id string) (*domain.DuesRecord, error)
	CreateDues(ctx context.Context, d *domain.DuesRecord) error
	// VerifyDues 将 pending 记录标记为 verified 并在同一事务内追加收入流水
	VerifyDues(ctx context.Context, scope access.Scope, id string, income *domain.Transaction) error

	ListDeposits(ctx context.Context, scope access.Scope) ([]*domain.WasteDeposit, error)
	CreateDeposit(ctx context.Context, d *domain.WasteDeposit) error

	ListBulletins(ctx context.Context) ([]*domain.Bulletin, error)
	CreateBulletin(ctx context.Context, b *domain.Bulletin) error
	DeleteBulletin(ctx context.Context, id string) error
}

// AdminRolesRepository 管理员账号与角色
type AdminRolesRepository interface {
	GetAdminRole(ctx context.Context, userID string) (*domain.AdminRole, error)
	GetAdminUserByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	// UpsertAdmin 创建或覆盖账号与角色（种子数据 / 设置页）
	UpsertAdmin(ctx context.Context, user *domain.AdminUser, role *domain.AdminRole) error
}

const pqUniqueViolation = "23505"

// isUniqueViolation 判断是否为 PostgreSQL 唯一约束冲突
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
