package service

import (
	"context"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/export"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// FinanceService 财务（kas）服务接口
type FinanceService interface {
	// PublicSummary 公开页：全 RW 汇总
	PublicSummary(ctx context.Context) (*domain.FinanceSummary, error)
	List(ctx context.Context, p *access.Principal) (*FinanceListResponse, error)
	Create(ctx context.Context, p *access.Principal, req CreateTransactionRequest) (*domain.Transaction, error)
	Delete(ctx context.Context, p *access.Principal, id string) error
	Export(ctx context.Context, p *access.Principal) ([]byte, error)
}

type financeService struct {
	ledger repository.LedgerRepository
	access AccessService
	logger *zap.Logger
}

// NewFinanceService 创建 FinanceService
func NewFinanceService(ledger repository.LedgerRepository, accessSvc AccessService, logger *zap.Logger) FinanceService {
	return &financeService{ledger: ledger, access: accessSvc, logger: logger}
}

// FinanceListResponse 流水与汇总（同一范围）
type FinanceListResponse struct {
	Items   []*domain.Transaction `json:"items"`
	Summary domain.FinanceSummary `json:"summary"`
}

// CreateTransactionRequest 新增流水
type CreateTransactionRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Note        string `json:"note"`
	Subdivision string `json:"subdivision"`
}

// ParseTransactionType accepts the stored labels and their English equivalents.
func ParseTransactionType(s string) (domain.TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pemasukan", "income", "in":
		return domain.TransactionIncome, true
	case "pengeluaran", "expense", "out":
		return domain.TransactionExpense, true
	}
	return "", false
}

func (s *financeService) PublicSummary(ctx context.Context) (*domain.FinanceSummary, error) {
	txs, err := s.ledger.ListTransactions(ctx, access.AllSubdivisions())
	if err != nil {
		s.logger.Error("Failed to list transactions", zap.Error(err))
		return nil, transient("finance summary", err)
	}
	sum := domain.Summarize(txs)
	return &sum, nil
}

func (s *financeService) List(ctx context.Context, p *access.Principal) (*FinanceListResponse, error) {
	txs, err := s.ledger.ListTransactions(ctx, p.Scope)
	if err != nil {
		s.logger.Error("Failed to list transactions", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list transactions", err)
	}
	return &FinanceListResponse{Items: txs, Summary: domain.Summarize(txs)}, nil
}

func (s *financeService) Create(ctx context.Context, p *access.Principal, req CreateTransactionRequest) (*domain.Transaction, error) {
	typ, ok := ParseTransactionType(req.Type)
	if !ok {
		return nil, invalid("type", "must be Pemasukan or Pengeluaran")
	}
	if req.Amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, invalid("category", "is required")
	}
	subdivision, err := scopedSubdivision(s.access, p, req.Subdivision)
	if err != nil {
		return nil, err
	}

	t := &domain.Transaction{
		Type:        typ,
		Category:    category,
		Amount:      req.Amount,
		Note:        strings.TrimSpace(req.Note),
		Subdivision: subdivision,
	}
	if err := s.ledger.CreateTransaction(ctx, t); err != nil {
		s.logger.Error("Failed to create transaction", zap.Error(err))
		return nil, transient("create transaction", err)
	}
	return t, nil
}

func (s *financeService) Delete(ctx context.Context, p *access.Principal, id string) error {
	t, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		return mapRepoErr("get transaction", err)
	}
	if err := s.access.CheckScope(p, t.Subdivision); err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(ctx, p.Scope, id); err != nil {
		return mapRepoErr("delete transaction", err)
	}
	return nil
}

func (s *financeService) Export(ctx context.Context, p *access.Principal) ([]byte, error) {
	list, err := s.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return export.FinanceWorkbook(list.Items)
}

// scopedSubdivision fills a missing subdivision from a restricted scope and rejects a
// requested subdivision outside it. Organization-wide callers may leave it empty.
func scopedSubdivision(accessSvc AccessService, p *access.Principal, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" && p.Scope.IsRestricted() {
		return *p.Scope.SubdivisionCode, nil
	}
	if err := accessSvc.CheckScope(p, requested); err != nil {
		return "", err
	}
	return requested, nil
}
