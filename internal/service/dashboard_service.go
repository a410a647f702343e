package service

import (
	"context"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/household"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// DashboardService 仪表盘统计（全部按调用者范围计算）
type DashboardService interface {
	Stats(ctx context.Context, p *access.Principal) (*DashboardStats, error)
}

type dashboardService struct {
	people repository.PeopleRepository
	ledger repository.LedgerRepository
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService
func NewDashboardService(people repository.PeopleRepository, ledger repository.LedgerRepository, logger *zap.Logger) DashboardService {
	return &dashboardService{people: people, ledger: ledger, logger: logger}
}

// DashboardStats 仪表盘数据
type DashboardStats struct {
	Population     household.Stats       `json:"population"`
	Finance        domain.FinanceSummary `json:"finance"`
	WasteKg        float64               `json:"waste_kg"`
	WasteValue     int64                 `json:"waste_value"`
	PendingDues    int                   `json:"pending_dues"`
	PendingLetters int                   `json:"pending_letters"`
	OpenReports    int                   `json:"open_reports"`
	Scope          string                `json:"scope"`
}

func (s *dashboardService) Stats(ctx context.Context, p *access.Principal) (*DashboardStats, error) {
	people, err := s.people.ListPeople(ctx, p.Scope, repository.PeopleFilter{})
	if err != nil {
		return nil, s.fail("people", err)
	}
	txs, err := s.ledger.ListTransactions(ctx, p.Scope)
	if err != nil {
		return nil, s.fail("transactions", err)
	}
	deposits, err := s.ledger.ListDeposits(ctx, p.Scope)
	if err != nil {
		return nil, s.fail("deposits", err)
	}
	dues, err := s.ledger.ListDues(ctx, p.Scope)
	if err != nil {
		return nil, s.fail("dues", err)
	}
	letters, err := s.ledger.ListLetters(ctx, p.Scope, "")
	if err != nil {
		return nil, s.fail("letters", err)
	}
	reports, err := s.ledger.ListReports(ctx, p.Scope)
	if err != nil {
		return nil, s.fail("reports", err)
	}

	// 资金与垃圾银行汇总对所有可进入仪表盘的角色可见（含秘书，首页显示 Saldo Kas）
	st := &DashboardStats{
		Population: household.Summarize(people),
		Finance:    domain.Summarize(txs),
		Scope:      p.Scope.String(),
	}
	for _, d := range deposits {
		st.WasteKg += d.WeightKg
		st.WasteValue += d.TotalValue
	}
	for _, d := range dues {
		if d.Status == domain.DuesStatusPending {
			st.PendingDues++
		}
	}
	for _, l := range letters {
		if l.Status == domain.LetterStatusPending {
			st.PendingLetters++
		}
	}
	for _, r := range reports {
		if r.Status != domain.ReportStatusDone {
			st.OpenReports++
		}
	}
	return st, nil
}

func (s *dashboardService) fail(what string, err error) error {
	s.logger.Error("Failed to load dashboard data", zap.String("collection", what), zap.Error(err))
	return transient("dashboard "+what, err)
}
