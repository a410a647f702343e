package service

import (
	"context"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/wastebank"

	"go.uber.org/zap"
)

// WasteBankService 垃圾银行服务接口
type WasteBankService interface {
	Prices() []MaterialPrice
	Deposit(ctx context.Context, p *access.Principal, req DepositRequest) (*domain.WasteDeposit, error)
	List(ctx context.Context, p *access.Principal) ([]*domain.WasteDeposit, error)
	// Balance / Leaderboard 公开，全 RW 数据
	Balance(ctx context.Context, nationalID string) (*wastebank.BalanceSummary, error)
	Leaderboard(ctx context.Context) ([]wastebank.LeaderboardEntry, error)
}

type wasteBankService struct {
	ledger repository.LedgerRepository
	people repository.PeopleRepository
	access AccessService
	prices wastebank.PriceTable
	logger *zap.Logger
}

// NewWasteBankService 创建 WasteBankService；prices 为空时使用默认价目表
func NewWasteBankService(ledger repository.LedgerRepository, people repository.PeopleRepository, accessSvc AccessService, prices wastebank.PriceTable, logger *zap.Logger) WasteBankService {
	if len(prices) == 0 {
		prices = wastebank.DefaultPrices
	}
	return &wasteBankService{ledger: ledger, people: people, access: accessSvc, prices: prices, logger: logger}
}

// MaterialPrice 价目表条目
type MaterialPrice struct {
	Material  string `json:"material"`
	UnitPrice int64  `json:"unit_price"`
}

// DepositRequest 存入
type DepositRequest struct {
	NationalID    string  `json:"national_id"`
	DepositorName string  `json:"depositor_name"`
	MaterialType  string  `json:"material_type"`
	WeightKg      float64 `json:"weight_kg"`
	Subdivision   string  `json:"subdivision"`
}

func (s *wasteBankService) Prices() []MaterialPrice {
	out := make([]MaterialPrice, 0, len(s.prices))
	for _, m := range s.prices.Materials() {
		out = append(out, MaterialPrice{Material: m, UnitPrice: s.prices[m]})
	}
	return out
}

func (s *wasteBankService) Deposit(ctx context.Context, p *access.Principal, req DepositRequest) (*domain.WasteDeposit, error) {
	if req.WeightKg <= 0 {
		return nil, invalid("weight_kg", "must be positive")
	}
	material := strings.TrimSpace(req.MaterialType)
	price, err := s.prices.UnitPrice(material)
	if err != nil {
		return nil, invalid("material_type", "%v", err)
	}
	name, subdivision, err := resolveResident(ctx, s.people, req.NationalID, req.DepositorName, req.Subdivision)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckScope(p, subdivision); err != nil {
		return nil, err
	}

	d := &domain.WasteDeposit{
		NationalID:    strings.TrimSpace(req.NationalID),
		DepositorName: name,
		MaterialType:  material,
		WeightKg:      req.WeightKg,
		UnitPrice:     price,
		TotalValue:    wastebank.TotalValue(req.WeightKg, price),
		Subdivision:   subdivision,
	}
	if err := s.ledger.CreateDeposit(ctx, d); err != nil {
		s.logger.Error("Failed to create waste deposit", zap.Error(err))
		return nil, transient("create deposit", err)
	}
	return d, nil
}

func (s *wasteBankService) List(ctx context.Context, p *access.Principal) ([]*domain.WasteDeposit, error) {
	items, err := s.ledger.ListDeposits(ctx, p.Scope)
	if err != nil {
		s.logger.Error("Failed to list deposits", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list deposits", err)
	}
	return items, nil
}

func (s *wasteBankService) Balance(ctx context.Context, nationalID string) (*wastebank.BalanceSummary, error) {
	nationalID = strings.TrimSpace(nationalID)
	if !domain.IsIdentityNumber(nationalID) {
		return nil, invalid("national_id", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	deposits, err := s.ledger.ListDeposits(ctx, access.AllSubdivisions())
	if err != nil {
		return nil, transient("waste balance", err)
	}
	b := wastebank.Balance(deposits, nationalID)
	return &b, nil
}

func (s *wasteBankService) Leaderboard(ctx context.Context) ([]wastebank.LeaderboardEntry, error) {
	deposits, err := s.ledger.ListDeposits(ctx, access.AllSubdivisions())
	if err != nil {
		s.logger.Error("Failed to list deposits for leaderboard", zap.Error(err))
		return nil, transient("leaderboard", err)
	}
	return wastebank.Rank(deposits), nil
}
