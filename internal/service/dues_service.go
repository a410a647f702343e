package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/storage"

	"go.uber.org/zap"
)

// DuesService iuran（居民缴费）服务接口
type DuesService interface {
	Submit(ctx context.Context, req SubmitDuesRequest) (*domain.DuesRecord, error)
	List(ctx context.Context, p *access.Principal) ([]*domain.DuesRecord, error)
	// Verify 标记为已核实，并在同一 RT 追加一条 "Iuran Warga" 收入
	Verify(ctx context.Context, p *access.Principal, id string) (*domain.DuesRecord, error)
}

type duesService struct {
	ledger   repository.LedgerRepository
	people   repository.PeopleRepository
	access   AccessService
	uploader storage.Uploader
	logger   *zap.Logger
}

// NewDuesService 创建 DuesService
func NewDuesService(ledger repository.LedgerRepository, people repository.PeopleRepository, accessSvc AccessService, uploader storage.Uploader, logger *zap.Logger) DuesService {
	return &duesService{ledger: ledger, people: people, access: accessSvc, uploader: uploader, logger: logger}
}

// SubmitDuesRequest 居民提交缴费
type SubmitDuesRequest struct {
	NationalID  string  `json:"national_id"`
	FullName    string  `json:"full_name"`
	Period      string  `json:"period"` // YYYY-MM
	Amount      int64   `json:"amount"`
	Subdivision string  `json:"subdivision"`
	Proof       *Upload `json:"-"`
}

func (s *duesService) Submit(ctx context.Context, req SubmitDuesRequest) (*domain.DuesRecord, error) {
	if _, err := time.Parse("2006-01", strings.TrimSpace(req.Period)); err != nil {
		return nil, invalid("period", "must be YYYY-MM")
	}
	if req.Amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	name, subdivision, err := resolveResident(ctx, s.people, req.NationalID, req.FullName, req.Subdivision)
	if err != nil {
		return nil, err
	}

	rec := &domain.DuesRecord{
		NationalID:  strings.TrimSpace(req.NationalID),
		FullName:    name,
		Period:      strings.TrimSpace(req.Period),
		Amount:      req.Amount,
		Status:      domain.DuesStatusPending,
		Subdivision: subdivision,
	}
	if req.Proof != nil && s.uploader != nil && s.uploader.Enabled() {
		url, err := s.uploader.Store(ctx, storage.ObjectKey("iuran", req.Proof.Filename), req.Proof.ContentType, req.Proof.Body)
		if err != nil {
			s.logger.Error("Failed to upload dues proof", zap.Error(err))
			return nil, transient("upload proof", err)
		}
		rec.ProofURL = url
	}
	if err := s.ledger.CreateDues(ctx, rec); err != nil {
		s.logger.Error("Failed to create dues record", zap.Error(err))
		return nil, transient("create dues", err)
	}
	return rec, nil
}

func (s *duesService) List(ctx context.Context, p *access.Principal) ([]*domain.DuesRecord, error) {
	items, err := s.ledger.ListDues(ctx, p.Scope)
	if err != nil {
		s.logger.Error("Failed to list dues", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list dues", err)
	}
	return items, nil
}

func (s *duesService) Verify(ctx context.Context, p *access.Principal, id string) (*domain.DuesRecord, error) {
	rec, err := s.ledger.GetDues(ctx, id)
	if err != nil {
		return nil, mapRepoErr("get dues", err)
	}
	if err := s.access.CheckScope(p, rec.Subdivision); err != nil {
		return nil, err
	}
	income := &domain.Transaction{
		Type:        domain.TransactionIncome,
		Category:    domain.DuesCategory,
		Amount:      rec.Amount,
		Note:        fmt.Sprintf("Iuran %s - %s", rec.Period, rec.FullName),
		Subdivision: rec.Subdivision,
	}
	if err := s.ledger.VerifyDues(ctx, p.Scope, id, income); err != nil {
		return nil, mapRepoErr("verify dues", err)
	}
	rec.Status = domain.DuesStatusVerified
	s.logger.Info("Dues verified",
		zap.String("id", id),
		zap.String("by", p.UserID),
		zap.Int64("amount", rec.Amount),
	)
	return rec, nil
}

// resolveResident autofills name and subdivision from the people collection. An
// unregistered national ID is accepted only when both are supplied.
func resolveResident(ctx context.Context, people repository.PeopleRepository, nationalID, name, subdivision string) (string, string, error) {
	name = strings.TrimSpace(name)
	subdivision = strings.TrimSpace(subdivision)
	p, err := findPerson(ctx, people, nationalID)
	switch {
	case err == nil:
		if name == "" {
			name = p.FullName
		}
		if p.Subdivision != "" {
			subdivision = p.Subdivision
		}
	case errors.Is(err, ErrNotFound):
	default:
		return "", "", err
	}
	if name == "" {
		return "", "", invalid("full_name", "is required for an unregistered national_id")
	}
	if subdivision == "" {
		return "", "", invalid("subdivision", "is required for an unregistered national_id")
	}
	return name, subdivision, nil
}
