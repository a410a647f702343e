package service

import (
	"context"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/notify"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// ReportService 紧急报告（panic button）服务接口
type ReportService interface {
	// Submit 保存并异步推送
	Submit(ctx context.Context, req SubmitReportRequest) (*domain.IncidentReport, error)
	List(ctx context.Context, p *access.Principal) ([]*domain.IncidentReport, error)
	UpdateStatus(ctx context.Context, p *access.Principal, id, status string) error
	Delete(ctx context.Context, p *access.Principal, id string) error
}

type reportService struct {
	ledger     repository.LedgerRepository
	access     AccessService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewReportService 创建 ReportService
func NewReportService(ledger repository.LedgerRepository, accessSvc AccessService, dispatcher *notify.Dispatcher, logger *zap.Logger) ReportService {
	return &reportService{ledger: ledger, access: accessSvc, dispatcher: dispatcher, logger: logger}
}

// SubmitReportRequest 报告
type SubmitReportRequest struct {
	ReporterName string                `json:"reporter_name"`
	Location     string                `json:"location"`
	Kind         string                `json:"kind"`
	Description  string                `json:"description"`
	Subdivision  string                `json:"subdivision"`
	Geo          *domain.GeoCoordinate `json:"geo,omitempty"`
}

// 状态只能向前推进
var reportTransitions = map[string][]string{
	domain.ReportStatusPending:    {domain.ReportStatusProcessing, domain.ReportStatusDone},
	domain.ReportStatusProcessing: {domain.ReportStatusDone},
}

func (s *reportService) Submit(ctx context.Context, req SubmitReportRequest) (*domain.IncidentReport, error) {
	r := &domain.IncidentReport{
		ReporterName: strings.TrimSpace(req.ReporterName),
		Location:     strings.TrimSpace(req.Location),
		Kind:         strings.TrimSpace(req.Kind),
		Description:  strings.TrimSpace(req.Description),
		Subdivision:  strings.TrimSpace(req.Subdivision),
		Geo:          req.Geo,
		Status:       domain.ReportStatusPending,
	}
	if r.ReporterName == "" {
		return nil, invalid("reporter_name", "is required")
	}
	if r.Location == "" {
		return nil, invalid("location", "is required")
	}
	if r.Subdivision == "" {
		return nil, invalid("subdivision", "is required")
	}
	if r.Kind == "" {
		r.Kind = "Darurat"
	}
	if err := s.ledger.CreateReport(ctx, r); err != nil {
		s.logger.Error("Failed to create incident report", zap.Error(err))
		return nil, transient("create report", err)
	}

	s.logger.Warn("Incident reported",
		zap.String("id", r.ID),
		zap.String("kind", r.Kind),
		zap.String("subdivision", r.Subdivision),
	)
	s.dispatcher.Fire(ctx, notify.Message{
		Kind:        notify.KindIncident,
		Title:       r.Kind,
		Body:        r.Location + " - " + r.ReporterName + "\n" + r.Description,
		Subdivision: r.Subdivision,
	})
	return r, nil
}

func (s *reportService) List(ctx context.Context, p *access.Principal) ([]*domain.IncidentReport, error) {
	items, err := s.ledger.ListReports(ctx, p.Scope)
	if err != nil {
		s.logger.Error("Failed to list reports", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list reports", err)
	}
	return items, nil
}

func (s *reportService) UpdateStatus(ctx context.Context, p *access.Principal, id, status string) error {
	r, err := s.ledger.GetReport(ctx, id)
	if err != nil {
		return mapRepoErr("get report", err)
	}
	if err := s.access.CheckScope(p, r.Subdivision); err != nil {
		return err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	allowed := false
	for _, next := range reportTransitions[r.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return invalid("status", "cannot move from %s to %s", r.Status, status)
	}
	if err := s.ledger.UpdateReportStatus(ctx, p.Scope, id, status); err != nil {
		return mapRepoErr("update report", err)
	}
	return nil
}

func (s *reportService) Delete(ctx context.Context, p *access.Principal, id string) error {
	r, err := s.ledger.GetReport(ctx, id)
	if err != nil {
		return mapRepoErr("get report", err)
	}
	if err := s.access.CheckScope(p, r.Subdivision); err != nil {
		return err
	}
	if err := s.ledger.DeleteReport(ctx, p.Scope, id); err != nil {
		return mapRepoErr("delete report", err)
	}
	return nil
}
