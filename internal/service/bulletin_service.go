package service

import (
	"context"
	"strings"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/notify"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// BulletinService 公告服务（不区分 RT）
type BulletinService interface {
	List(ctx context.Context) ([]*domain.Bulletin, error)
	Create(ctx context.Context, p *access.Principal, req CreateBulletinRequest) (*domain.Bulletin, error)
	Delete(ctx context.Context, p *access.Principal, id string) error
}

type bulletinService struct {
	ledger     repository.LedgerRepository
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewBulletinService 创建 BulletinService
func NewBulletinService(ledger repository.LedgerRepository, dispatcher *notify.Dispatcher, logger *zap.Logger) BulletinService {
	return &bulletinService{ledger: ledger, dispatcher: dispatcher, logger: logger}
}

// CreateBulletinRequest 新公告
type CreateBulletinRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	EventDate string `json:"event_date"` // YYYY-MM-DD，可选
	Broadcast bool   `json:"broadcast"`
}

func (s *bulletinService) List(ctx context.Context) ([]*domain.Bulletin, error) {
	items, err := s.ledger.ListBulletins(ctx)
	if err != nil {
		s.logger.Error("Failed to list bulletins", zap.Error(err))
		return nil, transient("list bulletins", err)
	}
	return items, nil
}

func (s *bulletinService) Create(ctx context.Context, p *access.Principal, req CreateBulletinRequest) (*domain.Bulletin, error) {
	b := &domain.Bulletin{
		Title:    strings.TrimSpace(req.Title),
		Body:     strings.TrimSpace(req.Body),
		Category: strings.TrimSpace(req.Category),
	}
	if b.Title == "" {
		return nil, invalid("title", "is required")
	}
	if b.Body == "" {
		return nil, invalid("body", "is required")
	}
	if d := strings.TrimSpace(req.EventDate); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, invalid("event_date", "must be YYYY-MM-DD")
		}
		b.EventDate = &t
	}
	if err := s.ledger.CreateBulletin(ctx, b); err != nil {
		s.logger.Error("Failed to create bulletin", zap.Error(err))
		return nil, transient("create bulletin", err)
	}
	s.logger.Info("Bulletin published", zap.String("id", b.ID), zap.String("by", p.UserID))
	if req.Broadcast {
		s.dispatcher.Fire(ctx, notify.Message{Kind: notify.KindBulletin, Title: b.Title, Body: b.Body})
	}
	return b, nil
}

func (s *bulletinService) Delete(ctx context.Context, p *access.Principal, id string) error {
	if err := s.ledger.DeleteBulletin(ctx, id); err != nil {
		return mapRepoErr("delete bulletin", err)
	}
	s.logger.Info("Bulletin deleted", zap.String("id", id), zap.String("by", p.UserID))
	return nil
}
