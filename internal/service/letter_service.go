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

// LetterService 证明信（surat pengantar）服务接口
type LetterService interface {
	Submit(ctx context.Context, req SubmitLetterRequest) (*domain.LetterRequest, error)
	// Track 公开：按 NIK 查询本人申请
	Track(ctx context.Context, nationalID string) ([]*domain.LetterRequest, error)
	List(ctx context.Context, p *access.Principal) ([]*domain.LetterRequest, error)
	Approve(ctx context.Context, p *access.Principal, id string, req ApproveLetterRequest) (*domain.LetterRequest, error)
	Reject(ctx context.Context, p *access.Principal, id string) (*domain.LetterRequest, error)
}

type letterService struct {
	ledger   repository.LedgerRepository
	people   repository.PeopleRepository
	access   AccessService
	uploader storage.Uploader
	now      func() time.Time
	logger   *zap.Logger
}

// NewLetterService 创建 LetterService
func NewLetterService(ledger repository.LedgerRepository, people repository.PeopleRepository, accessSvc AccessService, uploader storage.Uploader, logger *zap.Logger) LetterService {
	return &letterService{ledger: ledger, people: people, access: accessSvc, uploader: uploader, now: time.Now, logger: logger}
}

// SubmitLetterRequest 申请
type SubmitLetterRequest struct {
	NationalID string `json:"national_id"`
	LetterType string `json:"letter_type"`
	Purpose    string `json:"purpose"`
}

// ApproveLetterRequest 审批；LetterNumber 为序号（如 "001"）或完整编号
type ApproveLetterRequest struct {
	LetterNumber string  `json:"letter_number"`
	Document     *Upload `json:"-"`
}

// Submit requires a registered resident; name and subdivision come from the people record.
func (s *letterService) Submit(ctx context.Context, req SubmitLetterRequest) (*domain.LetterRequest, error) {
	letterType := strings.TrimSpace(req.LetterType)
	if letterType == "" {
		return nil, invalid("letter_type", "is required")
	}
	person, err := findPerson(ctx, s.people, req.NationalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("national_id", "is not registered")
		}
		return nil, err
	}
	l := &domain.LetterRequest{
		NationalID:  person.NationalID,
		FullName:    person.FullName,
		LetterType:  letterType,
		Purpose:     strings.TrimSpace(req.Purpose),
		Status:      domain.LetterStatusPending,
		Subdivision: person.Subdivision,
	}
	if err := s.ledger.CreateLetter(ctx, l); err != nil {
		s.logger.Error("Failed to create letter request", zap.Error(err))
		return nil, transient("create letter", err)
	}
	return l, nil
}

func (s *letterService) Track(ctx context.Context, nationalID string) ([]*domain.LetterRequest, error) {
	nationalID = strings.TrimSpace(nationalID)
	if !domain.IsIdentityNumber(nationalID) {
		return nil, invalid("national_id", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	items, err := s.ledger.ListLetters(ctx, access.AllSubdivisions(), nationalID)
	if err != nil {
		return nil, transient("track letters", err)
	}
	return items, nil
}

func (s *letterService) List(ctx context.Context, p *access.Principal) ([]*domain.LetterRequest, error) {
	items, err := s.ledger.ListLetters(ctx, p.Scope, "")
	if err != nil {
		s.logger.Error("Failed to list letters", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list letters", err)
	}
	return items, nil
}

func (s *letterService) Approve(ctx context.Context, p *access.Principal, id string, req ApproveLetterRequest) (*domain.LetterRequest, error) {
	number := strings.TrimSpace(req.LetterNumber)
	if number == "" {
		return nil, invalid("letter_number", "is required")
	}
	l, err := s.pending(ctx, p, id)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LetterStatusApproved
	l.LetterNumber = FormatLetterNumber(number, l.Subdivision, s.now())

	if req.Document != nil && s.uploader != nil && s.uploader.Enabled() {
		url, err := s.uploader.Store(ctx, storage.ObjectKey("surat", req.Document.Filename), req.Document.ContentType, req.Document.Body)
		if err != nil {
			s.logger.Error("Failed to upload letter document", zap.Error(err))
			return nil, transient("upload document", err)
		}
		l.DocumentURL = url
	}
	if err := s.ledger.DecideLetter(ctx, p.Scope, l); err != nil {
		logOrphanedUpload(s.logger, l.DocumentURL, err)
		return nil, mapRepoErr("approve letter", err)
	}
	s.logger.Info("Letter approved", zap.String("id", id), zap.String("number", l.LetterNumber), zap.String("by", p.UserID))
	return l, nil
}

func (s *letterService) Reject(ctx context.Context, p *access.Principal, id string) (*domain.LetterRequest, error) {
	l, err := s.pending(ctx, p, id)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LetterStatusRejected
	if err := s.ledger.DecideLetter(ctx, p.Scope, l); err != nil {
		return nil, mapRepoErr("reject letter", err)
	}
	return l, nil
}

func (s *letterService) pending(ctx context.Context, p *access.Principal, id string) (*domain.LetterRequest, error) {
	l, err := s.ledger.GetLetter(ctx, id)
	if err != nil {
		return nil, mapRepoErr("get letter", err)
	}
	if err := s.access.CheckScope(p, l.Subdivision); err != nil {
		return nil, err
	}
	if l.Status != domain.LetterStatusPending {
		return nil, &ConflictError{Conflicts: []Conflict{{Field: "status", Value: l.Status}}}
	}
	return l, nil
}

// FormatLetterNumber expands a sequence like "001" into "001/RT.02/2026". A number
// that already contains "/" is kept as entered.
func FormatLetterNumber(number, subdivision string, at time.Time) string {
	if strings.Contains(number, "/") {
		return number
	}
	return fmt.Sprintf("%s/RT.%s/%d", number, subdivision, at.Year())
}
