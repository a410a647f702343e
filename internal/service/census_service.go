package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/export"
	"github.com/Fadhlan-athha/manajemen-warga/internal/household"
	"github.com/Fadhlan-athha/manajemen-warga/internal/metrics"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/storage"

	"go.uber.org/zap"
)

// CensusService 居民数据（pendataan）服务接口
type CensusService interface {
	// 公开接口
	SubmitHousehold(ctx context.Context, req SubmitHouseholdRequest) (*SubmitHouseholdResponse, error)
	CheckExisting(ctx context.Context, field, value string) (bool, error)
	Lookup(ctx context.Context, nationalID string) (*PersonLookup, error)

	// 管理接口（调用者已通过 people 功能检查）
	ListPeople(ctx context.Context, p *access.Principal, filter repository.PeopleFilter) ([]*domain.Person, error)
	ListHouseholds(ctx context.Context, p *access.Principal, filter repository.PeopleFilter) ([]*domain.Household, error)
	CreatePerson(ctx context.Context, p *access.Principal, req PersonInput) (*domain.Person, error)
	UpdatePerson(ctx context.Context, p *access.Principal, id string, req PersonInput) (*domain.Person, error)
	DeletePerson(ctx context.Context, p *access.Principal, id string) error
	Stats(ctx context.Context, p *access.Principal) (*household.Stats, error)
	ExportPeople(ctx context.Context, p *access.Principal) ([]byte, error)
}

type censusService struct {
	people   repository.PeopleRepository
	guard    *DuplicateGuard
	access   AccessService
	uploader storage.Uploader
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCensusService 创建 CensusService
func NewCensusService(people repository.PeopleRepository, accessSvc AccessService, uploader storage.Uploader, m *metrics.Metrics, logger *zap.Logger) CensusService {
	return &censusService{
		people:   people,
		guard:    NewDuplicateGuard(people, logger),
		access:   accessSvc,
		uploader: uploader,
		metrics:  m,
		logger:   logger,
	}
}

// Upload 上传文件
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// MemberInput 户内成员
type MemberInput struct {
	NationalID    string `json:"national_id"`
	FullName      string `json:"full_name"`
	Sex           string `json:"sex"`
	Role          string `json:"role"`
	BirthPlace    string `json:"birth_place"`
	BirthDate     string `json:"birth_date"` // YYYY-MM-DD
	Religion      string `json:"religion"`
	Occupation    string `json:"occupation"`
	MaritalStatus string `json:"marital_status"`
	BloodType     string `json:"blood_type"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

// SubmitHouseholdRequest 整户提交
type SubmitHouseholdRequest struct {
	FamilyCardNumber string                `json:"family_card_number"`
	Subdivision      string                `json:"subdivision"`
	Block            string                `json:"block"`
	Address          string                `json:"address"`
	HouseNumber      string                `json:"house_number"`
	ResidencyStatus  string                `json:"residency_status"`
	Geo              *domain.GeoCoordinate `json:"geo,omitempty"`
	Members          []MemberInput         `json:"members"`
	ConfirmOverwrite bool                  `json:"confirm_overwrite"`
	Photo            *Upload               `json:"-"`
}

// SubmitHouseholdResponse 提交结果
type SubmitHouseholdResponse struct {
	FamilyCardNumber string   `json:"family_card_number"`
	NationalIDs      []string `json:"national_ids"`
	Overwritten      bool     `json:"overwritten"`
	PhotoURL         string   `json:"photo_url,omitempty"`
}

// PersonLookup 公开的姓名自动填充结果（只暴露最少字段）
type PersonLookup struct {
	NationalID  string `json:"national_id"`
	FullName    string `json:"full_name"`
	Subdivision string `json:"subdivision"`
}

// PersonInput 管理端单条居民写入
type PersonInput struct {
	MemberInput
	FamilyCardNumber string                `json:"family_card_number"`
	Subdivision      string                `json:"subdivision"`
	Block            string                `json:"block"`
	Address          string                `json:"address"`
	HouseNumber      string                `json:"house_number"`
	ResidencyStatus  string                `json:"residency_status"`
	Geo              *domain.GeoCoordinate `json:"geo,omitempty"`
}

func (s *censusService) CheckExisting(ctx context.Context, field, value string) (bool, error) {
	return s.guard.CheckExisting(ctx, field, value)
}

// SubmitHousehold runs the duplicate gate and writes the household. Without
// ConfirmOverwrite any existing identity aborts the write with a ConflictError.
func (s *censusService) SubmitHousehold(ctx context.Context, req SubmitHouseholdRequest) (*SubmitHouseholdResponse, error) {
	people, err := s.buildHousehold(req)
	if err != nil {
		s.metrics.IncrementSubmission("invalid")
		return nil, err
	}
	niks := make([]string, 0, len(people))
	for _, p := range people {
		niks = append(niks, p.NationalID)
	}

	if !req.ConfirmOverwrite {
		conflicts, err := s.guard.Conflicts(ctx, req.FamilyCardNumber, niks)
		if err != nil {
			s.metrics.IncrementSubmission("failed")
			return nil, err
		}
		if len(conflicts) > 0 {
			s.metrics.IncrementSubmission("conflict")
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	resp := &SubmitHouseholdResponse{
		FamilyCardNumber: req.FamilyCardNumber,
		NationalIDs:      niks,
		Overwritten:      req.ConfirmOverwrite,
	}
	if req.Photo != nil {
		url, err := s.storePhoto(ctx, req.Photo)
		if err != nil {
			s.metrics.IncrementSubmission("failed")
			return nil, err
		}
		resp.PhotoURL = url
		for _, p := range people {
			p.FamilyCardPhotoRef = url
		}
	}

	if req.ConfirmOverwrite {
		err = s.people.UpsertPeople(ctx, people)
	} else {
		err = s.people.InsertPeople(ctx, people)
	}
	if err != nil {
		logOrphanedUpload(s.logger, resp.PhotoURL, err)
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			// a concurrent submission won the race after the gate passed
			s.metrics.IncrementSubmission("conflict")
			return nil, &ConflictError{Conflicts: []Conflict{{Field: dup.Field, Value: dup.Value}}}
		}
		s.metrics.IncrementSubmission("failed")
		s.logger.Error("Failed to write household",
			zap.String("family_card_number", req.FamilyCardNumber),
			zap.Bool("overwrite", req.ConfirmOverwrite),
			zap.Error(err),
		)
		return nil, transient("write household", err)
	}

	if req.ConfirmOverwrite {
		s.metrics.IncrementSubmission("overwritten")
	} else {
		s.metrics.IncrementSubmission("inserted")
	}
	s.logger.Info("Household submitted",
		zap.String("family_card_number", req.FamilyCardNumber),
		zap.String("subdivision", req.Subdivision),
		zap.Int("members", len(people)),
		zap.Bool("overwrite", req.ConfirmOverwrite),
	)
	return resp, nil
}

func (s *censusService) storePhoto(ctx context.Context, photo *Upload) (string, error) {
	if s.uploader == nil || !s.uploader.Enabled() {
		s.logger.Warn("Family card photo dropped: storage not configured", zap.String("filename", photo.Filename))
		return "", nil
	}
	url, err := s.uploader.Store(ctx, storage.ObjectKey("kk", photo.Filename), photo.ContentType, photo.Body)
	if err != nil {
		s.logger.Error("Failed to upload family card photo", zap.Error(err))
		return "", transient("upload photo", err)
	}
	return url, nil
}

// logOrphanedUpload 记录写库失败后残留在对象存储中的文件，供人工清理
func logOrphanedUpload(logger *zap.Logger, url string, cause error) {
	if url == "" {
		return
	}
	logger.Warn("Uploaded object orphaned by failed write",
		zap.String("object_url", url),
		zap.NamedError("cause", cause),
	)
}

func (s *censusService) buildHousehold(req SubmitHouseholdRequest) ([]*domain.Person, error) {
	req.FamilyCardNumber = strings.TrimSpace(req.FamilyCardNumber)
	if !domain.IsIdentityNumber(req.FamilyCardNumber) {
		return nil, invalid("family_card_number", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	if strings.TrimSpace(req.Subdivision) == "" {
		return nil, invalid("subdivision", "is required")
	}
	if len(req.Members) == 0 {
		return nil, invalid("members", "at least one member is required")
	}

	seen := make(map[string]bool, len(req.Members))
	people := make([]*domain.Person, 0, len(req.Members))
	for _, m := range req.Members {
		p, err := personFromInput(PersonInput{
			MemberInput:      m,
			FamilyCardNumber: req.FamilyCardNumber,
			Subdivision:      req.Subdivision,
			Block:            req.Block,
			Address:          req.Address,
			HouseNumber:      req.HouseNumber,
			ResidencyStatus:  req.ResidencyStatus,
			Geo:              req.Geo,
		})
		if err != nil {
			return nil, err
		}
		if seen[p.NationalID] {
			return nil, invalid("national_id", "%s appears twice in the household", p.NationalID)
		}
		seen[p.NationalID] = true
		people = append(people, p)
	}
	return people, nil
}

func personFromInput(in PersonInput) (*domain.Person, error) {
	nik := strings.TrimSpace(in.NationalID)
	if !domain.IsIdentityNumber(nik) {
		return nil, invalid("national_id", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	kk := strings.TrimSpace(in.FamilyCardNumber)
	if kk != "" && !domain.IsIdentityNumber(kk) {
		return nil, invalid("family_card_number", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, invalid("full_name", "is required")
	}
	subdivision := strings.TrimSpace(in.Subdivision)
	if subdivision == "" {
		return nil, invalid("subdivision", "is required")
	}

	p := &domain.Person{
		NationalID:       nik,
		FamilyCardNumber: kk,
		FullName:         name,
		Sex:              strings.TrimSpace(in.Sex),
		Role:             domain.ParseFamilyRole(in.Role),
		Subdivision:      subdivision,
		Block:            strings.TrimSpace(in.Block),
		Address:          strings.TrimSpace(in.Address),
		HouseNumber:      strings.TrimSpace(in.HouseNumber),
		ResidencyStatus:  strings.TrimSpace(in.ResidencyStatus),
		BirthPlace:       strings.TrimSpace(in.BirthPlace),
		Religion:         strings.TrimSpace(in.Religion),
		Occupation:       strings.TrimSpace(in.Occupation),
		MaritalStatus:    strings.TrimSpace(in.MaritalStatus),
		BloodType:        strings.TrimSpace(in.BloodType),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.TrimSpace(in.Email),
		Geo:              in.Geo,
	}
	if d := strings.TrimSpace(in.BirthDate); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, invalid("birth_date", "must be YYYY-MM-DD")
		}
		p.BirthDate = &t
	}
	if in.Geo != nil && (in.Geo.Latitude < -90 || in.Geo.Latitude > 90 || in.Geo.Longitude < -180 || in.Geo.Longitude > 180) {
		return nil, invalid("geo", "coordinate out of range")
	}
	return p, nil
}

// Lookup 按 NIK 自动填充姓名（信件/iuran/垃圾银行表单）
func (s *censusService) Lookup(ctx context.Context, nationalID string) (*PersonLookup, error) {
	p, err := findPerson(ctx, s.people, nationalID)
	if err != nil {
		return nil, err
	}
	return &PersonLookup{NationalID: p.NationalID, FullName: p.FullName, Subdivision: p.Subdivision}, nil
}

// findPerson is shared by every form that autofills from the people collection.
func findPerson(ctx context.Context, people repository.PeopleRepository, nationalID string) (*domain.Person, error) {
	nationalID = strings.TrimSpace(nationalID)
	if !domain.IsIdentityNumber(nationalID) {
		return nil, invalid("national_id", "must be exactly %d digits", domain.IdentityNumberLength)
	}
	p, err := people.GetByNationalID(ctx, nationalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("lookup person", err)
	}
	return p, nil
}

func (s *censusService) ListPeople(ctx context.Context, p *access.Principal, filter repository.PeopleFilter) ([]*domain.Person, error) {
	people, err := s.people.ListPeople(ctx, p.Scope, filter)
	if err != nil {
		s.logger.Error("Failed to list people", zap.String("scope", p.Scope.String()), zap.Error(err))
		return nil, transient("list people", err)
	}
	return people, nil
}

func (s *censusService) ListHouseholds(ctx context.Context, p *access.Principal, filter repository.PeopleFilter) ([]*domain.Household, error) {
	// 先分组再搜索：只命中子女时也要保留整户和真实户主
	term := strings.TrimSpace(filter.Search)
	filter.Search = ""
	people, err := s.ListPeople(ctx, p, filter)
	if err != nil {
		return nil, err
	}
	households := household.Ordered(household.BuildHouseholds(people))
	if term == "" {
		return households, nil
	}
	return household.Search(households, household.MatchTerm(term)), nil
}

func (s *censusService) CreatePerson(ctx context.Context, p *access.Principal, req PersonInput) (*domain.Person, error) {
	person, err := personFromInput(req)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckScope(p, person.Subdivision); err != nil {
		return nil, err
	}
	if err := s.people.InsertPeople(ctx, []*domain.Person{person}); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, &ConflictError{Conflicts: []Conflict{{Field: dup.Field, Value: dup.Value}}}
		}
		s.logger.Error("Failed to create person", zap.Error(err))
		return nil, transient("create person", err)
	}
	return person, nil
}

// UpdatePerson checks both the stored and the requested subdivision against scope.
func (s *censusService) UpdatePerson(ctx context.Context, p *access.Principal, id string, req PersonInput) (*domain.Person, error) {
	current, err := s.getPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckScope(p, current.Subdivision); err != nil {
		return nil, err
	}
	person, err := personFromInput(req)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckScope(p, person.Subdivision); err != nil {
		return nil, err
	}
	person.ID = current.ID
	if err := s.people.UpdatePerson(ctx, p.Scope, person); err != nil {
		var dup *repository.DuplicateError
		switch {
		case errors.As(err, &dup):
			return nil, &ConflictError{Conflicts: []Conflict{{Field: dup.Field, Value: dup.Value}}}
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to update person", zap.String("id", id), zap.Error(err))
		return nil, transient("update person", err)
	}
	return person, nil
}

func (s *censusService) DeletePerson(ctx context.Context, p *access.Principal, id string) error {
	current, err := s.getPerson(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.CheckScope(p, current.Subdivision); err != nil {
		return err
	}
	if err := s.people.DeletePerson(ctx, p.Scope, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("Failed to delete person", zap.String("id", id), zap.Error(err))
		return transient("delete person", err)
	}
	s.logger.Info("Person deleted",
		zap.String("id", id),
		zap.String("by", p.UserID),
		zap.String("subdivision", current.Subdivision),
	)
	return nil
}

func (s *censusService) getPerson(ctx context.Context, id string) (*domain.Person, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "is required")
	}
	person, err := s.people.GetPerson(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("get person", err)
	}
	return person, nil
}

func (s *censusService) Stats(ctx context.Context, p *access.Principal) (*household.Stats, error) {
	people, err := s.ListPeople(ctx, p, repository.PeopleFilter{})
	if err != nil {
		return nil, err
	}
	st := household.Summarize(people)
	return &st, nil
}

func (s *censusService) ExportPeople(ctx context.Context, p *access.Principal) ([]byte, error) {
	people, err := s.ListPeople(ctx, p, repository.PeopleFilter{})
	if err != nil {
		return nil, err
	}
	data, err := export.PeopleWorkbook(people)
	if err != nil {
		s.logger.Error("Failed to build people workbook", zap.Error(err))
		return nil, err
	}
	return data, nil
}
