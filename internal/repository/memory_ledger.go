package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/google/uuid"
)

// MemoryLedgerRepo keeps every ledger collection in insertion order when DB is disabled.
type MemoryLedgerRepo struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
	reports      []*domain.IncidentReport
	letters      []*domain.LetterRequest
	dues         []*domain.DuesRecord
	deposits     []*domain.WasteDeposit
	bulletins    []*domain.Bulletin
}

func NewMemoryLedgerRepo() *MemoryLedgerRepo {
	return &MemoryLedgerRepo{}
}

var _ LedgerRepository = (*MemoryLedgerRepo)(nil)

func stamp(id *string, createdAt *time.Time) {
	*id = uuid.New().String()
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// newestFirst returns a scoped copy of items ordered by creation time descending.
func newestFirst[T any](items []*T, keep func(*T) bool, created func(*T) time.Time) []*T {
	out := make([]*T, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if keep(items[i]) {
			c := *items[i]
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return created(out[i]).After(created(out[j])) })
	return out
}

func findByID[T any](items []*T, id string, idOf func(*T) string) (*T, int) {
	for i, it := range items {
		if idOf(it) == id {
			return it, i
		}
	}
	return nil, -1
}

// --- Transactions ---

func (r *MemoryLedgerRepo) ListTransactions(_ context.Context, scope access.Scope) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.transactions,
		func(t *domain.Transaction) bool { return scope.Allows(t.Subdivision) },
		func(t *domain.Transaction) time.Time { return t.CreatedAt }), nil
}

func (r *MemoryLedgerRepo) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, _ := findByID(r.transactions, id, func(t *domain.Transaction) string { return t.ID })
	if t == nil {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *MemoryLedgerRepo) CreateTransaction(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendTransaction(t)
	return nil
}

func (r *MemoryLedgerRepo) appendTransaction(t *domain.Transaction) {
	stamp(&t.ID, &t.CreatedAt)
	c := *t
	r.transactions = append(r.transactions, &c)
}

func (r *MemoryLedgerRepo) DeleteTransaction(_ context.Context, scope access.Scope, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, i := findByID(r.transactions, id, func(t *domain.Transaction) string { return t.ID })
	if t == nil || !scope.Allows(t.Subdivision) {
		return ErrNotFound
	}
	r.transactions = append(r.transactions[:i], r.transactions[i+1:]...)
	return nil
}

// --- Incident reports ---

func (r *MemoryLedgerRepo) ListReports(_ context.Context, scope access.Scope) ([]*domain.IncidentReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.reports,
		func(x *domain.IncidentReport) bool { return scope.Allows(x.Subdivision) },
		func(x *domain.IncidentReport) time.Time { return x.CreatedAt }), nil
}

func (r *MemoryLedgerRepo) GetReport(_ context.Context, id string) (*domain.IncidentReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, _ := findByID(r.reports, id, func(x *domain.IncidentReport) string { return x.ID })
	if x == nil {
		return nil, ErrNotFound
	}
	c := *x
	return &c, nil
}

func (r *MemoryLedgerRepo) CreateReport(_ context.Context, x *domain.IncidentReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&x.ID, &x.CreatedAt)
	c := *x
	r.reports = append(r.reports, &c)
	return nil
}

func (r *MemoryLedgerRepo) UpdateReportStatus(_ context.Context, scope access.Scope, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, _ := findByID(r.reports, id, func(x *domain.IncidentReport) string { return x.ID })
	if x == nil || !scope.Allows(x.Subdivision) {
		return ErrNotFound
	}
	x.Status = status
	return nil
}

func (r *MemoryLedgerRepo) DeleteReport(_ context.Context, scope access.Scope, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, i := findByID(r.reports, id, func(x *domain.IncidentReport) string { return x.ID })
	if x == nil || !scope.Allows(x.Subdivision) {
		return ErrNotFound
	}
	r.reports = append(r.reports[:i], r.reports[i+1:]...)
	return nil
}

// --- Letter requests ---

func (r *MemoryLedgerRepo) ListLetters(_ context.Context, scope access.Scope, nationalID string) ([]*domain.LetterRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.letters,
		func(l *domain.LetterRequest) bool {
			return scope.Allows(l.Subdivision) && (nationalID == "" || l.NationalID == nationalID)
		},
		func(l *domain.LetterRequest) time.Time { return l.CreatedAt }), nil
}

func (r *MemoryLedgerRepo) GetLetter(_ context.Context, id string) (*domain.LetterRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, _ := findByID(r.letters, id, func(l *domain.LetterRequest) string { return l.ID })
	if l == nil {
		return nil, ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *MemoryLedgerRepo) CreateLetter(_ context.Context, l *domain.LetterRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&l.ID, &l.CreatedAt)
	c := *l
	r.letters = append(r.letters, &c)
	return nil
}

func (r *MemoryLedgerRepo) DecideLetter(_ context.Context, scope access.Scope, l *domain.LetterRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, _ := findByID(r.letters, l.ID, func(x *domain.LetterRequest) string { return x.ID })
	if cur == nil || !scope.Allows(cur.Subdivision) || cur.Status != domain.LetterStatusPending {
		return ErrStale
	}
	cur.Status = l.Status
	cur.LetterNumber = l.LetterNumber
	cur.DocumentURL = l.DocumentURL
	return nil
}

// --- Dues ---

func (r *MemoryLedgerRepo) ListDues(_ context.Context, scope access.Scope) ([]*domain.DuesRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.dues,
		func(d *domain.DuesRecord) bool { return scope.Allows(d.Subdivision) },
		func(d *domain.DuesRecord) time.Time { return d.CreatedAt }), nil
}

func (r *MemoryLedgerRepo) GetDues(_ context.Context, id string) (*domain.DuesRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, _ := findByID(r.dues, id, func(d *domain.DuesRecord) string { return d.ID })
	if d == nil {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *MemoryLedgerRepo) CreateDues(_ context.Context, d *domain.DuesRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&d.ID, &d.CreatedAt)
	c := *d
	r.dues = append(r.dues, &c)
	return nil
}

func (r *MemoryLedgerRepo) VerifyDues(_ context.Context, scope access.Scope, id string, income *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, _ := findByID(r.dues, id, func(d *domain.DuesRecord) string { return d.ID })
	if d == nil || !scope.Allows(d.Subdivision) || d.Status != domain.DuesStatusPending {
		return ErrStale
	}
	d.Status = domain.DuesStatusVerified
	r.appendTransaction(income)
	return nil
}

// --- Waste deposits ---

func (r *MemoryLedgerRepo) ListDeposits(_ context.Context, scope access.Scope) ([]*domain.WasteDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.WasteDeposit, 0, len(r.deposits))
	for _, d := range r.deposits {
		if scope.Allows(d.Subdivision) {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryLedgerRepo) CreateDeposit(_ context.Context, d *domain.WasteDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&d.ID, &d.CreatedAt)
	c := *d
	r.deposits = append(r.deposits, &c)
	return nil
}

// --- Bulletins ---

func (r *MemoryLedgerRepo) ListBulletins(_ context.Context) ([]*domain.Bulletin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.bulletins,
		func(*domain.Bulletin) bool { return true },
		func(b *domain.Bulletin) time.Time { return b.CreatedAt }), nil
}

func (r *MemoryLedgerRepo) CreateBulletin(_ context.Context, b *domain.Bulletin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&b.ID, &b.CreatedAt)
	c := *b
	r.bulletins = append(r.bulletins, &c)
	return nil
}

func (r *MemoryLedgerRepo) DeleteBulletin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, i := findByID(r.bulletins, id, func(b *domain.Bulletin) string { return b.ID })
	if b == nil {
		return ErrNotFound
	}
	r.bulletins = append(r.bulletins[:i], r.bulletins[i+1:]...)
	return nil
}
