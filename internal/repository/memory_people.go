package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/google/uuid"
)

// MemoryPeopleRepo supports the census flow when DB is disabled (local dev, tests).
type MemoryPeopleRepo struct {
	mu     sync.RWMutex
	people map[string]*domain.Person // id -> person
	byNIK  map[string]string         // national_id -> id
}

func NewMemoryPeopleRepo() *MemoryPeopleRepo {
	return &MemoryPeopleRepo{
		people: map[string]*domain.Person{},
		byNIK:  map[string]string{},
	}
}

var _ PeopleRepository = (*MemoryPeopleRepo)(nil)

func clonePerson(p *domain.Person) *domain.Person {
	c := *p
	if p.Geo != nil {
		g := *p.Geo
		c.Geo = &g
	}
	if p.BirthDate != nil {
		b := *p.BirthDate
		c.BirthDate = &b
	}
	return &c
}

func (r *MemoryPeopleRepo) ListPeople(_ context.Context, scope access.Scope, filter PeopleFilter) ([]*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*domain.Person, 0, len(r.people))
	for _, p := range r.people {
		if !scope.Allows(p.Subdivision) {
			continue
		}
		if filter.FamilyCardNumber != "" && p.FamilyCardNumber != filter.FamilyCardNumber {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.FullName), search) &&
			!strings.Contains(p.NationalID, search) &&
			!strings.Contains(p.FamilyCardNumber, search) &&
			!strings.Contains(strings.ToLower(p.HouseNumber), search) {
			continue
		}
		out = append(out, clonePerson(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FamilyCardNumber != out[j].FamilyCardNumber {
			return out[i].FamilyCardNumber < out[j].FamilyCardNumber
		}
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].NationalID < out[j].NationalID
	})
	return out, nil
}

func (r *MemoryPeopleRepo) GetPerson(_ context.Context, id string) (*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.people[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePerson(p), nil
}

func (r *MemoryPeopleRepo) GetByNationalID(_ context.Context, nationalID string) (*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNIK[nationalID]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePerson(r.people[id]), nil
}

func (r *MemoryPeopleRepo) ExistsBy(_ context.Context, field IdentityField, value string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch field {
	case FieldNationalID:
		_, ok := r.byNIK[value]
		return ok, nil
	case FieldFamilyCardNumber:
		for _, p := range r.people {
			if p.FamilyCardNumber == value {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported identity field %q", field)
}

func (r *MemoryPeopleRepo) ExistingNationalIDs(_ context.Context, nationalIDs []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0)
	seen := map[string]bool{}
	for _, nik := range nationalIDs {
		if _, ok := r.byNIK[nik]; ok && !seen[nik] {
			seen[nik] = true
			out = append(out, nik)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryPeopleRepo) InsertPeople(_ context.Context, people []*domain.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := map[string]bool{}
	for _, p := range people {
		if _, ok := r.byNIK[p.NationalID]; ok || batch[p.NationalID] {
			return &DuplicateError{Field: string(FieldNationalID), Value: p.NationalID}
		}
		batch[p.NationalID] = true
	}
	now := time.Now().UTC()
	for _, p := range people {
		r.put(p, now)
	}
	return nil
}

func (r *MemoryPeopleRepo) UpsertPeople(_ context.Context, people []*domain.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, p := range people {
		if id, ok := r.byNIK[p.NationalID]; ok {
			old := r.people[id]
			p.ID = id
			p.CreatedAt = old.CreatedAt
			if p.FamilyCardPhotoRef == "" {
				p.FamilyCardPhotoRef = old.FamilyCardPhotoRef
			}
			c := clonePerson(p)
			c.UpdatedAt = now
			r.people[id] = c
			p.UpdatedAt = now
			continue
		}
		r.put(p, now)
	}
	return nil
}

// put assumes the write lock is held.
func (r *MemoryPeopleRepo) put(p *domain.Person, now time.Time) {
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.people[p.ID] = clonePerson(p)
	r.byNIK[p.NationalID] = p.ID
}

func (r *MemoryPeopleRepo) UpdatePerson(_ context.Context, scope access.Scope, p *domain.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.people[p.ID]
	if !ok || !scope.Allows(old.Subdivision) {
		return ErrNotFound
	}
	if id, taken := r.byNIK[p.NationalID]; taken && id != p.ID {
		return &DuplicateError{Field: string(FieldNationalID), Value: p.NationalID}
	}
	delete(r.byNIK, old.NationalID)
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	if p.FamilyCardPhotoRef == "" {
		p.FamilyCardPhotoRef = old.FamilyCardPhotoRef
	}
	r.people[p.ID] = clonePerson(p)
	r.byNIK[p.NationalID] = p.ID
	return nil
}

func (r *MemoryPeopleRepo) DeletePerson(_ context.Context, scope access.Scope, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.people[id]
	if !ok || !scope.Allows(p.Subdivision) {
		return ErrNotFound
	}
	delete(r.byNIK, p.NationalID)
	delete(r.people, id)
	return nil
}
