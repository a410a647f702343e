package service

import (
	"context"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"go.uber.org/zap"
)

// DuplicateGuard answers "does this identity already exist" before a census write.
// The unique index on national_id stays the final authority; this is the fast path
// that lets the resident confirm an overwrite.
type DuplicateGuard struct {
	people repository.PeopleRepository
	logger *zap.Logger
}

// NewDuplicateGuard 创建 DuplicateGuard
func NewDuplicateGuard(people repository.PeopleRepository, logger *zap.Logger) *DuplicateGuard {
	return &DuplicateGuard{people: people, logger: logger}
}

// CheckExisting validates value before querying. A store failure is reported as
// TransientServiceError, never as "not found".
func (g *DuplicateGuard) CheckExisting(ctx context.Context, field, value string) (bool, error) {
	f := repository.IdentityField(strings.TrimSpace(field))
	if !f.Valid() {
		return false, invalid("field", "must be national_id or family_card_number")
	}
	value = strings.TrimSpace(value)
	if !domain.IsIdentityNumber(value) {
		return false, invalid(string(f), "must be exactly %d digits", domain.IdentityNumberLength)
	}
	exists, err := g.people.ExistsBy(ctx, f, value)
	if err != nil {
		g.logger.Error("Existence check failed", zap.String("field", string(f)), zap.Error(err))
		return false, transient("existence check", err)
	}
	return exists, nil
}

// Conflicts returns every stored identity among the family card and member national IDs.
// Inputs must already be validated.
func (g *DuplicateGuard) Conflicts(ctx context.Context, familyCardNumber string, nationalIDs []string) ([]Conflict, error) {
	out := make([]Conflict, 0)
	if familyCardNumber != "" {
		exists, err := g.people.ExistsBy(ctx, repository.FieldFamilyCardNumber, familyCardNumber)
		if err != nil {
			g.logger.Error("Family card check failed", zap.Error(err))
			return nil, transient("existence check", err)
		}
		if exists {
			out = append(out, Conflict{Field: string(repository.FieldFamilyCardNumber), Value: familyCardNumber})
		}
	}
	existing, err := g.people.ExistingNationalIDs(ctx, nationalIDs)
	if err != nil {
		g.logger.Error("National ID check failed", zap.Int("count", len(nationalIDs)), zap.Error(err))
		return nil, transient("existence check", err)
	}
	for _, nik := range existing {
		out = append(out, Conflict{Field: string(repository.FieldNationalID), Value: nik})
	}
	return out, nil
}
