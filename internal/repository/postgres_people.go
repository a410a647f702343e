package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/lib/pq"
)

// PostgresPeopleRepository 居民 Repository 实现
type PostgresPeopleRepository struct {
	db *sql.DB
}

// NewPostgresPeopleRepository 创建居民 Repository
func NewPostgresPeopleRepository(db *sql.DB) *PostgresPeopleRepository {
	return &PostgresPeopleRepository{db: db}
}

// 确保实现了接口
var _ PeopleRepository = (*PostgresPeopleRepository)(nil)

const peopleColumns = `
			p.id::text,
			p.national_id,
			COALESCE(p.family_card_number, ''),
			p.full_name,
			COALESCE(p.sex, ''),
			COALESCE(p.role, ''),
			COALESCE(p.subdivision, ''),
			COALESCE(p.block, ''),
			COALESCE(p.address, ''),
			COALESCE(p.house_number, ''),
			COALESCE(p.residency_status, ''),
			COALESCE(p.birth_place, ''),
			p.birth_date,
			COALESCE(p.religion, ''),
			COALESCE(p.occupation, ''),
			COALESCE(p.marital_status, ''),
			COALESCE(p.blood_type, ''),
			COALESCE(p.phone, ''),
			COALESCE(p.email, ''),
			p.latitude,
			p.longitude,
			COALESCE(p.family_card_photo_ref, ''),
			p.created_at,
			p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	var (
		p         domain.Person
		role      string
		birthDate sql.NullTime
		lat, lng  sql.NullFloat64
	)
	err := row.Scan(
		&p.ID,
		&p.NationalID,
		&p.FamilyCardNumber,
		&p.FullName,
		&p.Sex,
		&role,
		&p.Subdivision,
		&p.Block,
		&p.Address,
		&p.HouseNumber,
		&p.ResidencyStatus,
		&p.BirthPlace,
		&birthDate,
		&p.Religion,
		&p.Occupation,
		&p.MaritalStatus,
		&p.BloodType,
		&p.Phone,
		&p.Email,
		&lat,
		&lng,
		&p.FamilyCardPhotoRef,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Role = domain.FamilyRole(role)
	if birthDate.Valid {
		t := birthDate.Time
		p.BirthDate = &t
	}
	if lat.Valid && lng.Valid {
		p.Geo = &domain.GeoCoordinate{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return &p, nil
}

// ListPeople 按范围查询居民，按 KK 与姓名排序
func (r *PostgresPeopleRepository) ListPeople(ctx context.Context, scope access.Scope, filter PeopleFilter) ([]*domain.Person, error) {
	query := `SELECT` + peopleColumns + `
		FROM people p`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "p", true)
	first := !scope.IsRestricted()

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		query += where(first) + strings.ReplaceAll(`(p.full_name ILIKE $n OR p.national_id ILIKE $n OR p.family_card_number ILIKE $n OR p.house_number ILIKE $n)`, "$n", fmt.Sprintf("$%d", len(args)))
		first = false
	}
	if k := strings.TrimSpace(filter.FamilyCardNumber); k != "" {
		args = append(args, k)
		query += where(first) + fmt.Sprintf(`p.family_card_number = $%d`, len(args))
	}
	query += ` ORDER BY p.family_card_number NULLS LAST, p.full_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func where(first bool) string {
	if first {
		return ` WHERE `
	}
	return ` AND `
}

// GetPerson 按 id 查询（不做范围过滤，调用者负责校验）
func (r *PostgresPeopleRepository) GetPerson(ctx context.Context, id string) (*domain.Person, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	query := `SELECT` + peopleColumns + `
		FROM people p
		WHERE p.id::text = $1`
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query person: %w", err)
	}
	return p, nil
}

// GetByNationalID 按 NIK 查询
func (r *PostgresPeopleRepository) GetByNationalID(ctx context.Context, nationalID string) (*domain.Person, error) {
	query := `SELECT` + peopleColumns + `
		FROM people p
		WHERE p.national_id = $1`
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, nationalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query person by national_id: %w", err)
	}
	return p, nil
}

// ExistsBy 检查 national_id / family_card_number 是否已存在
func (r *PostgresPeopleRepository) ExistsBy(ctx context.Context, field IdentityField, value string) (bool, error) {
	if !field.Valid() {
		return false, fmt.Errorf("unsupported identity field %q", field)
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM people WHERE %s = $1)`, field)
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", field, err)
	}
	return exists, nil
}

// ExistingNationalIDs 批量检查 NIK
func (r *PostgresPeopleRepository) ExistingNationalIDs(ctx context.Context, nationalIDs []string) ([]string, error) {
	if len(nationalIDs) == 0 {
		return []string{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT national_id FROM people WHERE national_id = ANY($1) ORDER BY national_id`,
		pq.Array(nationalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to check national_ids: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var nik string
		if err := rows.Scan(&nik); err != nil {
			return nil, fmt.Errorf("failed to scan national_id: %w", err)
		}
		out = append(out, nik)
	}
	return out, rows.Err()
}

const insertPersonSQL = `
	INSERT INTO people (
		national_id, family_card_number, full_name, sex, role,
		subdivision, block, address, house_number, residency_status,
		birth_place, birth_date, religion, occupation, marital_status,
		blood_type, phone, email, latitude, longitude,
		family_card_photo_ref, created_at, updated_at
	) VALUES (
		$1, NULLIF($2, ''), $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20,
		NULLIF($21, ''), $22, $22
	)`

const upsertPersonSQL = insertPersonSQL + `
	ON CONFLICT (national_id) DO UPDATE SET
		family_card_number = EXCLUDED.family_card_number,
		full_name = EXCLUDED.full_name,
		sex = EXCLUDED.sex,
		role = EXCLUDED.role,
		subdivision = EXCLUDED.subdivision,
		block = EXCLUDED.block,
		address = EXCLUDED.address,
		house_number = EXCLUDED.house_number,
		residency_status = EXCLUDED.residency_status,
		birth_place = EXCLUDED.birth_place,
		birth_date = EXCLUDED.birth_date,
		religion = EXCLUDED.religion,
		occupation = EXCLUDED.occupation,
		marital_status = EXCLUDED.marital_status,
		blood_type = EXCLUDED.blood_type,
		phone = EXCLUDED.phone,
		email = EXCLUDED.email,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		family_card_photo_ref = COALESCE(EXCLUDED.family_card_photo_ref, people.family_card_photo_ref),
		updated_at = EXCLUDED.updated_at`

func personArgs(p *domain.Person, now time.Time) []any {
	var birth any
	if p.BirthDate != nil {
		birth = *p.BirthDate
	}
	var lat, lng any
	if p.Geo != nil {
		lat, lng = p.Geo.Latitude, p.Geo.Longitude
	}
	return []any{
		p.NationalID, p.FamilyCardNumber, p.FullName, p.Sex, string(p.Role),
		p.Subdivision, p.Block, p.Address, p.HouseNumber, p.ResidencyStatus,
		p.BirthPlace, birth, p.Religion, p.Occupation, p.MaritalStatus,
		p.BloodType, p.Phone, p.Email, lat, lng,
		p.FamilyCardPhotoRef, now,
	}
}

// InsertPeople 在一个事务内插入整户成员
func (r *PostgresPeopleRepository) InsertPeople(ctx context.Context, people []*domain.Person) error {
	return r.writePeople(ctx, insertPersonSQL, people)
}

// UpsertPeople 在一个事务内按 national_id 插入或覆盖
func (r *PostgresPeopleRepository) UpsertPeople(ctx context.Context, people []*domain.Person) error {
	return r.writePeople(ctx, upsertPersonSQL, people)
}

func (r *PostgresPeopleRepository) writePeople(ctx context.Context, stmt string, people []*domain.Person) error {
	if len(people) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, p := range people {
		if _, err := tx.ExecContext(ctx, stmt, personArgs(p, now)...); err != nil {
			if isUniqueViolation(err) {
				return &DuplicateError{Field: string(FieldNationalID), Value: p.NationalID}
			}
			return fmt.Errorf("failed to write person %s: %w", p.NationalID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit people: %w", err)
	}
	return nil
}

// UpdatePerson 更新单条居民记录；范围外或不存在返回 ErrNotFound
func (r *PostgresPeopleRepository) UpdatePerson(ctx context.Context, scope access.Scope, p *domain.Person) error {
	args := append(personArgs(p, time.Now().UTC()), p.ID)
	query := `
		UPDATE people SET
			national_id = $1, family_card_number = NULLIF($2, ''), full_name = $3, sex = $4, role = $5,
			subdivision = $6, block = $7, address = $8, house_number = $9, residency_status = $10,
			birth_place = $11, birth_date = $12, religion = $13, occupation = $14, marital_status = $15,
			blood_type = $16, phone = $17, email = $18, latitude = $19, longitude = $20,
			family_card_photo_ref = COALESCE(NULLIF($21, ''), family_card_photo_ref), updated_at = $22
		WHERE id::text = $23`
	access.ApplySubdivisionFilter(&query, &args, scope, "", false)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateError{Field: string(FieldNationalID), Value: p.NationalID}
		}
		return fmt.Errorf("failed to update person: %w", err)
	}
	return expectAffected(res)
}

// DeletePerson 删除单条居民记录
func (r *PostgresPeopleRepository) DeletePerson(ctx context.Context, scope access.Scope, id string) error {
	return deleteScoped(ctx, r.db, "people", scope, id)
}

func deleteScoped(ctx context.Context, db *sql.DB, table string, scope access.Scope, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id::text = $1`, table)
	args := []any{id}
	access.ApplySubdivisionFilter(&query, &args, scope, "", false)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
