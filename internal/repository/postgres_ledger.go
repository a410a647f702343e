package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
)

// PostgresLedgerRepository 财务/报告/信件/iuran/垃圾银行/公告 Repository 实现
type PostgresLedgerRepository struct {
	db *sql.DB
}

// NewPostgresLedgerRepository 创建 Ledger Repository
func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

var _ LedgerRepository = (*PostgresLedgerRepository)(nil)

// --- Transactions ---

const transactionColumns = `id::text, type, category, amount, COALESCE(note, ''), subdivision, created_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var typ string
	if err := row.Scan(&t.ID, &typ, &t.Category, &t.Amount, &t.Note, &t.Subdivision, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	return &t, nil
}

func (r *PostgresLedgerRepository) ListTransactions(ctx context.Context, scope access.Scope) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "", true)
	query += ` ORDER BY created_at DESC`
	return queryList(ctx, r.db, "transactions", query, args, scanTransaction)
}

func (r *PostgresLedgerRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return queryOne(ctx, r.db, "transaction",
		`SELECT `+transactionColumns+` FROM transactions WHERE id::text = $1`, id, scanTransaction)
}

func (r *PostgresLedgerRepository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return insertTransaction(ctx, r.db, t)
}

type execQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertTransaction(ctx context.Context, q execQueryer, t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (type, category, amount, note, subdivision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text`,
		string(t.Type), t.Category, t.Amount, t.Note, t.Subdivision, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) DeleteTransaction(ctx context.Context, scope access.Scope, id string) error {
	return deleteScoped(ctx, r.db, "transactions", scope, id)
}

// --- Incident reports ---

const reportColumns = `id::text, reporter_name, location, kind, COALESCE(description, ''), latitude, longitude, status, subdivision, created_at`

func scanReport(row rowScanner) (*domain.IncidentReport, error) {
	var rep domain.IncidentReport
	var lat, lng sql.NullFloat64
	if err := row.Scan(&rep.ID, &rep.ReporterName, &rep.Location, &rep.Kind, &rep.Description,
		&lat, &lng, &rep.Status, &rep.Subdivision, &rep.CreatedAt); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		rep.Geo = &domain.GeoCoordinate{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return &rep, nil
}

func (r *PostgresLedgerRepository) ListReports(ctx context.Context, scope access.Scope) ([]*domain.IncidentReport, error) {
	query := `SELECT ` + reportColumns + ` FROM incident_reports`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "", true)
	query += ` ORDER BY created_at DESC`
	return queryList(ctx, r.db, "incident_reports", query, args, scanReport)
}

func (r *PostgresLedgerRepository) GetReport(ctx context.Context, id string) (*domain.IncidentReport, error) {
	return queryOne(ctx, r.db, "incident report",
		`SELECT `+reportColumns+` FROM incident_reports WHERE id::text = $1`, id, scanReport)
}

func (r *PostgresLedgerRepository) CreateReport(ctx context.Context, rep *domain.IncidentReport) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	var lat, lng any
	if rep.Geo != nil {
		lat, lng = rep.Geo.Latitude, rep.Geo.Longitude
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO incident_reports (reporter_name, location, kind, description, latitude, longitude, status, subdivision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text`,
		rep.ReporterName, rep.Location, rep.Kind, rep.Description, lat, lng, rep.Status, rep.Subdivision, rep.CreatedAt,
	).Scan(&rep.ID)
	if err != nil {
		return fmt.Errorf("failed to insert incident report: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) UpdateReportStatus(ctx context.Context, scope access.Scope, id, status string) error {
	query := `UPDATE incident_reports SET status = $1 WHERE id::text = $2`
	args := []any{status, id}
	access.ApplySubdivisionFilter(&query, &args, scope, "", false)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update incident report: %w", err)
	}
	return expectAffected(res)
}

func (r *PostgresLedgerRepository) DeleteReport(ctx context.Context, scope access.Scope, id string) error {
	return deleteScoped(ctx, r.db, "incident_reports", scope, id)
}

// --- Letter requests ---

const letterColumns = `id::text, national_id, full_name, letter_type, COALESCE(purpose, ''), status, COALESCE(letter_number, ''), COALESCE(document_url, ''), subdivision, created_at`

func scanLetter(row rowScanner) (*domain.LetterRequest, error) {
	var l domain.LetterRequest
	if err := row.Scan(&l.ID, &l.NationalID, &l.FullName, &l.LetterType, &l.Purpose, &l.Status,
		&l.LetterNumber, &l.DocumentURL, &l.Subdivision, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresLedgerRepository) ListLetters(ctx context.Context, scope access.Scope, nationalID string) ([]*domain.LetterRequest, error) {
	query := `SELECT ` + letterColumns + ` FROM letter_requests`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "", true)
	if nationalID != "" {
		args = append(args, nationalID)
		query += where(!scope.IsRestricted()) + fmt.Sprintf(`national_id = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	return queryList(ctx, r.db, "letter_requests", query, args, scanLetter)
}

func (r *PostgresLedgerRepository) GetLetter(ctx context.Context, id string) (*domain.LetterRequest, error) {
	return queryOne(ctx, r.db, "letter request",
		`SELECT `+letterColumns+` FROM letter_requests WHERE id::text = $1`, id, scanLetter)
}

func (r *PostgresLedgerRepository) CreateLetter(ctx context.Context, l *domain.LetterRequest) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO letter_requests (national_id, full_name, letter_type, purpose, status, subdivision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text`,
		l.NationalID, l.FullName, l.LetterType, l.Purpose, l.Status, l.Subdivision, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert letter request: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) DecideLetter(ctx context.Context, scope access.Scope, l *domain.LetterRequest) error {
	query := `
		UPDATE letter_requests
		SET status = $1, letter_number = NULLIF($2, ''), document_url = NULLIF($3, '')
		WHERE id::text = $4 AND status = $5`
	args := []any{l.Status, l.LetterNumber, l.DocumentURL, l.ID, domain.LetterStatusPending}
	access.ApplySubdivisionFilter(&query, &args, scope, "", false)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update letter request: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return ErrStale
	}
	return nil
}

// --- Dues ---

const duesColumns = `id::text, national_id, full_name, period, amount, COALESCE(proof_url, ''), status, subdivision, created_at`

func scanDues(row rowScanner) (*domain.DuesRecord, error) {
	var d domain.DuesRecord
	if err := row.Scan(&d.ID, &d.NationalID, &d.FullName, &d.Period, &d.Amount, &d.ProofURL,
		&d.Status, &d.Subdivision, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresLedgerRepository) ListDues(ctx context.Context, scope access.Scope) ([]*domain.DuesRecord, error) {
	query := `SELECT ` + duesColumns + ` FROM dues_records`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "", true)
	query += ` ORDER BY created_at DESC`
	return queryList(ctx, r.db, "dues_records", query, args, scanDues)
}

func (r *PostgresLedgerRepository) GetDues(ctx context.Context, id string) (*domain.DuesRecord, error) {
	return queryOne(ctx, r.db, "dues record",
		`SELECT `+duesColumns+` FROM dues_records WHERE id::text = $1`, id, scanDues)
}

func (r *PostgresLedgerRepository) CreateDues(ctx context.Context, d *domain.DuesRecord) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dues_records (national_id, full_name, period, amount, proof_url, status, subdivision, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING id::text`,
		d.NationalID, d.FullName, d.Period, d.Amount, d.ProofURL, d.Status, d.Subdivision, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert dues record: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) VerifyDues(ctx context.Context, scope access.Scope, id string, income *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE dues_records SET status = $1 WHERE id::text = $2 AND status = $3`
	args := []any{domain.DuesStatusVerified, id, domain.DuesStatusPending}
	access.ApplySubdivisionFilter(&query, &args, scope, "", false)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to verify dues record: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return ErrStale
	}
	if err := insertTransaction(ctx, tx, income); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dues verification: %w", err)
	}
	return nil
}

// --- Waste deposits ---

const depositColumns = `id::text, national_id, depositor_name, material_type, weight_kg, unit_price, total_value, subdivision, created_at`

func scanDeposit(row rowScanner) (*domain.WasteDeposit, error) {
	var d domain.WasteDeposit
	if err := row.Scan(&d.ID, &d.NationalID, &d.DepositorName, &d.MaterialType, &d.WeightKg,
		&d.UnitPrice, &d.TotalValue, &d.Subdivision, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeposits 按写入顺序返回（排行榜依赖首次出现顺序）
func (r *PostgresLedgerRepository) ListDeposits(ctx context.Context, scope access.Scope) ([]*domain.WasteDeposit, error) {
	query := `SELECT ` + depositColumns + ` FROM waste_deposits`
	args := []any{}
	access.ApplySubdivisionFilter(&query, &args, scope, "", true)
	query += ` ORDER BY created_at, id`
	return queryList(ctx, r.db, "waste_deposits", query, args, scanDeposit)
}

func (r *PostgresLedgerRepository) CreateDeposit(ctx context.Context, d *domain.WasteDeposit) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO waste_deposits (national_id, depositor_name, material_type, weight_kg, unit_price, total_value, subdivision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text`,
		d.NationalID, d.DepositorName, d.MaterialType, d.WeightKg, d.UnitPrice, d.TotalValue, d.Subdivision, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert waste deposit: %w", err)
	}
	return nil
}

// --- Bulletins ---

const bulletinColumns = `id::text, title, body, COALESCE(category, ''), event_date, created_at`

func scanBulletin(row rowScanner) (*domain.Bulletin, error) {
	var b domain.Bulletin
	var eventDate sql.NullTime
	if err := row.Scan(&b.ID, &b.Title, &b.Body, &b.Category, &eventDate, &b.CreatedAt); err != nil {
		return nil, err
	}
	if eventDate.Valid {
		t := eventDate.Time
		b.EventDate = &t
	}
	return &b, nil
}

func (r *PostgresLedgerRepository) ListBulletins(ctx context.Context) ([]*domain.Bulletin, error) {
	return queryList(ctx, r.db, "bulletins",
		`SELECT `+bulletinColumns+` FROM bulletins ORDER BY created_at DESC`, nil, scanBulletin)
}

func (r *PostgresLedgerRepository) CreateBulletin(ctx context.Context, b *domain.Bulletin) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	var eventDate any
	if b.EventDate != nil {
		eventDate = *b.EventDate
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO bulletins (title, body, category, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text`,
		b.Title, b.Body, b.Category, eventDate, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bulletin: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) DeleteBulletin(ctx context.Context, id string) error {
	return deleteScoped(ctx, r.db, "bulletins", access.AllSubdivisions(), id)
}

// --- helpers ---

func queryList[T any](ctx context.Context, db *sql.DB, table, query string, args []any, scan func(rowScanner) (*T, error)) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, db *sql.DB, what, query, id string, scan func(rowScanner) (*T, error)) (*T, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	item, err := scan(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	return item, nil
}
