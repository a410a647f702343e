package domain

import "time"

// TransactionType 收支类型
type TransactionType string

const (
	TransactionIncome  TransactionType = "Pemasukan"
	TransactionExpense TransactionType = "Pengeluaran"
)

// DuesCategory 验证通过的 iuran 记入财务时使用的类别
const DuesCategory = "Iuran Warga"

// Transaction 财务流水（对应 transactions 表）
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	Type        TransactionType `db:"type" json:"type"`
	Category    string          `db:"category" json:"category"`
	Amount      int64           `db:"amount" json:"amount"` // Rupiah
	Note        string          `db:"note" json:"note"`
	Subdivision string          `db:"subdivision" json:"subdivision"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// FinanceSummary 收支汇总
type FinanceSummary struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// Summarize folds a transaction list into totals.
func Summarize(txs []*Transaction) FinanceSummary {
	var s FinanceSummary
	for _, t := range txs {
		switch t.Type {
		case TransactionIncome:
			s.Income += t.Amount
		case TransactionExpense:
			s.Expense += t.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}

// Report status
const (
	ReportStatusPending    = "pending"
	ReportStatusProcessing = "processing"
	ReportStatusDone       = "done"
)

// IncidentReport 紧急/事件报告（对应 incident_reports 表）
type IncidentReport struct {
	ID           string         `db:"id" json:"id"`
	ReporterName string         `db:"reporter_name" json:"reporter_name"`
	Location     string         `db:"location" json:"location"`
	Kind         string         `db:"kind" json:"kind"`
	Description  string         `db:"description" json:"description"`
	Geo          *GeoCoordinate `json:"geo,omitempty"`
	Status       string         `db:"status" json:"status"`
	Subdivision  string         `db:"subdivision" json:"subdivision"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Letter status
const (
	LetterStatusPending  = "pending"
	LetterStatusApproved = "approved"
	LetterStatusRejected = "rejected"
)

// LetterRequest 证明信申请（对应 letter_requests 表）
type LetterRequest struct {
	ID           string    `db:"id" json:"id"`
	NationalID   string    `db:"national_id" json:"national_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	LetterType   string    `db:"letter_type" json:"letter_type"`
	Purpose      string    `db:"purpose" json:"purpose"`
	Status       string    `db:"status" json:"status"`
	LetterNumber string    `db:"letter_number" json:"letter_number,omitempty"`
	DocumentURL  string    `db:"document_url" json:"document_url,omitempty"`
	Subdivision  string    `db:"subdivision" json:"subdivision"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Bulletin 公告（不区分 RT）
type Bulletin struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Category  string     `db:"category" json:"category"`
	EventDate *time.Time `db:"event_date" json:"event_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Dues status
const (
	DuesStatusPending  = "pending"
	DuesStatusVerified = "verified"
)

// DuesRecord 居民缴费记录（iuran）
type DuesRecord struct {
	ID          string    `db:"id" json:"id"`
	NationalID  string    `db:"national_id" json:"national_id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Period      string    `db:"period" json:"period"` // YYYY-MM
	Amount      int64     `db:"amount" json:"amount"`
	ProofURL    string    `db:"proof_url" json:"proof_url,omitempty"`
	Status      string    `db:"status" json:"status"`
	Subdivision string    `db:"subdivision" json:"subdivision"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WasteDeposit 垃圾银行存入记录（只追加）
type WasteDeposit struct {
	ID            string    `db:"id" json:"id"`
	NationalID    string    `db:"national_id" json:"national_id"`
	DepositorName string    `db:"depositor_name" json:"depositor_name"`
	MaterialType  string    `db:"material_type" json:"material_type"`
	WeightKg      float64   `db:"weight_kg" json:"weight_kg"`
	UnitPrice     int64     `db:"unit_price" json:"unit_price"`
	TotalValue    int64     `db:"total_value" json:"total_value"`
	Subdivision   string    `db:"subdivision" json:"subdivision"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AdminRole 管理员角色记录（对应 admin_roles 表）
// role/subdivision 以该表为准，每个特权请求都重新查询
type AdminRole struct {
	UserID          string  `db:"user_id" json:"user_id"`
	Role            string  `db:"role" json:"role"`
	SubdivisionCode *string `db:"subdivision_code" json:"subdivision_code"`
	DisplayName     string  `db:"display_name" json:"display_name"`
}

// AdminUser 登录账号（对应 admin_users 表）
type AdminUser struct {
	UserID       string `db:"user_id"`
	Email        string `db:"email"`
	PasswordHash []byte `db:"password_hash"`
}
