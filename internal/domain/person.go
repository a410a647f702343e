package domain

import (
	"strings"
	"time"
)

// IdentityNumberLength NIK 和 No. KK 的固定长度
const IdentityNumberLength = 16

// UnknownFamilyKey 没有 No. KK 的记录归入该分组
const UnknownFamilyKey = "unknown"

// FamilyRole 家庭成员角色（peran）
type FamilyRole string

const (
	FamilyRoleHead          FamilyRole = "head-of-household" // Kepala Keluarga
	FamilyRoleSpouse        FamilyRole = "spouse"            // Istri / Suami
	FamilyRoleChild         FamilyRole = "child"             // Anak
	FamilyRoleOtherRelative FamilyRole = "other-relative"    // Famili Lain
	FamilyRoleMember        FamilyRole = "member"            // Anggota
)

// ParseFamilyRole accepts the canonical slugs as well as the labels used on the paper census
// form. Anything unrecognised is treated as a plain member.
func ParseFamilyRole(s string) FamilyRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "head-of-household", "head", "kepala keluarga":
		return FamilyRoleHead
	case "spouse", "istri", "suami":
		return FamilyRoleSpouse
	case "child", "anak":
		return FamilyRoleChild
	case "other-relative", "famili lain":
		return FamilyRoleOtherRelative
	default:
		return FamilyRoleMember
	}
}

// GeoCoordinate 住宅坐标（地图标注用）
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Person 居民领域模型（对应 people 表）
// national_id 为全局唯一键：同一 NIK 的两次提交必须合并为一条记录
type Person struct {
	ID string `db:"id" json:"id"` // UUID, PRIMARY KEY

	NationalID       string `db:"national_id" json:"national_id"`               // CHAR(16), NOT NULL, UNIQUE
	FamilyCardNumber string `db:"family_card_number" json:"family_card_number"` // CHAR(16), nullable, 同一户共享

	FullName string     `db:"full_name" json:"full_name"`
	Sex      string     `db:"sex" json:"sex"`
	Role     FamilyRole `db:"role" json:"role"`

	// 行政范围
	Subdivision string `db:"subdivision" json:"subdivision"` // RT
	Block       string `db:"block" json:"block"`             // RW

	Address         string `db:"address" json:"address"`
	HouseNumber     string `db:"house_number" json:"house_number"`
	ResidencyStatus string `db:"residency_status" json:"residency_status"` // Tetap / Kontrak

	BirthPlace    string     `db:"birth_place" json:"birth_place"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Religion      string     `db:"religion" json:"religion"`
	Occupation    string     `db:"occupation" json:"occupation"`
	MaritalStatus string     `db:"marital_status" json:"marital_status"`
	BloodType     string     `db:"blood_type" json:"blood_type"`

	Phone string `db:"phone" json:"phone"`
	Email string `db:"email" json:"email"`

	Geo                *GeoCoordinate `json:"geo,omitempty"` // latitude/longitude 两列
	FamilyCardPhotoRef string         `db:"family_card_photo_ref" json:"family_card_photo_ref,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsHead reports whether the stored role marks this person as head of household.
func (p *Person) IsHead() bool {
	return p.Role == FamilyRoleHead
}

// FamilyKey 分组键：No. KK，缺失时为 "unknown"
func (p *Person) FamilyKey() string {
	if k := strings.TrimSpace(p.FamilyCardNumber); k != "" {
		return k
	}
	return UnknownFamilyKey
}

// IsIdentityNumber reports whether s is a complete 16-digit NIK / No. KK.
func IsIdentityNumber(s string) bool {
	if len(s) != IdentityNumberLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
