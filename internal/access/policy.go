package access

import (
	"fmt"
	"sort"
	"strings"
)

// Feature 功能区
type Feature string

const (
	FeatureDashboard       Feature = "dashboard"
	FeaturePeople          Feature = "people"
	FeatureVerification    Feature = "verification"
	FeatureWasteBank       Feature = "waste-bank"
	FeatureMap             Feature = "map"
	FeatureFinance         Feature = "finance"
	FeatureBulletin        Feature = "bulletin"
	FeatureIncidentReports Feature = "incident-reports"
	FeatureLetters         Feature = "letters"
	FeatureSettings        Feature = "settings"
)

// AllFeatures lists every feature area.
var AllFeatures = []Feature{
	FeatureDashboard,
	FeaturePeople,
	FeatureVerification,
	FeatureWasteBank,
	FeatureMap,
	FeatureFinance,
	FeatureBulletin,
	FeatureIncidentReports,
	FeatureLetters,
	FeatureSettings,
}

// ParseFeature 解析功能区名称
func ParseFeature(s string) (Feature, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, f := range AllFeatures {
		if string(f) == key {
			return f, true
		}
	}
	return "", false
}

// Matrix 角色 → 功能区 权限矩阵
// 提升角色不出现在矩阵中，IsPermitted 直接放行
type Matrix struct {
	grants map[Role]map[Feature]struct{}
}

// NewMatrix builds a matrix from a role → features table. Elevated roles in the table are
// ignored since they bypass the matrix anyway.
func NewMatrix(table map[Role][]Feature) *Matrix {
	m := &Matrix{grants: make(map[Role]map[Feature]struct{}, len(table))}
	for role, features := range table {
		if role.IsElevated() {
			continue
		}
		set := make(map[Feature]struct{}, len(features))
		for _, f := range features {
			set[f] = struct{}{}
		}
		m.grants[role] = set
	}
	return m
}

// DefaultMatrix 默认权限配置；可以通过 policy 文件覆盖
func DefaultMatrix() *Matrix {
	return NewMatrix(map[Role][]Feature{
		RoleTopLevelCoordinator: AllFeatures,
		RoleSubdivisionCoordinator: {
			FeatureDashboard, FeaturePeople, FeatureVerification, FeatureWasteBank, FeatureMap,
			FeatureFinance, FeatureBulletin, FeatureIncidentReports, FeatureLetters,
		},
		RoleSecretary: {
			FeatureDashboard, FeaturePeople, FeatureVerification, FeatureMap,
			FeatureBulletin, FeatureIncidentReports, FeatureLetters,
		},
		RoleTreasurer: {
			FeatureDashboard, FeatureFinance, FeatureWasteBank, FeatureVerification,
		},
	})
}

// IsPermitted reports whether role may use feature.
func (m *Matrix) IsPermitted(role Role, feature Feature) bool {
	if role.IsElevated() {
		return true
	}
	set, ok := m.grants[role]
	if !ok {
		return false
	}
	_, ok = set[feature]
	return ok
}

// Features 返回角色可见的功能区（按 AllFeatures 顺序）
func (m *Matrix) Features(role Role) []Feature {
	out := make([]Feature, 0, len(AllFeatures))
	for _, f := range AllFeatures {
		if m.IsPermitted(role, f) {
			out = append(out, f)
		}
	}
	return out
}

// Table returns a copy of the grants, sorted, for display and policy dumps.
func (m *Matrix) Table() map[Role][]Feature {
	out := make(map[Role][]Feature, len(m.grants))
	for role, set := range m.grants {
		fs := make([]Feature, 0, len(set))
		for f := range set {
			fs = append(fs, f)
		}
		sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
		out[role] = fs
	}
	return out
}

// Validate 检查矩阵中每个非提升角色都有配置
func (m *Matrix) Validate() error {
	for _, r := range AllRoles {
		if r.IsElevated() {
			continue
		}
		if _, ok := m.grants[r]; !ok {
			return fmt.Errorf("policy: role %q has no feature grants", r)
		}
	}
	return nil
}
