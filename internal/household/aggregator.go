// Package household groups flat person records into households keyed by family card number.
//
// Households are never stored. Every consumer (people table, map view, dashboard statistics,
// spreadsheet export) calls BuildHouseholds over the same scoped fetch, so the grouping rules
// live in exactly one place.
package household

import (
	"sort"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
)

// BuildHouseholds groups people by family card number in input order.
//
//   - the first record with the head role becomes Head; later head-role records stay in Members
//   - a group without any head-role record displays Members[0] as Head (HeadInferred = true)
//   - records without a family card number land in the "unknown" group
//
// Stored roles are never modified. Every input record appears exactly once.
func BuildHouseholds(people []*domain.Person) map[string]*domain.Household {
	out := make(map[string]*domain.Household)
	for _, p := range people {
		if p == nil {
			continue
		}
		key := p.FamilyKey()
		h, ok := out[key]
		if !ok {
			h = &domain.Household{Key: key, Members: []*domain.Person{}}
			out[key] = h
		}
		if h.Head == nil && p.IsHead() {
			h.Head = p
			continue
		}
		h.Members = append(h.Members, p)
	}

	for _, h := range out {
		if h.Head == nil && len(h.Members) > 0 {
			h.Head = h.Members[0]
			h.Members = h.Members[1:]
			h.HeadInferred = true
		}
	}
	return out
}

// Ordered returns households sorted by key, with the "unknown" group last.
func Ordered(households map[string]*domain.Household) []*domain.Household {
	out := make([]*domain.Household, 0, len(households))
	for _, h := range households {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a == domain.UnknownFamilyKey || b == domain.UnknownFamilyKey {
			return b == domain.UnknownFamilyKey && a != domain.UnknownFamilyKey
		}
		return a < b
	})
	return out
}

// SortForDisplay 返回按 No. KK 排序、户主在前的副本（导出和表格使用）
func SortForDisplay(people []*domain.Person) []*domain.Person {
	out := make([]*domain.Person, len(people))
	copy(out, people)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FamilyCardNumber != b.FamilyCardNumber {
			return a.FamilyCardNumber < b.FamilyCardNumber
		}
		return a.IsHead() && !b.IsHead()
	})
	return out
}

// Stats 仪表盘统计
type Stats struct {
	People     int `json:"people"`
	Households int `json:"households"`
	Male       int `json:"male"`
	Female     int `json:"female"`
}

// Summarize counts people, households and sex distribution over one scoped snapshot.
func Summarize(people []*domain.Person) Stats {
	s := Stats{Households: len(BuildHouseholds(people))}
	for _, p := range people {
		if p == nil {
			continue
		}
		s.People++
		switch p.Sex {
		case "Laki-laki", "L", "male", "Male":
			s.Male++
		case "Perempuan", "P", "female", "Female":
			s.Female++
		}
	}
	return s
}

// Search 按姓名、门牌号、No. KK 过滤户（任一成员命中即保留整户）
func Search(households []*domain.Household, match func(*domain.Person) bool) []*domain.Household {
	out := make([]*domain.Household, 0, len(households))
	for _, h := range households {
		for _, p := range h.People() {
			if match(p) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// MatchTerm 返回不区分大小写的包含匹配：姓名、NIK、No. KK、门牌号任一命中即可
// 空词匹配所有人
func MatchTerm(term string) func(*domain.Person) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	return func(p *domain.Person) bool {
		if t == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.FullName), t) ||
			strings.Contains(p.NationalID, t) ||
			strings.Contains(p.FamilyCardNumber, t) ||
			strings.Contains(strings.ToLower(p.HouseNumber), t)
	}
}
