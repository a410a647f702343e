package wastebank

import (
	"sort"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	NationalID  string  `json:"national_id"`
	DisplayName string  `json:"display_name"`
	TotalKg     float64 `json:"total_kg"`
	Deposits    int     `json:"deposits"`
	Badge       string  `json:"badge"`
}

// BadgeTier 徽章门槛：MaxRank > 0 时按名次判定，否则按累计重量判定
type BadgeTier struct {
	Name    string
	MaxRank int
	MinKg   float64
}

// DefaultBadgeTiers 自上而下匹配，第一条命中即返回
var DefaultBadgeTiers = []BadgeTier{
	{Name: "Juara 1", MaxRank: 1},
	{Name: "Top 3", MaxRank: 3},
	{Name: "Pahlawan Lingkungan", MinKg: 50},
	{Name: "Warga Peduli"},
}

// Badge picks the display badge. It has no influence on ordering.
func Badge(tiers []BadgeTier, rank int, totalKg float64) string {
	for _, t := range tiers {
		if t.MaxRank > 0 {
			if rank <= t.MaxRank {
				return t.Name
			}
			continue
		}
		if totalKg >= t.MinKg {
			return t.Name
		}
	}
	return ""
}

// Rank groups deposits by national ID, sums weight and orders descending. Ties keep
// first-encounter order. The display name is the first non-empty depositor name seen.
func Rank(deposits []*domain.WasteDeposit) []LeaderboardEntry {
	return RankWithTiers(deposits, DefaultBadgeTiers)
}

// RankWithTiers 同 Rank，使用自定义徽章表
func RankWithTiers(deposits []*domain.WasteDeposit, tiers []BadgeTier) []LeaderboardEntry {
	index := make(map[string]int)
	entries := make([]LeaderboardEntry, 0)
	for _, d := range deposits {
		if d == nil {
			continue
		}
		i, ok := index[d.NationalID]
		if !ok {
			i = len(entries)
			index[d.NationalID] = i
			entries = append(entries, LeaderboardEntry{NationalID: d.NationalID})
		}
		e := &entries[i]
		e.TotalKg += d.WeightKg
		e.Deposits++
		if e.DisplayName == "" {
			e.DisplayName = d.DepositorName
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalKg > entries[j].TotalKg
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Badge = Badge(tiers, entries[i].Rank, entries[i].TotalKg)
	}
	return entries
}

// BalanceSummary 个人垃圾银行余额
type BalanceSummary struct {
	NationalID string                 `json:"national_id"`
	Name       string                 `json:"name"`
	TotalValue int64                  `json:"total_value"`
	TotalKg    float64                `json:"total_kg"`
	Deposits   int                    `json:"deposits"`
	History    []*domain.WasteDeposit `json:"history"`
}

// Balance sums the value and weight of every deposit made under nationalID.
func Balance(deposits []*domain.WasteDeposit, nationalID string) BalanceSummary {
	b := BalanceSummary{NationalID: nationalID, History: []*domain.WasteDeposit{}}
	for _, d := range deposits {
		if d == nil || d.NationalID != nationalID {
			continue
		}
		b.TotalValue += d.TotalValue
		b.TotalKg += d.WeightKg
		b.Deposits++
		b.History = append(b.History, d)
		if b.Name == "" {
			b.Name = d.DepositorName
		}
	}
	return b
}
