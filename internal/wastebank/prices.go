package wastebank

import (
	"fmt"
	"math"
	"sort"
)

// PriceTable 每公斤收购价（Rupiah）
type PriceTable map[string]int64

// DefaultPrices 默认收购价
var DefaultPrices = PriceTable{
	"Kardus/Karton":        3000,
	"Botol Plastik Bersih": 2500,
	"Kaleng/Logam":         5000,
	"Minyak Jelantah":      4000,
	"Kertas HVS/Buku":      2000,
}

// UnitPrice 查询材料单价
func (t PriceTable) UnitPrice(material string) (int64, error) {
	p, ok := t[material]
	if !ok {
		return 0, fmt.Errorf("unknown material type %q", material)
	}
	return p, nil
}

// Materials returns material names sorted alphabetically.
func (t PriceTable) Materials() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TotalValue weight × unit price, rounded to the nearest rupiah.
func TotalValue(weightKg float64, unitPrice int64) int64 {
	return int64(math.Round(weightKg * float64(unitPrice)))
}
