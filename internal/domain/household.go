package domain

// Household 户（派生对象，不落库）
// 每次读取时由 people 记录按 No. KK 重新计算
type Household struct {
	Key     string    `json:"family_card_number"`
	Head    *Person   `json:"head"`
	Members []*Person `json:"members"`

	// HeadInferred 为 true 表示组内没有 Kepala Keluarga 记录，Head 是展示用的第一位成员
	HeadInferred bool `json:"head_inferred"`
}

// People returns head followed by members.
func (h *Household) People() []*Person {
	out := make([]*Person, 0, len(h.Members)+1)
	if h.Head != nil {
		out = append(out, h.Head)
	}
	return append(out, h.Members...)
}

// Size 户内人数
func (h *Household) Size() int {
	n := len(h.Members)
	if h.Head != nil {
		n++
	}
	return n
}
