package recommend

import (
	"fmt"
	"strconv"
	"strings"
)

// Narrative reports survey coverage. Partial coverage means the ranking reflects only part of the family.
type Narrative struct {
	TotalMembers     int    `json:"total_members"`
	CompletedMembers int    `json:"completed_members"`
	PendingMembers   int    `json:"pending_members"`
	AllCompleted     bool   `json:"all_completed"`
	Text             string `json:"text"`
}

func NewNarrative(total, completed int, top string, family Characteristics) Narrative {
	pending := total - completed
	if pending < 0 {
		pending = 0
	}
	n := Narrative{
		TotalMembers:     total,
		CompletedMembers: completed,
		PendingMembers:   pending,
		AllCompleted:     pending == 0,
	}

	var b strings.Builder
	if n.AllCompleted {
		fmt.Fprintf(&b, "가족 %d명 모두 설문을 완료했습니다.", total)
	} else {
		fmt.Fprintf(&b, "가족 %d명 중 %d명이 설문을 완료했고 %d명이 아직 남아 있습니다. 남은 구성원이 참여하면 추천이 더 정확해집니다.",
			total, completed, pending)
	}
	if top != "" {
		fmt.Fprintf(&b, " 가장 잘 맞는 요금제는 %s입니다.", top)
	}
	if traits := describe(family); traits != "" {
		fmt.Fprintf(&b, " 가족 성향: %s.", traits)
	}
	n.Text = b.String()
	return n
}

func describe(c Characteristics) string {
	parts := make([]string, 0, 3)
	if c.AgeBand != "" {
		parts = append(parts, "연령대 "+c.AgeBand)
	}
	if c.Feature != "" {
		parts = append(parts, "주 사용 "+c.Feature)
	}
	if c.Personality != "" {
		parts = append(parts, "성향 "+c.Personality)
	}
	return strings.Join(parts, ", ")
}

// won renders an amount with thousands separators, e.g. 73500 -> "73,500원".
func won(amount int) string {
	s := strconv.Itoa(amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "원"
	if neg {
		return "-" + out
	}
	return out
}
