package recommend

import (
	"fmt"
	"math"
)

// MaxBundleLines caps how many lines any bundle discounts.
const MaxBundleLines = 5

type LineItem struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Strategy is one fixed bundle. Items returns the monthly savings breakdown.
type Strategy struct {
	Name      string
	Rationale string
	Items     func(memberCount, teenCount int) []LineItem
}

type CombinationOption struct {
	Name         string     `json:"name"`
	Savings      int        `json:"savings"`
	Breakdown    []LineItem `json:"breakdown"`
	DiscountRate float64    `json:"discount_rate"`
	Rationale    string     `json:"rationale"`
	Selected     bool       `json:"selected"`
}

type Bundle struct {
	CombinationOption
	Options []CombinationOption `json:"options"`
}

// Strategies is evaluated in declaration order; earlier entries win ties.
var Strategies = []Strategy{
	{
		Name:      "투게더 결합",
		Rationale: "가족 회선 수에 비례한 기본 할인에 청소년 회선 추가 할인이 더해집니다",
		Items: func(n, teens int) []LineItem {
			lines := clampLines(n)
			return []LineItem{
				{Label: fmt.Sprintf("회선 할인 %d회선 x 14,000원", lines), Amount: lines * 14000},
				{Label: fmt.Sprintf("청소년 추가 할인 %d명 x 10,000원", teens), Amount: teens * 10000},
			}
		},
	},
	{
		Name:      "가족 무한 결합",
		Rationale: "회선마다 고정 할인이 적용되고 3회선 이상이면 가족 보너스가 붙습니다",
		Items: func(n, _ int) []LineItem {
			lines := clampLines(n)
			items := []LineItem{{Label: fmt.Sprintf("회선 할인 %d회선 x 5,500원", lines), Amount: 5500 * lines}}
			bonus := 0
			if n >= 3 {
				bonus = 10000
			}
			return append(items, LineItem{Label: "3회선 이상 가족 보너스", Amount: bonus})
		},
	},
	{
		Name:      "인터넷+TV 결합",
		Rationale: "인터넷과 TV를 함께 쓰는 가정에 기본 할인과 회선 할인이 제공됩니다",
		Items: func(n, _ int) []LineItem {
			lines := clampLines(n)
			return []LineItem{
				{Label: "인터넷+TV 기본 할인", Amount: 13200},
				{Label: fmt.Sprintf("모바일 회선 할인 %d회선 x 3,300원", lines), Amount: 3300 * lines},
			}
		},
	},
	{
		Name:      "청소년 안심 결합",
		Rationale: "청소년 회선에 큰 할인을 주고 나머지 회선에도 소액 할인이 적용됩니다",
		Items: func(n, teens int) []LineItem {
			if teens > n {
				teens = n
			}
			return []LineItem{
				{Label: fmt.Sprintf("청소년 회선 할인 %d명 x 15,000원", teens), Amount: teens * 15000},
				{Label: fmt.Sprintf("보호자 회선 할인 %d명 x 4,000원", n-teens), Amount: 4000 * (n - teens)},
			}
		},
	},
}

// Combine evaluates every strategy and selects the one with the largest savings.
// baseLinePrice is the list price of one line, used for the discount rate.
func Combine(memberCount, teenCount, baseLinePrice int) Bundle {
	if memberCount < 0 {
		memberCount = 0
	}
	if teenCount < 0 {
		teenCount = 0
	}
	options := make([]CombinationOption, 0, len(Strategies))
	best := -1
	for i, s := range Strategies {
		items := s.Items(memberCount, teenCount)
		total := 0
		for _, it := range items {
			total += it.Amount
		}
		options = append(options, CombinationOption{
			Name:         s.Name,
			Savings:      total,
			Breakdown:    items,
			DiscountRate: discountRate(total, memberCount, baseLinePrice),
			Rationale:    s.Rationale,
		})
		if best < 0 || total > options[best].Savings {
			best = i
		}
	}
	options[best].Selected = true
	return Bundle{CombinationOption: options[best], Options: options}
}

func clampLines(n int) int {
	if n > MaxBundleLines {
		return MaxBundleLines
	}
	return n
}

func discountRate(savings, memberCount, baseLinePrice int) float64 {
	if memberCount <= 0 || baseLinePrice <= 0 {
		return 0
	}
	pct := float64(savings) / float64(memberCount*baseLinePrice) * 100
	return math.Round(pct*10) / 10
}
