package recommend

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/famspace-backend/internal/domain/plans"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// AnyPlan matches every candidate plan.
const AnyPlan = "*"

// Predicate is a conjunction over FamilyCharacteristics. Zero-valued fields are ignored.
type Predicate struct {
	AgeBand     string `yaml:"age_band"`
	Feature     string `yaml:"feature"`
	Personality string `yaml:"personality"`
	MinMembers  int    `yaml:"min_members"`
	MaxMembers  int    `yaml:"max_members"`
	Cheapest    bool   `yaml:"cheapest"`
}

type Rule struct {
	Name           string    `yaml:"name"`
	Plan           string    `yaml:"plan"`
	When           Predicate `yaml:"when"`
	Bonus          float64   `yaml:"bonus"`
	DiscountFactor float64   `yaml:"discount_factor"`
	Reason         string    `yaml:"reason"`
}

type RuleTable struct {
	Rules []Rule `yaml:"rules"`
}

// Subject is what a rule is evaluated against.
type Subject struct {
	Plan     *plans.Plan
	Family   Characteristics
	Cheapest bool
}

// Adjustment is the outcome of running the table over one plan.
type Adjustment struct {
	Delta   float64
	Applied []string
	Reasons []string
}

func DefaultRules() (RuleTable, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule table from path, falling back to the embedded table when path is empty.
func LoadRules(path string) (RuleTable, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("read scoring rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (RuleTable, error) {
	var t RuleTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return RuleTable{}, fmt.Errorf("parse scoring rules: %w", err)
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		r.Plan = strings.TrimSpace(r.Plan)
		if r.Plan == "" {
			return RuleTable{}, fmt.Errorf("scoring rule %d (%s): plan is required", i, r.Name)
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i)
		}
		r.When.AgeBand = strings.ToLower(strings.TrimSpace(r.When.AgeBand))
		r.When.Feature = strings.ToLower(strings.TrimSpace(r.When.Feature))
		r.When.Personality = strings.ToLower(strings.TrimSpace(r.When.Personality))
	}
	return t, nil
}

func (p Predicate) Match(s Subject) bool {
	f := s.Family
	if p.AgeBand != "" && p.AgeBand != f.AgeBand {
		return false
	}
	if p.Feature != "" && p.Feature != f.Feature {
		return false
	}
	if p.Personality != "" && p.Personality != f.Personality {
		return false
	}
	if p.MinMembers > 0 && f.MemberCount < p.MinMembers {
		return false
	}
	if p.MaxMembers > 0 && f.MemberCount > p.MaxMembers {
		return false
	}
	if p.Cheapest && !s.Cheapest {
		return false
	}
	return true
}

// Evaluate runs every rule against s in table order.
func (t RuleTable) Evaluate(s Subject) Adjustment {
	var adj Adjustment
	if s.Plan == nil {
		return adj
	}
	for _, r := range t.Rules {
		if r.Plan != AnyPlan && r.Plan != s.Plan.ID {
			continue
		}
		if !r.When.Match(s) {
			continue
		}
		delta := r.Bonus + r.DiscountFactor*s.Plan.DiscountFraction()
		if delta == 0 {
			continue
		}
		adj.Delta += delta
		adj.Applied = append(adj.Applied, r.Name)
		if r.Reason != "" {
			adj.Reasons = append(adj.Reasons, r.Reason)
		}
	}
	return adj
}
