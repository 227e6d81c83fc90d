package recommend

import (
	"sort"
	"strings"

	"github.com/yungbote/famspace-backend/internal/domain/plans"
)

// Characteristics is the majority profile of the members who completed the survey.
type Characteristics struct {
	AgeBand     string `json:"age_band"`
	Feature     string `json:"feature"`
	Personality string `json:"personality"`
	MemberCount int    `json:"member_count"`
}

// Characterize takes a majority vote per field over completed profiles. Empty values do not vote;
// ties go to the lexicographically smallest value. memberCount is the whole family size.
func Characterize(profiles []*plans.SurveyProfile, memberCount int) Characteristics {
	ages := map[string]int{}
	features := map[string]int{}
	personalities := map[string]int{}
	for _, p := range profiles {
		if !p.Completed() {
			continue
		}
		vote(ages, p.AgeBand)
		vote(features, p.FeatureTag)
		vote(personalities, p.PersonalityTag)
	}
	return Characteristics{
		AgeBand:     majority(ages),
		Feature:     majority(features),
		Personality: majority(personalities),
		MemberCount: memberCount,
	}
}

func vote(tally map[string]int, raw string) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return
	}
	tally[v]++
}

func majority(tally map[string]int) string {
	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN := "", 0
	for _, k := range keys {
		if tally[k] > bestN {
			best, bestN = k, tally[k]
		}
	}
	return best
}
