package selection

import (
	"strings"
	"time"
)

// ActiveMarkets applies the strict filter (active, not archived, has a
// question and condition id, end date in the future). When nothing passes it
// falls back to the loose filter capped at looseLimit.
func ActiveMarkets(markets []Market, now time.Time, looseLimit int) []Market {
	strict := make([]Market, 0, len(markets))
	for _, m := range markets {
		if strictMatch(m, now) {
			strict = append(strict, m)
		}
	}
	if len(strict) > 0 || len(markets) == 0 {
		return strict
	}
	loose := make([]Market, 0, len(markets))
	for _, m := range markets {
		if looseMatch(m) {
			loose = append(loose, m)
		}
	}
	if looseLimit > 0 && len(loose) > looseLimit {
		loose = loose[:looseLimit]
	}
	return loose
}

func strictMatch(m Market, now time.Time) bool {
	if !m.Active || m.Archived || strings.TrimSpace(m.Question) == "" || m.ConditionID == "" {
		return false
	}
	end, ok := parseEndDate(m.EndDate)
	return ok && end.After(now)
}

func looseMatch(m Market) bool {
	return (m.Question != "" || m.QuestionID != "") && m.ConditionID != "" && m.Active
}

func parseEndDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindByCondition returns the market with conditionID.
func FindByCondition(markets []Market, conditionID string) (Market, bool) {
	for _, m := range markets {
		if m.ConditionID == conditionID {
			return m, true
		}
	}
	return Market{}, false
}
