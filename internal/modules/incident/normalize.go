package incident

import "strings"

var typeKeywords = []struct {
	t     Type
	words []string
}{
	{TypeNearMiss, []string{"near miss", "near-miss", "near_miss", "close call"}},
	{TypeAccident, []string{"accident", "collision", "crash", "hit and run"}},
	{TypeHarassment, []string{"harass", "abuse", "assault", "threat", "stalk"}},
	{TypeTheft, []string{"theft", "robbery", "stolen", "snatch", "mugging"}},
	{TypeRoadCondition, []string{"road condition", "road_condition", "pothole", "road hazard", "waterlogging", "flooded road"}},
}

// ParseType maps free-text categories from forms and analysis backends onto
// Type. Anything unrecognized is TypeOther.
func ParseType(s string) Type {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return TypeOther
	}
	switch Type(v) {
	case TypeAccident, TypeHarassment, TypeTheft, TypeNearMiss, TypeRoadCondition, TypeOther:
		return Type(v)
	}
	for _, k := range typeKeywords {
		for _, w := range k.words {
			if strings.Contains(v, w) {
				return k.t
			}
		}
	}
	return TypeOther
}

// ParseSeverity folds backend severities onto three levels. Critical maps to
// high; missing or unknown values default to medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor":
		return SeverityLow
	case "high", "critical", "severe", "emergency":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
