package incident

import "testing"

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"":                        TypeOther,
		"accident":                TypeAccident,
		"Traffic Accident":        TypeAccident,
		"Near Miss":               TypeNearMiss,
		"near_miss":               TypeNearMiss,
		"Verbal Harassment":       TypeHarassment,
		"Phone snatching":         TypeTheft,
		"road_condition":          TypeRoadCondition,
		"Pothole on service road": TypeRoadCondition,
		"Medical Emergency":       TypeOther,
		"  THEFT  ":               TypeTheft,
	}
	for in, want := range tests {
		if got := ParseType(in); got != want {
			t.Errorf("ParseType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"":         SeverityMedium,
		"Low":      SeverityLow,
		"medium":   SeverityMedium,
		"High":     SeverityHigh,
		"Critical": SeverityHigh,
		"unknown":  SeverityMedium,
	}
	for in, want := range tests {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", in, got, want)
		}
	}
}
