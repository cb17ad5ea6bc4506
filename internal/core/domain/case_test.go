package domain

import "testing"

func TestSeverityLabels(t *testing.T) {
	cases := []struct {
		severity Severity
		percent  string
		days     string
	}{
		{SeverityOnTime, "A TIEMPO", "A TIEMPO"},
		{SeverityLight, "LEVE", "LEVE"},
		{SeverityModerate, "MODERADA", "MEDIA"},
		{SeveritySevere, "GRAVE", "ALTA"},
		{SeverityNotApplicable, "NO APLICA", "NO APLICA"},
	}
	for _, tc := range cases {
		if got := tc.severity.Label(); got != tc.percent {
			t.Fatalf("%s.Label() = %q, want %q", tc.severity, got, tc.percent)
		}
		if got := tc.severity.DayLabel(); got != tc.days {
			t.Fatalf("%s.DayLabel() = %q, want %q", tc.severity, got, tc.days)
		}
	}
}
