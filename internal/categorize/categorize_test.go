package categorize

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		text  string
		tags  []string
		want  string
	}{
		{"technology from text", "Morning briefing", "A new machine learning framework shipped today", nil, "technology"},
		{"business from tags", "Quarterly update", "Numbers looked stable", []string{"finance"}, "business"},
		{"science", "Lab notes", "The experiment confirmed the earlier discovery", nil, "science"},
		{"health", "Clinic report", "Hospital treatment improved for every patient", nil, "health"},
		{"no match", "Weekend reading", "A quiet walk along the river", nil, General},
		{"empty input", "", "", nil, General},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.title, tt.text, tt.tags); got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorizeOrderedPrecedence(t *testing.T) {
	// Mentions both technology and business keywords; technology is
	// checked first and must win.
	got := Categorize("", "The startup built an ai trading platform", nil)
	if got != "technology" {
		t.Errorf("Categorize() = %q, want technology to take precedence", got)
	}
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	if got := Categorize("HEALTHCARE Roundup", "", nil); got != "health" {
		t.Errorf("Categorize() = %q, want health", got)
	}
}
