package core

import "testing"

func TestHeadingToAnchor(t *testing.T) {
	tests := []struct {
		heading string
		want    string
	}{
		{"Old Title", "old-title"},
		{"  Spaced   Out  ", "spaced-out"},
		{"What's new?", "whats-new"},
		{"A & B", "a--b"},
		{"snake_case and-hyphen", "snake_case-and-hyphen"},
		{"Version 2.0", "version-20"},
		{"Café Über", "café-über"},
		{"-Leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HeadingToAnchor(tt.heading); got != tt.want {
			t.Errorf("HeadingToAnchor(%q) = %q, want %q", tt.heading, got, tt.want)
		}
	}
}
