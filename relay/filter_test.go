package relay

import "testing"

func TestGlobFilter(t *testing.T) {
	tests := []struct {
		name       string
		patterns   []string
		collection string
		want       bool
	}{
		{"empty matches all", nil, "anything/x/y", true},
		{"exact", []string{"notes"}, "notes", true},
		{"exact miss", []string{"notes"}, "settings", false},
		{"star within segment", []string{"users/*/notifications"}, "users/u1/notifications", true},
		{"star does not cross slash", []string{"users/*"}, "users/u1/notifications", false},
		{"super star crosses slash", []string{"users/**"}, "users/u1/notifications", true},
		{"any of several", []string{"settings", "notes*"}, "notes_archive", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewGlobFilter(tt.patterns)
			if err != nil {
				t.Fatalf("NewGlobFilter: %v", err)
			}
			if got := f.Match(tt.collection); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.collection, got, tt.want)
			}
		})
	}
}

func TestGlobFilter_InvalidPattern(t *testing.T) {
	if _, err := NewGlobFilter([]string{"[unclosed"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
