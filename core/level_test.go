package core

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"INFO", LevelInfo, true},
		{"info", LevelInfo, true},
		{"WARNING", LevelWarn, true},
		{"warn", LevelWarn, true},
		{"ERR", LevelError, true},
		{"SEVERE", LevelError, true},
		{"CRITICAL", LevelFatal, true},
		{"panic", LevelFatal, true},
		{"trace", LevelTrace, true},
		{"debug", LevelDebug, true},
		{"50", LevelError, true},
		{"30", LevelInfo, true},
		{"60", LevelFatal, true},
		{"5", LevelUnknown, false},
		{"", LevelUnknown, false},
		{"bogus", LevelUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelPredicates(t *testing.T) {
	if !LevelError.IsError() || !LevelFatal.IsError() || LevelWarn.IsError() {
		t.Errorf("IsError() wrong")
	}
	if !LevelWarn.IsProblem() || LevelInfo.IsProblem() || LevelUnknown.IsProblem() {
		t.Errorf("IsProblem() wrong")
	}
	if Level(42).String() != "UNKNOWN" {
		t.Errorf("out of range level should print UNKNOWN")
	}
}

func TestLevelHistogram(t *testing.T) {
	h := LevelHistogram{}
	h.Add(LevelInfo)
	h.Add(LevelInfo)
	h.Add(LevelWarn)
	h.Add(LevelError)
	h.Add(LevelFatal)

	if h.Total() != 5 {
		t.Errorf("Total() = %d", h.Total())
	}
	if h.Errors() != 2 || h.Warnings() != 1 {
		t.Errorf("Errors() = %d, Warnings() = %d", h.Errors(), h.Warnings())
	}
	if h.Dominant() != LevelFatal {
		t.Errorf("Dominant() = %v", h.Dominant())
	}
	if (LevelHistogram{}).Dominant() != LevelUnknown {
		t.Errorf("empty Dominant() should be UNKNOWN")
	}

	names := h.ToNames()
	back := HistogramFromNames(names)
	for _, l := range Levels {
		if back[l] != h[l] {
			t.Errorf("round trip mismatch for %v: %d vs %d", l, back[l], h[l])
		}
	}

	other := LevelHistogram{LevelInfo: 3}
	h.Merge(other)
	if h[LevelInfo] != 5 {
		t.Errorf("Merge() info = %d", h[LevelInfo])
	}
}
