package utils

import "testing"

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{86399, "23h"},
		{172800, "2d"},
		{-90, "1m"},
	}

	for _, tt := range tests {
		if got := FormatRoundedUnit(tt.seconds); got != tt.want {
			t.Errorf("FormatRoundedUnit(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
