package util

import "testing"

func TestParseSize(t *testing.T) {
	const def = int64(1 << 20)
	tests := []struct {
		input string
		want  int64
	}{
		{"10MB", 10 << 20},
		{"512KB", 512 << 10},
		{"2GB", 2 << 30},
		{"16kb", 16 << 10},
		{" 1 MB ", 1 << 20},
		{"1024", 1024},
		{"100B", 100},
		{"", def},
		{"lots", def},
		{"10MBs", def},
		{"-5KB", def},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseSize(tc.input, def); got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}
