package format

import "testing"

func TestHumanizeBytes(t *testing.T) {
	const k = int64(1024)
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{k - 1, "1023 B"},
		{k, "1.0 KB"},
		{k + k/2, "1.5 KB"},
		{k * k, "1.0 MB"},
		{50 * k * k, "50.0 MB"},
		{5 * k * k * k, "5.0 GB"},
		{k * k * k * k, "1.0 TB"},
		{3 * k * k * k * k * k, "3.0 PB"},
	}
	for _, tc := range tests {
		if got := HumanizeBytes(tc.in); got != tc.want {
			t.Errorf("HumanizeBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
