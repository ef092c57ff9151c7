package phone

import "testing"

func TestNormalizeE164In(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{"empty stays empty", "   ", "MY", ""},
		{"already e164", "+60123456789", "MY", "+60123456789"},
		{"national malaysian mobile", "012-345 6789", "MY", "+60123456789"},
		{"unparseable kept trimmed", "  not-a-number ", "MY", "not-a-number"},
		{"too short kept as-is", "+60111", "MY", "+60111"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164In(tc.input, tc.region); got != tc.want {
				t.Fatalf("NormalizeE164In(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
			}
		})
	}
}
