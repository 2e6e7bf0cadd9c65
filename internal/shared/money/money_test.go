package money

import "testing"

func TestFormat(t *testing.T) {
	tests := map[int]string{
		0:         "Rs. 0.00",
		5:         "Rs. 0.05",
		125050:    "Rs. 1,250.50",
		100000000: "Rs. 1,000,000.00",
		-35000:    "-Rs. 350.00",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestParseCents(t *testing.T) {
	ok := map[string]int{
		"1250":      125000,
		"1,250.5":   125050,
		"Rs. 99.99": 9999,
		"LKR 10":    1000,
		"0.10":      10,
		"12.500":    1250,
	}
	for in, want := range ok {
		got, err := ParseCents(in)
		if err != nil {
			t.Errorf("ParseCents(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCents(%q): expected %d, got %d", in, want, got)
		}
	}

	for _, in := range []string{"", "abc", "-5", "1.234", "Rs."} {
		if _, err := ParseCents(in); err == nil {
			t.Errorf("ParseCents(%q): expected error", in)
		}
	}
}
