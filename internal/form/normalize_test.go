package form

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase passthrough",
			input: "email",
			want:  "email",
		},
		{
			name:  "mixed case and spaces",
			input: "Mobile Number",
			want:  "mobilenumber",
		},
		{
			name:  "underscores stripped",
			input: "mobile_number",
			want:  "mobilenumber",
		},
		{
			name:  "hyphens and trailing space",
			input: "Mobile-Number ",
			want:  "mobilenumber",
		},
		{
			name:  "punctuation stripped",
			input: "Mobile-No.",
			want:  "mobileno",
		},
		{
			name:  "digits kept",
			input: "Address Line 2",
			want:  "addressline2",
		},
		{
			name:  "diacritics folded",
			input: "Café Préféré",
			want:  "cafeprefere",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   \t  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestNormalize_Idempotent verifies normalize(normalize(x)) == normalize(x).
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Email", "Mobile-No.", "Café Préféré", "E-mail Address", "", "already normal"}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

// TestNormalize_Equivalence checks the case/punctuation insensitivity the
// matching tiers depend on.
func TestNormalize_Equivalence(t *testing.T) {
	pairs := [][2]string{
		{"Mobile-No.", "mobile no"},
		{"E-mail Address", "email_address"},
		{"Full Name", "FULLNAME"},
	}
	for _, p := range pairs {
		if Normalize(p[0]) != Normalize(p[1]) {
			t.Errorf("Normalize(%q) = %q, Normalize(%q) = %q, want equal",
				p[0], Normalize(p[0]), p[1], Normalize(p[1]))
		}
	}
}
