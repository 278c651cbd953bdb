package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{
			name:  "integer",
			input: "25",
			want:  "25",
			valid: true,
		},
		{
			name:  "decimal with spaces",
			input: " 25.50 ",
			want:  "25.5",
			valid: true,
		},
		{
			name:  "not a number",
			input: "abc",
			valid: false,
		},
		{
			name:  "zero",
			input: "0",
			valid: false,
		},
		{
			name:  "negative",
			input: "-3.20",
			valid: false,
		},
		{
			name:  "empty string",
			input: "",
			valid: false,
		},
		{
			name:  "trailing zeros beyond cents",
			input: "25.5000",
			want:  "25.5",
			valid: true,
		},
		{
			name:  "largest accepted amount",
			input: "999999999999999.99",
			want:  "999999999999999.99",
			valid: true,
		},
		{
			name:  "huge exponent",
			input: "1e20000000",
			valid: false,
		},
		{
			name:  "small exponent",
			input: "2.5E1",
			valid: false,
		},
		{
			name:  "fractions of a cent",
			input: "0.001",
			valid: false,
		},
		{
			name:  "too large",
			input: "1000000000000000",
			valid: false,
		},
		{
			name:  "too long",
			input: "1." + strings.Repeat("0", 40),
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if !tt.valid {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseAmount(%q) error = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	for _, code := range []string{"USD", "GBP", "EUR"} {
		if _, err := ParseCurrency(code); err != nil {
			t.Fatalf("ParseCurrency(%q) unexpected error: %v", code, err)
		}
	}

	if _, err := ParseCurrency("JPY"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ParseCurrency(JPY) error = %v, want ErrInvalidInput", err)
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		want  string
		valid bool
	}{
		{
			name:  "date and time",
			date:  "2025/01/01",
			clock: "12:00",
			want:  "2025/01/01 12:00",
			valid: true,
		},
		{
			name:  "default time",
			date:  "2025/03/09",
			clock: "",
			want:  "2025/03/09 12:00",
			valid: true,
		},
		{
			name:  "dashes instead of slashes",
			date:  "2025-01-01",
			clock: "12:00",
			valid: false,
		},
		{
			name:  "bad time",
			date:  "2025/01/01",
			clock: "25:61",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpiry(tt.date, tt.clock)
			if !tt.valid {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseExpiry(%q, %q) error = %v, want ErrInvalidInput", tt.date, tt.clock, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExpiry unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseExpiry = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	got, err := NormalizeName("  Maria ")
	if err != nil || got != "Maria" {
		t.Fatalf("NormalizeName = %q, %v; want Maria, nil", got, err)
	}

	if _, err := NormalizeName("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NormalizeName(blank) error = %v, want ErrInvalidInput", err)
	}
}

func TestNormalizeTokenID(t *testing.T) {
	got, err := NormalizeTokenID(" 6f1c\n")
	if err != nil || got != "6f1c" {
		t.Fatalf("NormalizeTokenID = %q, %v; want 6f1c, nil", got, err)
	}

	if _, err := NormalizeTokenID(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NormalizeTokenID(empty) error = %v, want ErrInvalidInput", err)
	}
}
