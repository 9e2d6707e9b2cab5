package utils

import (
	"errors"
	"testing"
)

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"four digits", "1234", nil},
		{"longer code", "987654", nil},
		{"leading zeros", "0042", nil},
		{"too short", "12", ErrPINTooShort},
		{"three digits", "123", ErrPINTooShort},
		{"empty", "", ErrPINTooShort},
		{"letters", "abcd", ErrPINNotNumeric},
		{"mixed", "12a4", ErrPINNotNumeric},
		{"digit with space", "12 4", ErrPINNotNumeric},
		{"unicode digits rejected", "١٢٣٤", ErrPINNotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePIN(tt.code)
			if !errors.Is(got, tt.want) {
				t.Fatalf("ValidatePIN(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestGeneratePIN(t *testing.T) {
	pin, err := GeneratePIN()
	if err != nil {
		t.Fatalf("GeneratePIN failed: %v", err)
	}
	if len(pin) != DefaultPINLength {
		t.Fatalf("expected %d digits, got %q", DefaultPINLength, pin)
	}
	if err := ValidatePIN(pin); err != nil {
		t.Fatalf("generated PIN %q failed validation: %v", pin, err)
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	b, err := GenerateSecureToken()
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatalf("two tokens should not collide")
	}
}
