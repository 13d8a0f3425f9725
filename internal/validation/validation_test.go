package validation

import (
	"testing"
	"time"
)

func TestIsValidContact(t *testing.T) {
	tests := []struct {
		name    string
		contact string
		valid   bool
	}{
		{name: "empty is allowed", contact: "", valid: true},
		{name: "formatted phone", contact: "+55 (11) 98765-4321", valid: true},
		{name: "short local number", contact: "555-1234", valid: true},
		{name: "email", contact: "ana@example.com", valid: true},
		{name: "phone with extension", contact: "11 9999-8888 ramal 2", valid: true},
		{name: "newline", contact: "555\n1234", valid: false},
		{name: "nul byte", contact: "555\x001234", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidContact(tt.contact)
			if got != tt.valid {
				t.Fatalf("IsValidContact(%q) = %v, want %v", tt.contact, got, tt.valid)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2024-05-01")
	if !ok {
		t.Fatalf("ParseDate rejected a valid date")
	}
	if !d.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate = %v", d)
	}

	if _, ok := ParseDate("01/05/2024"); ok {
		t.Fatalf("ParseDate accepted a non ISO date")
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "10:00", want: "10:00", ok: true},
		{in: "09:30:00", want: "09:30", ok: true},
		{in: "25:00", ok: false},
		{in: "10h", ok: false},
	}

	for _, tt := range tests {
		got, ok := NormalizeTime(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("NormalizeTime(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
