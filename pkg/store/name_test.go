package store

import (
	"errors"
	"strings"
	"testing"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.txt", "report.txt"},
		{"dir/report.txt", "report.txt"},
		{"/abs/path/to/file.bin", "file.bin"},
		{`C:\Users\pat\notes.md`, "notes.md"},
		{`mixed/sep\file`, "file"},
		{"trailing/", ""},
		{"", ""},
		{"name with spaces.txt", "name with spaces.txt"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{
		"a",
		"report.txt",
		"name with spaces",
		"UPPER.lower.123",
		".hidden",
		strings.Repeat("x", 255),
	}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		".",
		"..",
		"a/b",
		`a\b`,
		"nul\x00byte",
		"line\nbreak",
		"carriage\rreturn",
		strings.Repeat("x", 256),
	}
	for _, name := range invalid {
		err := ValidateName(name)
		if err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
			continue
		}
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := NewError("put", "fs", "big.bin", inner)
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(%v, inner) = false, want true", err)
	}
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("errors.As(%v, *StoreError) = false, want true", err)
	}
	if se.Op != "put" || se.Backend != "fs" || se.Name != "big.bin" {
		t.Errorf("StoreError fields = %+v", se)
	}
}
