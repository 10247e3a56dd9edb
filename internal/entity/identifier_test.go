package entity

import (
	"errors"
	"testing"
)

func TestParseIdentifierType(t *testing.T) {
	for _, valid := range []string{"wals", "iso639-3", "glottolog"} {
		typ, err := ParseIdentifierType(valid)
		if err != nil {
			t.Fatalf("ParseIdentifierType(%q) returned error: %v", valid, err)
		}
		if string(typ) != valid {
			t.Fatalf("ParseIdentifierType(%q) = %q", valid, typ)
		}
	}

	_, err := ParseIdentifierType("ethnologue")
	var invalid *InvalidIdentifierTypeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidIdentifierTypeError, got %v", err)
	}
	if invalid.Type != "ethnologue" {
		t.Fatalf("expected the rejected type in the error, got %q", invalid.Type)
	}
}

func TestIdentifierValidate(t *testing.T) {
	ident := NewIdentifier(IdentifierWALS, "abk")
	if err := ident.Validate(); err != nil {
		t.Fatalf("expected wals identifier to validate, got %v", err)
	}

	ident.Type = "ruhlen"
	if err := ident.Validate(); err == nil {
		t.Fatalf("expected unknown catalog to be rejected")
	}
}

func TestNewIdentifierDerivesID(t *testing.T) {
	if got := NewIdentifier(IdentifierISO639_3, "abk").ID; got != "iso639-3:abk" {
		t.Fatalf("derived id = %q, want iso639-3:abk", got)
	}
	if got := NewIdentifier(IdentifierWALS, "").ID; got != "" {
		t.Fatalf("nameless identifier id = %q, want empty", got)
	}
}

func TestIdentifierURL(t *testing.T) {
	tests := []struct {
		typ  IdentifierType
		name string
		want string
	}{
		{IdentifierWALS, "abk", "https://wals.info/languoid/lect/wals_code_abk"},
		{IdentifierISO639_3, "abk", "https://iso639-3.sil.org/code/abk"},
		{IdentifierGlottolog, "abkh1244", "https://glottolog.org/resource/languoid/id/abkh1244"},
		{IdentifierWALS, "", ""},
		{"ruhlen", "abk", ""},
	}

	for _, tc := range tests {
		ident := NewIdentifier(tc.typ, tc.name)
		if got := ident.URL(); got != tc.want {
			t.Fatalf("URL() for %s/%s = %q, want %q", tc.typ, tc.name, got, tc.want)
		}
	}
}
