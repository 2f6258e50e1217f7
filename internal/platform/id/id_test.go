package id

import (
	"encoding/base32"
	"strings"
	"testing"
)

func decode(t *testing.T, value string) []byte {
	t.Helper()
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode id %q: %v", value, err)
	}
	return raw
}

func TestNewIDShape(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	if len(value) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(value), value)
	}
	if value != strings.ToLower(value) {
		t.Fatalf("expected lowercase id, got %q", value)
	}
	if strings.ContainsRune(value, '=') {
		t.Fatalf("expected unpadded id, got %q", value)
	}

	if raw := decode(t, value); len(raw) != 16 {
		t.Fatalf("expected 16 decoded bytes, got %d", len(raw))
	}
}

func TestNewIDCarriesUUIDv4Bits(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	raw := decode(t, value)

	if version := raw[6] >> 4; version != 4 {
		t.Fatalf("expected uuid version 4, got %d", version)
	}
	if variant := raw[8] & 0xC0; variant != 0x80 {
		t.Fatalf("expected rfc 4122 variant, got 0x%X", variant)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		value, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, ok := seen[value]; ok {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = struct{}{}
	}
}
