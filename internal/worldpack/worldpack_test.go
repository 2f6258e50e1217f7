package worldpack

import (
	"errors"
	"testing"
)

func TestLocalizedTextResolve(t *testing.T) {
	tests := []struct {
		name   string
		text   LocalizedText
		locale string
		want   string
	}{
		{"exact locale", LocalizedText{"en": "hello", "ru": "привет"}, "ru", "привет"},
		{"english fallback", LocalizedText{"en": "hello", "ru": "привет"}, "de", "hello"},
		{"first available", LocalizedText{"ru": "привет"}, "de", "привет"},
		{"empty map", LocalizedText{}, "en", ""},
		{"blank entry falls through", LocalizedText{"ru": "", "en": "hello"}, "ru", "hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.text.Resolve(tc.locale); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.locale, got, tc.want)
			}
		})
	}
}

func TestNormalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		pack Pack
		want error
	}{
		{"empty id", Pack{}, ErrEmptyPackID},
		{"no locations", Pack{ID: "p"}, ErrNoLocations},
		{
			"unknown start location",
			Pack{
				ID:              "p",
				StartLocationID: "nowhere",
				Locations:       map[string]Location{"a": {ID: "a"}},
			},
			ErrUnknownStartLocation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.pack); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	pack, err := Normalize(Pack{
		ID: "p",
		Locations: map[string]Location{
			"zeta":  {ID: "zeta"},
			"alpha": {ID: "alpha"},
		},
		LoreEntries: map[int64]LoreEntry{
			1: {UID: 1},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if pack.StartLocationID != "alpha" {
		t.Fatalf("expected lexically first start location, got %q", pack.StartLocationID)
	}
	if got := pack.LoreEntries[1].Visibility; got != VisibilityBasic {
		t.Fatalf("expected default visibility %q, got %q", VisibilityBasic, got)
	}
}

func TestNormalizeRekeysFromIDs(t *testing.T) {
	pack, err := Normalize(Pack{
		ID: "p",
		Locations: map[string]Location{
			"stale-key": {ID: "harbor"},
		},
		NPCs: map[string]NPC{
			"stale-npc": {ID: "npc_guard"},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if _, ok := pack.Locations["harbor"]; !ok {
		t.Fatal("expected locations re-keyed by id")
	}
	if _, ok := pack.Locations["stale-key"]; ok {
		t.Fatal("stale location key must not survive")
	}
	if _, ok := pack.NPCs["npc_guard"]; !ok {
		t.Fatal("expected npcs re-keyed by id")
	}
}

func TestParseYAML(t *testing.T) {
	raw := []byte(`
id: emberfall
name: Emberfall
start_location_id: harbor
regions:
  - id: coast
    name:
      en: The Coast
locations:
  - id: harbor
    region_id: coast
    name:
      en: Emberfall Harbor
      ru: Гавань Эмберфолла
npcs:
  - id: npc_innkeeper
    name: Old Salt
    persona:
      en: a weathered innkeeper
    location_id: harbor
lore_entries:
  - uid: 7
    primary_keys: [dragon]
    content:
      en: The dragon sleeps beneath the bay.
    order: 1
preset_characters:
  - id: mira
    name: Mira
    concept: wandering cartographer
    traits:
      - name: Sharp Eye
        positive: notices details
        negative: fixates
    fate_points: 3
`)

	pack, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if pack.ID != "emberfall" {
		t.Fatalf("unexpected pack id %q", pack.ID)
	}
	location, ok := pack.Locations["harbor"]
	if !ok {
		t.Fatal("expected harbor location")
	}
	if got := location.Name.Resolve("ru"); got != "Гавань Эмберфолла" {
		t.Fatalf("unexpected localized name %q", got)
	}
	if pack.RegionOf("harbor") != "coast" {
		t.Fatalf("unexpected region %q", pack.RegionOf("harbor"))
	}
	entry, ok := pack.LoreEntries[7]
	if !ok {
		t.Fatal("expected lore entry 7")
	}
	if entry.Visibility != VisibilityBasic {
		t.Fatalf("expected defaulted visibility, got %q", entry.Visibility)
	}
	preset, ok := pack.PresetCharacters["mira"]
	if !ok {
		t.Fatal("expected preset character")
	}
	if len(preset.Traits) != 1 || preset.Traits[0].Name != "Sharp Eye" {
		t.Fatalf("unexpected traits %+v", preset.Traits)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	if _, err := Parse([]byte("locations: [")); err == nil {
		t.Fatal("expected yaml error")
	}
	if _, err := Parse([]byte("name: no id\n")); !errors.Is(err, ErrEmptyPackID) {
		t.Fatalf("expected ErrEmptyPackID, got %v", err)
	}
}

func TestLoreOrderedByUID(t *testing.T) {
	pack := Pack{
		LoreEntries: map[int64]LoreEntry{
			9: {UID: 9},
			2: {UID: 2},
			5: {UID: 5},
		},
	}

	entries := pack.Lore()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []int64{2, 5, 9} {
		if entries[i].UID != want {
			t.Fatalf("entry %d: expected uid %d, got %d", i, want, entries[i].UID)
		}
	}
}

func TestRegionOfUnknownLocation(t *testing.T) {
	if got := (Pack{}).RegionOf("nowhere"); got != "" {
		t.Fatalf("expected empty region, got %q", got)
	}
}
