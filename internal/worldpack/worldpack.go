// Package worldpack defines the static world content consumed by the engine:
// locations, regions, NPCs, lore entries, and preset player characters.
//
// Packs are authored as YAML files and may be imported into a SQLite store
// (see the sqlite subpackage). The engine treats a loaded pack as immutable.
package worldpack

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// VisibilityBasic marks lore that may surface in regular search results.
// Any other visibility level is hidden unless the entry is constant.
const VisibilityBasic = "basic"

var (
	// ErrEmptyPackID indicates a pack without an identifier.
	ErrEmptyPackID = errors.New("pack id is required")
	// ErrNoLocations indicates a pack without any locations.
	ErrNoLocations = errors.New("pack requires at least one location")
	// ErrUnknownStartLocation indicates a start location missing from the pack.
	ErrUnknownStartLocation = errors.New("start location is not part of the pack")
)

// LocalizedText maps a locale code ("en", "ru") to a rendered string.
type LocalizedText map[string]string

// Resolve returns the text for the requested locale, falling back to English
// and then to any available locale.
func (t LocalizedText) Resolve(locale string) string {
	if len(t) == 0 {
		return ""
	}
	if value, ok := t[locale]; ok && value != "" {
		return value
	}
	if value, ok := t["en"]; ok && value != "" {
		return value
	}
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return t[keys[0]]
}

// Region groups locations into a broader area of the world.
type Region struct {
	ID   string        `yaml:"id"`
	Name LocalizedText `yaml:"name"`
}

// Location is a place the player character can occupy.
type Location struct {
	ID          string        `yaml:"id"`
	RegionID    string        `yaml:"region_id"`
	Name        LocalizedText `yaml:"name"`
	Description LocalizedText `yaml:"description"`
	NPCIDs      []string      `yaml:"npc_ids"`
}

// NPC is a non-player character's static definition.
type NPC struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Persona     LocalizedText `yaml:"persona"`
	Speech      LocalizedText `yaml:"speech"`
	LocationID  string        `yaml:"location_id"`
	Disposition string        `yaml:"disposition"`
}

// LoreEntry is a keyed, localized piece of world background.
type LoreEntry struct {
	UID           int64         `yaml:"uid"`
	PrimaryKeys   []string      `yaml:"primary_keys"`
	SecondaryKeys []string      `yaml:"secondary_keys"`
	Content       LocalizedText `yaml:"content"`
	Constant      bool          `yaml:"constant"`
	Visibility    string        `yaml:"visibility"`
	Locations     []string      `yaml:"locations"`
	Regions       []string      `yaml:"regions"`
	Order         int           `yaml:"order"`
}

// TraitDef is a dual-aspect narrative descriptor on a preset character.
type TraitDef struct {
	Name     string `yaml:"name"`
	Positive string `yaml:"positive"`
	Negative string `yaml:"negative"`
}

// PresetCharacter is a ready-to-play character shipped with a pack.
type PresetCharacter struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Concept    string     `yaml:"concept"`
	Traits     []TraitDef `yaml:"traits"`
	FatePoints int        `yaml:"fate_points"`
	Tags       []string   `yaml:"tags"`
}

// Pack is a fully loaded world pack with content keyed by identifier.
type Pack struct {
	ID               string                     `yaml:"id"`
	Name             string                     `yaml:"name"`
	StartLocationID  string                     `yaml:"start_location_id"`
	Regions          map[string]Region          `yaml:"regions"`
	Locations        map[string]Location        `yaml:"locations"`
	NPCs             map[string]NPC             `yaml:"npcs"`
	LoreEntries      map[int64]LoreEntry        `yaml:"lore_entries"`
	PresetCharacters map[string]PresetCharacter `yaml:"preset_characters"`
}

// Lore returns the pack's lore entries as a slice ordered by UID.
func (p Pack) Lore() []LoreEntry {
	entries := make([]LoreEntry, 0, len(p.LoreEntries))
	for _, entry := range p.LoreEntries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })
	return entries
}

// RegionOf returns the region id for a location, or empty when unknown.
func (p Pack) RegionOf(locationID string) string {
	location, ok := p.Locations[locationID]
	if !ok {
		return ""
	}
	return location.RegionID
}

// Normalize validates a pack and fills in derived fields.
//
// Identifier maps are re-keyed from the values' own IDs so YAML authors
// cannot desynchronize keys and entries. Lore visibility defaults to basic.
func Normalize(pack Pack) (Pack, error) {
	pack.ID = strings.TrimSpace(pack.ID)
	if pack.ID == "" {
		return Pack{}, ErrEmptyPackID
	}
	if len(pack.Locations) == 0 {
		return Pack{}, ErrNoLocations
	}

	locations := make(map[string]Location, len(pack.Locations))
	for _, location := range pack.Locations {
		location.ID = strings.TrimSpace(location.ID)
		if location.ID == "" {
			return Pack{}, fmt.Errorf("location in pack %s: id is required", pack.ID)
		}
		locations[location.ID] = location
	}
	pack.Locations = locations

	if pack.StartLocationID == "" {
		// Deterministic default: the lexically first location.
		ids := make([]string, 0, len(pack.Locations))
		for id := range pack.Locations {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		pack.StartLocationID = ids[0]
	}
	if _, ok := pack.Locations[pack.StartLocationID]; !ok {
		return Pack{}, ErrUnknownStartLocation
	}

	npcs := make(map[string]NPC, len(pack.NPCs))
	for _, npc := range pack.NPCs {
		npc.ID = strings.TrimSpace(npc.ID)
		if npc.ID == "" {
			return Pack{}, fmt.Errorf("npc in pack %s: id is required", pack.ID)
		}
		npcs[npc.ID] = npc
	}
	pack.NPCs = npcs

	regions := make(map[string]Region, len(pack.Regions))
	for _, region := range pack.Regions {
		region.ID = strings.TrimSpace(region.ID)
		if region.ID == "" {
			return Pack{}, fmt.Errorf("region in pack %s: id is required", pack.ID)
		}
		regions[region.ID] = region
	}
	pack.Regions = regions

	lore := make(map[int64]LoreEntry, len(pack.LoreEntries))
	for _, entry := range pack.LoreEntries {
		if entry.Visibility == "" {
			entry.Visibility = VisibilityBasic
		}
		lore[entry.UID] = entry
	}
	pack.LoreEntries = lore

	presets := make(map[string]PresetCharacter, len(pack.PresetCharacters))
	for _, preset := range pack.PresetCharacters {
		preset.ID = strings.TrimSpace(preset.ID)
		if preset.ID == "" {
			return Pack{}, fmt.Errorf("preset character in pack %s: id is required", pack.ID)
		}
		presets[preset.ID] = preset
	}
	pack.PresetCharacters = presets

	return pack, nil
}

// yamlPack is the authoring layout: lists instead of keyed maps.
type yamlPack struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	StartLocationID  string            `yaml:"start_location_id"`
	Regions          []Region          `yaml:"regions"`
	Locations        []Location        `yaml:"locations"`
	NPCs             []NPC             `yaml:"npcs"`
	LoreEntries      []LoreEntry       `yaml:"lore_entries"`
	PresetCharacters []PresetCharacter `yaml:"preset_characters"`
}

// LoadFile reads and validates a YAML world pack from disk.
func LoadFile(path string) (Pack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read pack file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML world pack.
func Parse(raw []byte) (Pack, error) {
	var decoded yamlPack
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return Pack{}, fmt.Errorf("decode pack yaml: %w", err)
	}

	pack := Pack{
		ID:               decoded.ID,
		Name:             decoded.Name,
		StartLocationID:  decoded.StartLocationID,
		Regions:          make(map[string]Region),
		Locations:        make(map[string]Location),
		NPCs:             make(map[string]NPC),
		LoreEntries:      make(map[int64]LoreEntry),
		PresetCharacters: make(map[string]PresetCharacter),
	}
	for _, region := range decoded.Regions {
		pack.Regions[region.ID] = region
	}
	for _, location := range decoded.Locations {
		pack.Locations[location.ID] = location
	}
	for _, npc := range decoded.NPCs {
		pack.NPCs[npc.ID] = npc
	}
	for _, entry := range decoded.LoreEntries {
		pack.LoreEntries[entry.UID] = entry
	}
	for _, preset := range decoded.PresetCharacters {
		pack.PresetCharacters[preset.ID] = preset
	}

	return Normalize(pack)
}
