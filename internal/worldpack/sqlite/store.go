// Package sqlite persists world packs in a sqlite database so the engine
// can serve sessions without re-parsing YAML sources.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hollowmoor/tableside/internal/platform/storage/sqlitemigrate"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrNotFound indicates the requested pack is not in the store.
var ErrNotFound = errors.New("pack not found")

// Store is a sqlite-backed world pack repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the pack database at path and applies
// pending migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open pack database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate pack database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import validates the pack and writes it to the store, replacing any
// previous version with the same id.
func (s *Store) Import(ctx context.Context, pack worldpack.Pack) error {
	pack, err := worldpack.Normalize(pack)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replacing the pack row cascades to all content tables.
	if _, err := tx.ExecContext(ctx, "DELETE FROM packs WHERE id = ?", pack.ID); err != nil {
		return fmt.Errorf("clear previous pack: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO packs (id, name, start_location_id, imported_at) VALUES (?, ?, ?, ?)",
		pack.ID, pack.Name, pack.StartLocationID, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert pack: %w", err)
	}

	for _, region := range pack.Regions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO regions (pack_id, id, name) VALUES (?, ?, ?)",
			pack.ID, region.ID, mustJSON(region.Name),
		); err != nil {
			return fmt.Errorf("insert region %s: %w", region.ID, err)
		}
	}

	for _, location := range pack.Locations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO locations (pack_id, id, region_id, name, description, npc_ids) VALUES (?, ?, ?, ?, ?, ?)",
			pack.ID, location.ID, location.RegionID,
			mustJSON(location.Name), mustJSON(location.Description), mustJSON(location.NPCIDs),
		); err != nil {
			return fmt.Errorf("insert location %s: %w", location.ID, err)
		}
	}

	for _, npc := range pack.NPCs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO npcs (pack_id, id, name, persona, speech, location_id, disposition) VALUES (?, ?, ?, ?, ?, ?, ?)",
			pack.ID, npc.ID, npc.Name, mustJSON(npc.Persona), mustJSON(npc.Speech), npc.LocationID, npc.Disposition,
		); err != nil {
			return fmt.Errorf("insert npc %s: %w", npc.ID, err)
		}
	}

	for _, entry := range pack.LoreEntries {
		constant := 0
		if entry.Constant {
			constant = 1
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lore_entries (pack_id, uid, primary_keys, secondary_keys, content, constant, visibility, locations, regions, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			pack.ID, entry.UID, mustJSON(entry.PrimaryKeys), mustJSON(entry.SecondaryKeys),
			mustJSON(entry.Content), constant, entry.Visibility,
			mustJSON(entry.Locations), mustJSON(entry.Regions), entry.Order,
		); err != nil {
			return fmt.Errorf("insert lore entry %d: %w", entry.UID, err)
		}
	}

	for _, preset := range pack.PresetCharacters {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO preset_characters (pack_id, id, name, concept, traits, fate_points, tags) VALUES (?, ?, ?, ?, ?, ?, ?)",
			pack.ID, preset.ID, preset.Name, preset.Concept,
			mustJSON(preset.Traits), preset.FatePoints, mustJSON(preset.Tags),
		); err != nil {
			return fmt.Errorf("insert preset %s: %w", preset.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Load reads a full pack by id.
func (s *Store) Load(ctx context.Context, packID string) (worldpack.Pack, error) {
	pack := worldpack.Pack{
		Regions:          make(map[string]worldpack.Region),
		Locations:        make(map[string]worldpack.Location),
		NPCs:             make(map[string]worldpack.NPC),
		LoreEntries:      make(map[int64]worldpack.LoreEntry),
		PresetCharacters: make(map[string]worldpack.PresetCharacter),
	}

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_location_id FROM packs WHERE id = ?", packID,
	).Scan(&pack.ID, &pack.Name, &pack.StartLocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return worldpack.Pack{}, ErrNotFound
	}
	if err != nil {
		return worldpack.Pack{}, fmt.Errorf("load pack %s: %w", packID, err)
	}

	if err := s.loadRegions(ctx, &pack); err != nil {
		return worldpack.Pack{}, err
	}
	if err := s.loadLocations(ctx, &pack); err != nil {
		return worldpack.Pack{}, err
	}
	if err := s.loadNPCs(ctx, &pack); err != nil {
		return worldpack.Pack{}, err
	}
	if err := s.loadLore(ctx, &pack); err != nil {
		return worldpack.Pack{}, err
	}
	if err := s.loadPresets(ctx, &pack); err != nil {
		return worldpack.Pack{}, err
	}

	return worldpack.Normalize(pack)
}

// ListPackIDs returns the ids of every stored pack, ordered.
func (s *Store) ListPackIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM packs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pack id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadRegions(ctx context.Context, pack *worldpack.Pack) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM regions WHERE pack_id = ?", pack.ID)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var region worldpack.Region
		var name []byte
		if err := rows.Scan(&region.ID, &name); err != nil {
			return fmt.Errorf("scan region: %w", err)
		}
		if err := json.Unmarshal(name, &region.Name); err != nil {
			return fmt.Errorf("decode region %s name: %w", region.ID, err)
		}
		pack.Regions[region.ID] = region
	}
	return rows.Err()
}

func (s *Store) loadLocations(ctx context.Context, pack *worldpack.Pack) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, region_id, name, description, npc_ids FROM locations WHERE pack_id = ?", pack.ID)
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var location worldpack.Location
		var name, description, npcIDs []byte
		if err := rows.Scan(&location.ID, &location.RegionID, &name, &description, &npcIDs); err != nil {
			return fmt.Errorf("scan location: %w", err)
		}
		if err := decodeAll(map[string]decodeTarget{
			"name":        {name, &location.Name},
			"description": {description, &location.Description},
			"npc_ids":     {npcIDs, &location.NPCIDs},
		}); err != nil {
			return fmt.Errorf("decode location %s: %w", location.ID, err)
		}
		pack.Locations[location.ID] = location
	}
	return rows.Err()
}

func (s *Store) loadNPCs(ctx context.Context, pack *worldpack.Pack) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, persona, speech, location_id, disposition FROM npcs WHERE pack_id = ?", pack.ID)
	if err != nil {
		return fmt.Errorf("load npcs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var npc worldpack.NPC
		var persona, speech []byte
		if err := rows.Scan(&npc.ID, &npc.Name, &persona, &speech, &npc.LocationID, &npc.Disposition); err != nil {
			return fmt.Errorf("scan npc: %w", err)
		}
		if err := decodeAll(map[string]decodeTarget{
			"persona": {persona, &npc.Persona},
			"speech":  {speech, &npc.Speech},
		}); err != nil {
			return fmt.Errorf("decode npc %s: %w", npc.ID, err)
		}
		pack.NPCs[npc.ID] = npc
	}
	return rows.Err()
}

func (s *Store) loadLore(ctx context.Context, pack *worldpack.Pack) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, primary_keys, secondary_keys, content, constant, visibility, locations, regions, sort_order FROM lore_entries WHERE pack_id = ?", pack.ID)
	if err != nil {
		return fmt.Errorf("load lore: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry worldpack.LoreEntry
		var primary, secondary, content, locations, regions []byte
		var constant int
		if err := rows.Scan(&entry.UID, &primary, &secondary, &content, &constant,
			&entry.Visibility, &locations, &regions, &entry.Order); err != nil {
			return fmt.Errorf("scan lore entry: %w", err)
		}
		entry.Constant = constant != 0
		if err := decodeAll(map[string]decodeTarget{
			"primary_keys":   {primary, &entry.PrimaryKeys},
			"secondary_keys": {secondary, &entry.SecondaryKeys},
			"content":        {content, &entry.Content},
			"locations":      {locations, &entry.Locations},
			"regions":        {regions, &entry.Regions},
		}); err != nil {
			return fmt.Errorf("decode lore entry %d: %w", entry.UID, err)
		}
		pack.LoreEntries[entry.UID] = entry
	}
	return rows.Err()
}

func (s *Store) loadPresets(ctx context.Context, pack *worldpack.Pack) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, concept, traits, fate_points, tags FROM preset_characters WHERE pack_id = ?", pack.ID)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var preset worldpack.PresetCharacter
		var traits, tags []byte
		if err := rows.Scan(&preset.ID, &preset.Name, &preset.Concept, &traits, &preset.FatePoints, &tags); err != nil {
			return fmt.Errorf("scan preset: %w", err)
		}
		if err := decodeAll(map[string]decodeTarget{
			"traits": {traits, &preset.Traits},
			"tags":   {tags, &preset.Tags},
		}); err != nil {
			return fmt.Errorf("decode preset %s: %w", preset.ID, err)
		}
		pack.PresetCharacters[preset.ID] = preset
	}
	return rows.Err()
}

type decodeTarget struct {
	raw  []byte
	into any
}

func decodeAll(targets map[string]decodeTarget) error {
	for field, target := range targets {
		if len(target.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(target.raw, target.into); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// mustJSON encodes values whose types cannot fail to marshal.
func mustJSON(value any) []byte {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return raw
}
