// Package importer parses the pack-importer command's flags and loads YAML
// world packs into the engine's sqlite stores.
package importer

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/hollowmoor/tableside/internal/oracle/openai"
	"github.com/hollowmoor/tableside/internal/platform/config"
	"github.com/hollowmoor/tableside/internal/semantic"
	"github.com/hollowmoor/tableside/internal/worldpack"
	packsqlite "github.com/hollowmoor/tableside/internal/worldpack/sqlite"
)

// Config holds pack-importer command configuration.
type Config struct {
	PackPath string `env:"TABLESIDE_PACK_PATH"`
	PackDB   string `env:"TABLESIDE_PACK_DB" envDefault:"packs.db"`
	VectorDB string `env:"TABLESIDE_VECTOR_DB"`

	OpenAI openai.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.PackPath, "pack", cfg.PackPath, "Path to the YAML world pack to import")
	fs.StringVar(&cfg.PackDB, "pack-db", cfg.PackDB, "Path to the pack database")
	fs.StringVar(&cfg.VectorDB, "vector-db", cfg.VectorDB, "Path to the lore vector database (skips indexing when empty)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.PackPath == "" && fs.NArg() > 0 {
		cfg.PackPath = fs.Arg(0)
	}
	return cfg, nil
}

// Run imports the pack into the pack database and, when a vector database
// and API key are configured, indexes its lore for semantic search.
func Run(ctx context.Context, cfg Config, output io.Writer) error {
	if cfg.PackPath == "" {
		return errors.New("a pack file is required")
	}

	pack, err := worldpack.LoadFile(cfg.PackPath)
	if err != nil {
		return err
	}

	store, err := packsqlite.Open(cfg.PackDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close pack store: %v", err)
		}
	}()

	if err := store.Import(ctx, pack); err != nil {
		return fmt.Errorf("import pack %s: %w", pack.ID, err)
	}
	fmt.Fprintf(output, "imported pack %s: %d locations, %d npcs, %d lore entries, %d presets\n",
		pack.ID, len(pack.Locations), len(pack.NPCs), len(pack.LoreEntries), len(pack.PresetCharacters))

	if cfg.VectorDB == "" {
		return nil
	}
	if cfg.OpenAI.APIKey == "" {
		fmt.Fprintln(output, "skipping lore indexing: no api key configured")
		return nil
	}

	indexed, err := indexLore(ctx, cfg, pack)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "indexed %d lore documents\n", indexed)
	return nil
}

// indexLore embeds every locale variant of each lore entry.
func indexLore(ctx context.Context, cfg Config, pack worldpack.Pack) (int, error) {
	client, err := openai.New(cfg.OpenAI)
	if err != nil {
		return 0, err
	}

	vectors, err := semantic.Open(cfg.VectorDB, client)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := vectors.Close(); err != nil {
			log.Printf("close vector store: %v", err)
		}
	}()

	var documents []semantic.Document
	for _, entry := range pack.Lore() {
		for lang, text := range entry.Content {
			if text == "" {
				continue
			}
			documents = append(documents, semantic.Document{
				UID:  entry.UID,
				Lang: lang,
				Text: text,
			})
		}
	}
	if len(documents) == 0 {
		return 0, nil
	}

	if err := vectors.Index(ctx, "lore:"+pack.ID, documents); err != nil {
		return 0, fmt.Errorf("index lore: %w", err)
	}
	return len(documents), nil
}
