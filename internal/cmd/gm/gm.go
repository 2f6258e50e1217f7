// Package gm parses the gm command's flags and runs an interactive session
// against a world pack from the terminal.
package gm

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/hollowmoor/tableside/internal/agents"
	"github.com/hollowmoor/tableside/internal/briefing"
	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/lore"
	"github.com/hollowmoor/tableside/internal/oracle"
	"github.com/hollowmoor/tableside/internal/oracle/openai"
	"github.com/hollowmoor/tableside/internal/platform/config"
	"github.com/hollowmoor/tableside/internal/platform/i18n"
	"github.com/hollowmoor/tableside/internal/platform/otel"
	"github.com/hollowmoor/tableside/internal/semantic"
	"github.com/hollowmoor/tableside/internal/session/service"
	"github.com/hollowmoor/tableside/internal/turn"
	"github.com/hollowmoor/tableside/internal/worldpack"
	packsqlite "github.com/hollowmoor/tableside/internal/worldpack/sqlite"
)

// Config holds gm command configuration.
type Config struct {
	PackPath string `env:"TABLESIDE_PACK_PATH"`
	PackDB   string `env:"TABLESIDE_PACK_DB"`
	PackID   string `env:"TABLESIDE_PACK_ID"`
	VectorDB string `env:"TABLESIDE_VECTOR_DB"`
	Preset   string `env:"TABLESIDE_PRESET"`
	Language string `env:"TABLESIDE_LANG" envDefault:"en"`
	Verbose  bool   `env:"TABLESIDE_VERBOSE_NPCS"`
	Offline  bool   `env:"TABLESIDE_OFFLINE"`

	OpenAI openai.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.PackPath, "pack", cfg.PackPath, "Path to a YAML world pack")
	fs.StringVar(&cfg.PackDB, "pack-db", cfg.PackDB, "Path to an imported pack database (overrides -pack)")
	fs.StringVar(&cfg.PackID, "pack-id", cfg.PackID, "Pack id to load from the pack database")
	fs.StringVar(&cfg.VectorDB, "vector-db", cfg.VectorDB, "Path to the lore vector database")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Preset character id (defaults to the first preset)")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Session language")
	fs.BoolVar(&cfg.Verbose, "verbose-npcs", cfg.Verbose, "Let NPCs answer at length")
	fs.BoolVar(&cfg.Offline, "offline", cfg.Offline, "Run without model calls, using canned oracles")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the pack, wires the engine, and drives a read-eval loop over
// input until EOF or /quit.
func Run(ctx context.Context, cfg Config, input io.Reader, output io.Writer) error {
	shutdown, err := otel.Setup(ctx, "tableside-gm")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	pack, err := loadPack(ctx, cfg)
	if err != nil {
		return err
	}

	manager, cleanup, err := buildManager(cfg, pack)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := manager.CreateSession(ctx, service.CreateSessionInput{
		PresetID: presetID(cfg, pack),
		Language: cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Fprintf(output, "%s — playing %s at %s\n", pack.Name, state.Character.Name,
		pack.Locations[state.LocationID].Name.Resolve(cfg.Language))
	fmt.Fprintln(output, "Type your action, /state, /roll [modifier] when asked, or /quit.")

	return repl(ctx, manager, state.ID, cfg.Language, input, output)
}

func loadPack(ctx context.Context, cfg Config) (worldpack.Pack, error) {
	if cfg.PackDB != "" {
		store, err := packsqlite.Open(cfg.PackDB)
		if err != nil {
			return worldpack.Pack{}, err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close pack store: %v", err)
			}
		}()

		packID := cfg.PackID
		if packID == "" {
			ids, err := store.ListPackIDs(ctx)
			if err != nil {
				return worldpack.Pack{}, err
			}
			if len(ids) == 0 {
				return worldpack.Pack{}, errors.New("pack database is empty")
			}
			packID = ids[0]
		}
		return store.Load(ctx, packID)
	}

	if cfg.PackPath == "" {
		return worldpack.Pack{}, errors.New("a -pack file or -pack-db database is required")
	}
	return worldpack.LoadFile(cfg.PackPath)
}

func buildManager(cfg Config, pack worldpack.Pack) (*service.Manager, func(), error) {
	cleanup := func() {}

	var decision oracle.DecisionOracle
	var narrative oracle.NarrativeOracle
	var npc oracle.NPCOracle
	var lookup lore.SemanticLookup

	if cfg.Offline || cfg.OpenAI.APIKey == "" {
		canned := cannedOracles{}
		decision, narrative, npc = canned, canned, canned
	} else {
		client, err := openai.New(cfg.OpenAI)
		if err != nil {
			return nil, nil, err
		}
		decision, narrative, npc = client, client, client

		if cfg.VectorDB != "" {
			vectors, err := semantic.Open(cfg.VectorDB, client)
			if err != nil {
				return nil, nil, err
			}
			cleanup = func() {
				if err := vectors.Close(); err != nil {
					log.Printf("close vector store: %v", err)
				}
			}
			lookup = vectors
		}
	}

	orchestrator := turn.New(turn.Deps{
		Decision:  decision,
		Narrative: narrative,
		Router:    agents.NewRouter(npc),
		Ranker:    lore.NewRanker(lookup, loreCollection(pack.ID), lore.MaxResults),
		Slicer:    briefing.NewSlicer(pack, cfg.Verbose),
		Pack:      pack,
	})
	return service.NewManager(orchestrator, pack), cleanup, nil
}

// loreCollection is the vector collection name for a pack's lore.
func loreCollection(packID string) string {
	return "lore:" + packID
}

func presetID(cfg Config, pack worldpack.Pack) string {
	if cfg.Preset != "" {
		return cfg.Preset
	}
	ids := make([]string, 0, len(pack.PresetCharacters))
	for id := range pack.PresetCharacters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func repl(ctx context.Context, manager *service.Manager, sessionID, lang string, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	var pending *dice.CheckRequest

	for {
		if pending != nil {
			fmt.Fprint(output, "roll> ")
		} else {
			fmt.Fprint(output, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil

		case line == "/state":
			printState(manager, sessionID, output)

		case strings.HasPrefix(line, "/roll"):
			if pending == nil {
				fmt.Fprintln(output, "no check is pending")
				continue
			}
			result, err := resolvePending(ctx, manager, sessionID, lang, *pending, line)
			if err != nil {
				fmt.Fprintf(output, "error: %v\n", err)
				continue
			}
			pending = nil
			fmt.Fprintln(output, result)

		default:
			if pending != nil {
				fmt.Fprintln(output, "a check is pending; use /roll [modifier]")
				continue
			}
			result, err := manager.StartTurn(ctx, sessionID, line, lang)
			if err != nil {
				fmt.Fprintf(output, "error: %v\n", err)
				continue
			}
			if result.RequiresDice {
				pending = result.CheckRequest
				printCheck(output, lang, result.CheckRequest)
				continue
			}
			fmt.Fprintln(output, result.Narrative)
		}
	}
}

func resolvePending(ctx context.Context, manager *service.Manager, sessionID, lang string, check dice.CheckRequest, line string) (string, error) {
	modifier := 0
	fields := strings.Fields(line)
	if len(fields) > 1 {
		parsed, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", fmt.Errorf("modifier %q is not a number", fields[1])
		}
		modifier = parsed
	}

	request := dice.Request{Modifier: modifier}
	if len(check.MatchedTraits) > 0 {
		request.BonusDice = 1
	}
	if len(check.MatchedTags) > 0 {
		request.PenaltyDice = 1
	}

	rolled, result, err := manager.ResolveCheck(ctx, sessionID, request, lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rolled %v, kept %v: total %d (%s)\n\n%s",
		rolled.Rolls, rolled.Kept, rolled.Total, rolled.Outcome, result.Narrative), nil
}

func printCheck(output io.Writer, lang string, check *dice.CheckRequest) {
	fmt.Fprintln(output, i18n.Default().T(lang, "dice.check_requested", check.Intention))
	fmt.Fprintf(output, "  formula: %s\n", check.Formula)
	if len(check.MatchedTraits) > 0 {
		fmt.Fprintf(output, "  trait bonus: %s\n", strings.Join(check.MatchedTraits, ", "))
	}
	if len(check.MatchedTags) > 0 {
		fmt.Fprintf(output, "  tag penalty: %s\n", strings.Join(check.MatchedTags, ", "))
	}
	fmt.Fprintf(output, "  %s\n", check.Instructions)
}

func printState(manager *service.Manager, sessionID string, output io.Writer) {
	state, err := manager.GetState(sessionID)
	if err != nil {
		fmt.Fprintf(output, "error: %v\n", err)
		return
	}
	fmt.Fprintf(output, "turn %d, phase %s, location %s, %d messages\n",
		state.Turn, state.Phase, state.LocationID, len(state.Messages))
}

// cannedOracles keeps the loop playable with no model endpoint configured.
type cannedOracles struct{}

func (cannedOracles) Decide(ctx context.Context, contextText, lang string) (oracle.Action, error) {
	return oracle.Respond{Reasoning: "offline mode answers directly"}, nil
}

func (cannedOracles) Narrate(ctx context.Context, contextText, lang string) (string, error) {
	return "The scene holds its breath, waiting for a storyteller. (offline mode)", nil
}

func (cannedOracles) Respond(ctx context.Context, npcContext oracle.NPCContext) (oracle.NPCReply, error) {
	return oracle.NPCReply{Text: npcContext.Name + " nods silently. (offline mode)"}, nil
}
