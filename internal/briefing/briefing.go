// Package briefing builds the bounded context payloads handed to oracles.
//
// Each payload is a purpose-specific projection of session state: the
// decision and narrative oracles get a textual summary, NPC sub-agents get a
// structured slice with the target NPC's definition. Payloads are always
// copies; no oracle ever holds a reference into live state.
package briefing

import (
	"fmt"
	"strings"

	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/oracle"
	"github.com/hollowmoor/tableside/internal/session/domain"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

// MessageWindow is how many trailing log entries a payload may include.
const MessageWindow = 10

// Slicer projects session state into oracle payloads for one world pack.
type Slicer struct {
	pack        worldpack.Pack
	verboseNPCs bool
}

// NewSlicer creates a Slicer over a loaded pack. verboseNPCs sets the
// narrative-verbosity flag on NPC slices.
func NewSlicer(pack worldpack.Pack, verboseNPCs bool) *Slicer {
	return &Slicer{pack: pack, verboseNPCs: verboseNPCs}
}

// TurnContext renders the payload shared by the decision and narrative
// oracles: scene and character summary, recent messages, accumulated
// sub-agent findings, and the dice result when one exists.
func (s *Slicer) TurnContext(state *domain.State, results []domain.AgentResult, diceResult *dice.Result) string {
	var b strings.Builder
	locale := state.Language

	location, hasLocation := s.pack.Locations[state.LocationID]
	if hasLocation {
		fmt.Fprintf(&b, "SCENE: %s", location.Name.Resolve(locale))
		if region, ok := s.pack.Regions[location.RegionID]; ok {
			fmt.Fprintf(&b, " (%s)", region.Name.Resolve(locale))
		}
		if description := location.Description.Resolve(locale); description != "" {
			fmt.Fprintf(&b, " — %s", description)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "CHARACTER: %s — %s\n", state.Character.Name, state.Character.Concept)
	for _, trait := range state.Character.Traits {
		fmt.Fprintf(&b, "  trait %s (+%s / -%s)\n", trait.Name, trait.Positive, trait.Negative)
	}
	if len(state.Character.Tags) > 0 {
		fmt.Fprintf(&b, "  tags: %s\n", strings.Join(state.Character.Tags, ", "))
	}
	fmt.Fprintf(&b, "  fate points: %d\n", state.Character.FatePoints)

	if len(state.Items) > 0 {
		fmt.Fprintf(&b, "ITEMS: %s\n", strings.Join(state.Items, ", "))
	}
	if len(state.ActiveNPCs) > 0 {
		names := make([]string, 0, len(state.ActiveNPCs))
		for _, npcID := range state.ActiveNPCs {
			if npc, ok := s.pack.NPCs[npcID]; ok {
				names = append(names, npc.Name)
			} else {
				names = append(names, npcID)
			}
		}
		fmt.Fprintf(&b, "PRESENT NPCS: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "TURN %d, phase %s\n", state.Turn, state.Phase)

	window := state.RecentMessages(MessageWindow)
	if len(window) > 0 {
		b.WriteString("RECENT MESSAGES:\n")
		for _, message := range window {
			fmt.Fprintf(&b, "  [%s] %s\n", message.Role, message.Text)
		}
	}

	if len(results) > 0 {
		b.WriteString("FINDINGS THIS TURN:\n")
		for _, result := range results {
			status := "ok"
			if !result.Success {
				status = "failed"
			}
			fmt.Fprintf(&b, "  [%s %s] %s\n", result.AgentID, status, result.Result)
		}
	}

	if diceResult != nil {
		fmt.Fprintf(&b, "DICE RESULT: total %d (%s), kept %v, dropped %v, modifier %d\n",
			diceResult.Total, diceResult.Outcome, diceResult.Kept, diceResult.Dropped, diceResult.Modifier)
	}

	return b.String()
}

// NPCSlice builds the context handed to the NPC oracle for a target NPC.
// It reports false when the NPC is not defined in the pack.
func (s *Slicer) NPCSlice(state *domain.State, playerInput, npcID, instruction string, diceResult *dice.Result) (oracle.NPCContext, bool) {
	npc, ok := s.pack.NPCs[npcID]
	if !ok {
		return oracle.NPCContext{}, false
	}

	locale := state.Language
	slice := oracle.NPCContext{
		NPCID:       npc.ID,
		Name:        npc.Name,
		Persona:     npc.Persona.Resolve(locale),
		Speech:      npc.Speech.Resolve(locale),
		Disposition: npc.Disposition,
		Instruction: instruction,
		PlayerInput: playerInput,
		Messages:    state.RecentMessages(MessageWindow),
		Language:    locale,
		Verbose:     s.verboseNPCs,
	}
	if diceResult != nil {
		slice.Directive = Directive(diceResult.Outcome)
	}
	return slice, true
}

// SubAgentContext renders the generic slice for directly registered
// sub-agents: the recent conversation and the player's current input.
func (s *Slicer) SubAgentContext(state *domain.State, playerInput string) string {
	var b strings.Builder

	if location, ok := s.pack.Locations[state.LocationID]; ok {
		fmt.Fprintf(&b, "SCENE: %s\n", location.Name.Resolve(state.Language))
	}

	window := state.RecentMessages(MessageWindow)
	if len(window) > 0 {
		b.WriteString("RECENT MESSAGES:\n")
		for _, message := range window {
			fmt.Fprintf(&b, "  [%s] %s\n", message.Role, message.Text)
		}
	}

	fmt.Fprintf(&b, "PLAYER INPUT: %s\n", playerInput)
	return b.String()
}

// Directive maps a dice outcome category to the roleplay guidance given to
// NPC oracles. The taxonomy is the resolver's four categories; a plain
// failure carries the harshest guidance.
func Directive(outcome dice.Outcome) string {
	switch outcome {
	case dice.OutcomeCritical:
		return "The player's attempt succeeds beyond expectation. React with genuine surprise or admiration, and concede more than asked."
	case dice.OutcomeSuccess:
		return "The player's attempt succeeds. React accordingly and let the fiction move forward."
	case dice.OutcomePartial:
		return "The player's attempt partly succeeds, at a cost or with a complication. Grant part of what was sought and introduce friction."
	case dice.OutcomeFailure:
		return "The player's attempt fails. React firmly; the situation turns against the player in a way that fits your disposition."
	default:
		return ""
	}
}
