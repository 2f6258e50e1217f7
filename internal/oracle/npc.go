package oracle

import (
	"context"

	"github.com/hollowmoor/tableside/internal/session/domain"
)

// NPCContext is the bounded payload handed to the NPC oracle. It carries the
// target NPC's static definition and a copy of the recent conversation; it
// never references live session state.
type NPCContext struct {
	NPCID       string
	Name        string
	Persona     string
	Speech      string
	Disposition string
	Instruction string
	PlayerInput string
	Messages    []domain.Message
	Language    string
	Verbose     bool
	// Directive steers roleplay after a dice roll; empty when no roll
	// happened this turn.
	Directive string
}

// NPCOracle voices a non-player character from its context slice.
type NPCOracle interface {
	Respond(ctx context.Context, npcContext NPCContext) (NPCReply, error)
}
