// Package agents routes a decision's target identifier to the capability
// entitled to handle it.
package agents

import (
	"strings"

	"github.com/hollowmoor/tableside/internal/oracle"
)

// NPCPrefix is the naming convention for NPC-class agent identifiers. All
// such identifiers route to the single generic NPC capability; the specific
// NPC's data travels in the context slice, not in routing.
const NPCPrefix = "npc_"

// Resolution is a resolved capability handle.
type Resolution struct {
	// NPCID is the target NPC identifier when the NPC convention matched.
	NPCID string
	NPC   oracle.NPCOracle
	Agent oracle.SubAgent
}

// Router maps agent identifiers to capabilities.
type Router struct {
	npc   oracle.NPCOracle
	named map[string]oracle.SubAgent
}

// NewRouter creates a Router. npc may be nil when no NPC capability is
// wired, in which case NPC-class identifiers do not resolve.
func NewRouter(npc oracle.NPCOracle) *Router {
	return &Router{
		npc:   npc,
		named: make(map[string]oracle.SubAgent),
	}
}

// Register adds a directly named capability.
func (r *Router) Register(agentID string, agent oracle.SubAgent) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" || agent == nil {
		return
	}
	r.named[agentID] = agent
}

// Resolve maps an agent identifier to its capability handle. A miss is
// non-fatal for callers: the decision loop skips the iteration.
func (r *Router) Resolve(agentID string) (Resolution, bool) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return Resolution{}, false
	}

	if strings.HasPrefix(agentID, NPCPrefix) {
		if r.npc == nil {
			return Resolution{}, false
		}
		return Resolution{NPCID: agentID, NPC: r.npc}, true
	}

	if agent, ok := r.named[agentID]; ok {
		return Resolution{Agent: agent}, true
	}
	return Resolution{}, false
}
