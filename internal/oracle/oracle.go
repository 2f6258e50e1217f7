// Package oracle declares the opaque text-generation capabilities the engine
// consumes. Implementations live elsewhere (see oracle/openai); the engine
// only depends on these contracts.
package oracle

import "context"

// Action is the closed union of decisions a DecisionOracle can produce.
// Exactly one variant is returned per decision call.
type Action interface {
	isAction()
}

// Respond ends the decision loop and hands off to the narrative step.
type Respond struct {
	Text      string
	Reasoning string
}

// SearchLore asks the engine to consult world background before deciding
// again.
type SearchLore struct {
	Query     string
	Reasoning string
}

// RequestCheck suspends the turn until the player rolls dice.
type RequestCheck struct {
	Intention string
	Reason    string
}

// CallAgent delegates to a sub-agent identified by AgentID.
type CallAgent struct {
	AgentID     string
	Instruction string
	Reasoning   string
}

func (Respond) isAction()      {}
func (SearchLore) isAction()   {}
func (RequestCheck) isAction() {}
func (CallAgent) isAction()    {}

// DecisionOracle chooses the next action for a turn. It may fail; failures
// abort the turn and are not retried.
type DecisionOracle interface {
	Decide(ctx context.Context, contextText, lang string) (Action, error)
}

// NarrativeOracle produces the final narrative text for a turn.
type NarrativeOracle interface {
	Narrate(ctx context.Context, contextText, lang string) (string, error)
}

// NPCReply is a non-player character's in-fiction response.
type NPCReply struct {
	Text          string
	Emotion       string
	Action        string
	RelationDelta int
}

// SubAgentInput is the bounded payload handed to a directly registered
// sub-agent capability.
type SubAgentInput struct {
	AgentID     string
	Instruction string
	Context     string
	Language    string
}

// SubAgentResult is a directly registered sub-agent's output.
type SubAgentResult struct {
	Text    string
	Success bool
	Meta    map[string]string
}

// SubAgent is a directly registered capability addressable by agent id.
type SubAgent interface {
	Invoke(ctx context.Context, input SubAgentInput) (SubAgentResult, error)
}
