// Package turn drives one player turn through the decision loop.
//
// A turn starts with player input, consults the decision oracle up to
// MaxIterations times, and either finishes with narrative text or suspends
// on a dice check. A suspended turn resumes from its stored continuation
// with the roll's result injected.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hollowmoor/tableside/internal/agents"
	"github.com/hollowmoor/tableside/internal/briefing"
	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/lore"
	"github.com/hollowmoor/tableside/internal/oracle"
	"github.com/hollowmoor/tableside/internal/platform/i18n"
	"github.com/hollowmoor/tableside/internal/session/domain"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

// MaxIterations bounds the decision loop. Reaching it forces a response
// instead of looping further, so every turn terminates with output.
const MaxIterations = 5

// LoreAgentID labels lore-search results in the accumulated record.
const LoreAgentID = "lore"

var (
	// ErrEmptyInput indicates StartTurn was called without player input.
	ErrEmptyInput = errors.New("player input is required")
	// ErrNoPendingCheck indicates ResumeTurn was called without a
	// suspended turn.
	ErrNoPendingCheck = errors.New("no pending dice check to resume")
)

// OracleError reports a failed oracle call. The turn aborts; mutations
// already applied (such as the user-message append) are not rolled back.
type OracleError struct {
	Stage string
	Err   error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("%s oracle: %v", e.Stage, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a StartTurn or ResumeTurn call.
type Result struct {
	Narrative    string
	RequiresDice bool
	CheckRequest *dice.CheckRequest
	Turn         int
	Phase        domain.Phase
}

// Deps groups the orchestrator's collaborators.
type Deps struct {
	Decision  oracle.DecisionOracle
	Narrative oracle.NarrativeOracle
	Router    *agents.Router
	Ranker    *lore.Ranker
	Slicer    *briefing.Slicer
	Pack      worldpack.Pack
	Locales   *i18n.Bundle
}

// Orchestrator owns the decision loop for sessions of one world pack.
// It is the only component that mutates session state.
type Orchestrator struct {
	deps   Deps
	corpus []worldpack.LoreEntry
	tracer trace.Tracer
}

// New creates an Orchestrator. Locales defaults to the embedded bundle.
func New(deps Deps) *Orchestrator {
	if deps.Locales == nil {
		deps.Locales = i18n.Default()
	}
	return &Orchestrator{
		deps:   deps,
		corpus: deps.Pack.Lore(),
		tracer: otel.Tracer("tableside/turn"),
	}
}

// StartTurn runs a new turn for the given player input.
//
// Empty input is rejected before any state mutation. Otherwise the input is
// appended to the log at the current turn number and the decision loop runs
// from iteration zero.
func (o *Orchestrator) StartTurn(ctx context.Context, state *domain.State, playerInput, lang string) (Result, error) {
	playerInput = strings.TrimSpace(playerInput)
	if playerInput == "" {
		return Result{}, ErrEmptyInput
	}
	if lang == "" {
		lang = state.Language
	}

	ctx, span := o.tracer.Start(ctx, "turn.start", trace.WithAttributes(
		attribute.String("session.id", state.ID),
		attribute.Int("session.turn", state.Turn),
	))
	defer span.End()

	state.Append(domain.RoleUser, state.Turn, playerInput, nil)
	return o.runLoop(ctx, state, playerInput, lang, 0, nil, nil)
}

// ResumeTurn continues a suspended turn with the supplied dice result.
//
// Without a pending continuation the call fails with no state mutation.
// Otherwise the continuation is consumed (cleared before the loop resumes)
// and the loop picks up at the stored iteration count.
func (o *Orchestrator) ResumeTurn(ctx context.Context, state *domain.State, diceResult dice.Result, lang string) (Result, error) {
	if state.Pending == nil {
		return Result{}, ErrNoPendingCheck
	}
	if lang == "" {
		lang = state.Language
	}

	ctx, span := o.tracer.Start(ctx, "turn.resume", trace.WithAttributes(
		attribute.String("session.id", state.ID),
		attribute.Int("session.turn", state.Turn),
		attribute.String("dice.outcome", diceResult.Outcome.String()),
	))
	defer span.End()

	continuation, _ := state.TakeContinuation()
	return o.runLoop(ctx, state, continuation.PlayerInput, lang, continuation.Iteration, continuation.Results, &diceResult)
}

// runLoop is the bounded decision loop. It returns only through response
// synthesis or a dice-check suspension; oracle failures abort the turn.
func (o *Orchestrator) runLoop(ctx context.Context, state *domain.State, playerInput, lang string, iteration int, results []domain.AgentResult, diceResult *dice.Result) (Result, error) {
	for {
		if iteration >= MaxIterations {
			note := o.deps.Locales.T(lang, "turn.fallback_note")
			return o.synthesize(ctx, state, lang, results, diceResult, note)
		}

		contextText := o.deps.Slicer.TurnContext(state, results, diceResult)
		action, err := o.deps.Decision.Decide(ctx, contextText, lang)
		if err != nil {
			return Result{}, &OracleError{Stage: "decision", Err: err}
		}

		switch act := action.(type) {
		case oracle.Respond:
			return o.synthesize(ctx, state, lang, results, diceResult, act.Text)

		case oracle.SearchLore:
			results = append(results, o.searchLore(ctx, state, act, lang))
			iteration++

		case oracle.CallAgent:
			result, invoked, err := o.callAgent(ctx, state, act, playerInput, lang, diceResult)
			if err != nil {
				return Result{}, err
			}
			if invoked {
				results = append(results, result)
			}
			// A routing miss skips the iteration without recording anything.
			iteration++

		case oracle.RequestCheck:
			return o.suspend(state, act, playerInput, lang, iteration, results), nil

		default:
			return Result{}, &OracleError{Stage: "decision", Err: fmt.Errorf("unknown action %T", action)}
		}
	}
}

func (o *Orchestrator) searchLore(ctx context.Context, state *domain.State, act oracle.SearchLore, lang string) domain.AgentResult {
	regionID := o.deps.Pack.RegionOf(state.LocationID)
	matches := o.deps.Ranker.Search(ctx, act.Query, o.corpus, regionID, state.LocationID)

	var b strings.Builder
	for _, match := range matches {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(match.Entry.Content.Resolve(lang))
	}
	text := b.String()
	if text == "" {
		text = "no relevant lore found"
	}

	return domain.AgentResult{
		AgentID:   LoreAgentID,
		Result:    text,
		Success:   len(matches) > 0,
		Reasoning: act.Reasoning,
		Meta:      map[string]string{"query": act.Query},
	}
}

// callAgent resolves and invokes a sub-agent. invoked is false on a routing
// miss, which is non-fatal; oracle failures abort the turn.
func (o *Orchestrator) callAgent(ctx context.Context, state *domain.State, act oracle.CallAgent, playerInput, lang string, diceResult *dice.Result) (domain.AgentResult, bool, error) {
	resolution, ok := o.deps.Router.Resolve(act.AgentID)
	if !ok {
		return domain.AgentResult{}, false, nil
	}

	if resolution.NPCID != "" {
		slice, ok := o.deps.Slicer.NPCSlice(state, playerInput, resolution.NPCID, act.Instruction, diceResult)
		if !ok {
			// NPC convention matched but the pack has no such NPC.
			return domain.AgentResult{}, false, nil
		}
		reply, err := resolution.NPC.Respond(ctx, slice)
		if err != nil {
			return domain.AgentResult{}, false, &OracleError{Stage: "npc", Err: err}
		}
		return domain.AgentResult{
			AgentID:   act.AgentID,
			Result:    reply.Text,
			Success:   true,
			Reasoning: act.Reasoning,
			Meta: map[string]string{
				"emotion":        reply.Emotion,
				"action":         reply.Action,
				"relation_delta": strconv.Itoa(reply.RelationDelta),
			},
		}, true, nil
	}

	output, err := resolution.Agent.Invoke(ctx, oracle.SubAgentInput{
		AgentID:     act.AgentID,
		Instruction: act.Instruction,
		Context:     o.deps.Slicer.SubAgentContext(state, playerInput),
		Language:    lang,
	})
	if err != nil {
		return domain.AgentResult{}, false, &OracleError{Stage: "agent", Err: err}
	}
	return domain.AgentResult{
		AgentID:   act.AgentID,
		Result:    output.Text,
		Success:   output.Success,
		Reasoning: act.Reasoning,
		Meta:      output.Meta,
	}, true, nil
}

// suspend stores the continuation and builds the dice-check payload. This is
// the only exit from the loop that skips the narrative step.
func (o *Orchestrator) suspend(state *domain.State, act oracle.RequestCheck, playerInput, lang string, iteration int, results []domain.AgentResult) Result {
	factors := dice.DeriveCheckFactors(act.Intention, act.Reason,
		state.Character.TraitNames(), state.Character.Tags)
	formula := dice.Formula(factors.BonusDice, factors.PenaltyDice)

	state.Suspend(domain.Continuation{
		PlayerInput: playerInput,
		Iteration:   iteration + 1,
		Results:     results,
	})

	return Result{
		RequiresDice: true,
		CheckRequest: &dice.CheckRequest{
			Intention:     act.Intention,
			Reason:        act.Reason,
			MatchedTraits: factors.MatchedTraits,
			MatchedTags:   factors.MatchedTags,
			Formula:       formula,
			Instructions:  o.deps.Locales.T(lang, "dice.instructions", formula),
		},
		Turn:  state.Turn,
		Phase: state.Phase,
	}
}

// synthesize runs the narrative step and finalizes the turn: the assistant
// message lands at the next turn number, the counter advances, and the
// session returns to the waiting-input phase.
func (o *Orchestrator) synthesize(ctx context.Context, state *domain.State, lang string, results []domain.AgentResult, diceResult *dice.Result, note string) (Result, error) {
	contextText := o.deps.Slicer.TurnContext(state, results, diceResult)
	if note != "" {
		contextText += "DECISION NOTE: " + note + "\n"
	}

	narrative, err := o.deps.Narrative.Narrate(ctx, contextText, lang)
	if err != nil {
		return Result{}, &OracleError{Stage: "narrative", Err: err}
	}

	state.Append(domain.RoleAssistant, state.Turn+1, narrative, nil)
	state.Turn++
	state.Phase = domain.PhaseWaitingInput
	state.Pending = nil

	return Result{
		Narrative: narrative,
		Turn:      state.Turn,
		Phase:     state.Phase,
	}, nil
}
