// Package service exposes session lifecycle operations over the turn
// orchestrator: opening sessions from a world pack, driving turns, and
// reading session state snapshots.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/session/domain"
	"github.com/hollowmoor/tableside/internal/turn"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

var (
	// ErrSessionNotFound indicates an unknown session identifier.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownPreset indicates a preset character missing from the pack.
	ErrUnknownPreset = errors.New("preset character not found in pack")
	// ErrCharacterRequired indicates a create call with neither a preset nor
	// a custom character.
	ErrCharacterRequired = errors.New("a preset id or a character is required")
)

// Manager owns the in-memory session registry for one world pack. Turns on
// the same session are serialized; different sessions run concurrently.
type Manager struct {
	orchestrator *turn.Orchestrator
	pack         worldpack.Pack

	clock       func() time.Time
	idGenerator func() (string, error)

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	state *domain.State
}

// NewManager creates a Manager over a loaded pack and its orchestrator.
func NewManager(orchestrator *turn.Orchestrator, pack worldpack.Pack) *Manager {
	return &Manager{
		orchestrator: orchestrator,
		pack:         pack,
		clock:        time.Now,
		sessions:     make(map[string]*session),
	}
}

// WithClock overrides the time source. Intended for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// WithIDGenerator overrides session id generation. Intended for tests.
func (m *Manager) WithIDGenerator(idGenerator func() (string, error)) *Manager {
	m.idGenerator = idGenerator
	return m
}

// CreateSessionInput describes a new session. Exactly one of PresetID or
// Character selects the player character.
type CreateSessionInput struct {
	PresetID  string
	Character *domain.Character
	Language  string
}

// CreateSession opens a session at the pack's start location and returns a
// snapshot of its initial state.
func (m *Manager) CreateSession(ctx context.Context, input CreateSessionInput) (domain.State, error) {
	character, err := m.resolveCharacter(input)
	if err != nil {
		return domain.State{}, err
	}

	locationID := m.pack.StartLocationID
	var activeNPCs []string
	if location, ok := m.pack.Locations[locationID]; ok {
		activeNPCs = append(activeNPCs, location.NPCIDs...)
	}

	state, err := domain.CreateState(domain.CreateStateInput{
		PackID:     m.pack.ID,
		Character:  character,
		LocationID: locationID,
		ActiveNPCs: activeNPCs,
		Language:   input.Language,
	}, m.clock, m.idGenerator)
	if err != nil {
		return domain.State{}, err
	}

	m.mu.Lock()
	m.sessions[state.ID] = &session{state: state}
	m.mu.Unlock()

	return snapshot(state), nil
}

func (m *Manager) resolveCharacter(input CreateSessionInput) (domain.Character, error) {
	if input.Character != nil {
		return *input.Character, nil
	}
	if input.PresetID == "" {
		return domain.Character{}, ErrCharacterRequired
	}

	preset, ok := m.pack.PresetCharacters[input.PresetID]
	if !ok {
		return domain.Character{}, ErrUnknownPreset
	}

	traits := make([]domain.Trait, 0, len(preset.Traits))
	for _, trait := range preset.Traits {
		traits = append(traits, domain.Trait{
			Name:     trait.Name,
			Positive: trait.Positive,
			Negative: trait.Negative,
		})
	}
	return domain.Character{
		Name:       preset.Name,
		Concept:    preset.Concept,
		Traits:     traits,
		FatePoints: preset.FatePoints,
		Tags:       append([]string(nil), preset.Tags...),
	}, nil
}

// StartTurn runs a new turn on the session.
func (m *Manager) StartTurn(ctx context.Context, sessionID, playerInput, lang string) (turn.Result, error) {
	entry, err := m.lookup(sessionID)
	if err != nil {
		return turn.Result{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	result, err := m.orchestrator.StartTurn(ctx, entry.state, playerInput, lang)
	if err != nil {
		return turn.Result{}, err
	}
	entry.state.UpdatedAt = m.clock().UTC()
	return result, nil
}

// ResumeTurn continues a suspended turn with a resolved dice roll.
func (m *Manager) ResumeTurn(ctx context.Context, sessionID string, diceResult dice.Result, lang string) (turn.Result, error) {
	entry, err := m.lookup(sessionID)
	if err != nil {
		return turn.Result{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	result, err := m.orchestrator.ResumeTurn(ctx, entry.state, diceResult, lang)
	if err != nil {
		return turn.Result{}, err
	}
	entry.state.UpdatedAt = m.clock().UTC()
	return result, nil
}

// ResolveCheck rolls the requested dice and resumes the suspended turn in
// one step, for clients that delegate rolling to the engine.
func (m *Manager) ResolveCheck(ctx context.Context, sessionID string, request dice.Request, lang string) (dice.Result, turn.Result, error) {
	rolled, err := dice.Roll(request)
	if err != nil {
		return dice.Result{}, turn.Result{}, err
	}

	result, err := m.ResumeTurn(ctx, sessionID, rolled, lang)
	if err != nil {
		return dice.Result{}, turn.Result{}, err
	}
	return rolled, result, nil
}

// GetState returns a snapshot of the session's current state.
func (m *Manager) GetState(sessionID string) (domain.State, error) {
	entry, err := m.lookup(sessionID)
	if err != nil {
		return domain.State{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshot(entry.state), nil
}

func (m *Manager) lookup(sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// snapshot copies the state so callers never hold references into the live
// session.
func snapshot(state *domain.State) domain.State {
	copied := *state
	copied.ActiveNPCs = append([]string(nil), state.ActiveNPCs...)
	copied.Items = append([]string(nil), state.Items...)
	copied.Messages = append([]domain.Message(nil), state.Messages...)
	if state.Flags != nil {
		copied.Flags = make(map[string]string, len(state.Flags))
		for key, value := range state.Flags {
			copied.Flags[key] = value
		}
	}
	if state.Pending != nil {
		pending := *state.Pending
		pending.Results = append([]domain.AgentResult(nil), state.Pending.Results...)
		copied.Pending = &pending
	}
	return copied
}
