package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hollowmoor/tableside/internal/platform/id"
)

// Phase is the externally observable state of a session's turn machine.
type Phase string

const (
	// PhaseWaitingInput means the session is ready for the next player input.
	PhaseWaitingInput Phase = "waiting_input"
	// PhaseDiceCheck means the current turn is suspended on a dice roll.
	PhaseDiceCheck Phase = "dice_check"
)

var (
	// ErrEmptyPackID indicates a session without a world pack.
	ErrEmptyPackID = errors.New("pack id is required")
	// ErrEmptyLocationID indicates a session without a starting location.
	ErrEmptyLocationID = errors.New("location id is required")
)

// Continuation is the serializable snapshot of a suspended decision loop.
// It exists if and only if the session phase is PhaseDiceCheck.
type Continuation struct {
	PlayerInput string        `json:"player_input"`
	Iteration   int           `json:"iteration_count"`
	Results     []AgentResult `json:"accumulated_results"`
}

// State is the full mutable state of one session. It is owned exclusively
// by the turn orchestrator; other components only ever see slices of it.
type State struct {
	ID         string
	PackID     string
	Character  Character
	LocationID string
	ActiveNPCs []string
	Items      []string
	Flags      map[string]string
	Turn       int
	Phase      Phase
	Messages   []Message
	Pending    *Continuation
	Language   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateStateInput describes the data needed to open a session.
type CreateStateInput struct {
	PackID     string
	Character  Character
	LocationID string
	ActiveNPCs []string
	Language   string
}

// CreateState creates a new session state with a generated ID. The session
// starts at turn 0 in the waiting-input phase.
func CreateState(input CreateStateInput, now func() time.Time, idGenerator func() (string, error)) (*State, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.PackID = strings.TrimSpace(input.PackID)
	if input.PackID == "" {
		return nil, ErrEmptyPackID
	}
	input.LocationID = strings.TrimSpace(input.LocationID)
	if input.LocationID == "" {
		return nil, ErrEmptyLocationID
	}
	character, err := NormalizeCharacter(input.Character)
	if err != nil {
		return nil, err
	}
	if input.Language == "" {
		input.Language = "en"
	}

	sessionID, err := idGenerator()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return &State{
		ID:         sessionID,
		PackID:     input.PackID,
		Character:  character,
		LocationID: input.LocationID,
		ActiveNPCs: append([]string(nil), input.ActiveNPCs...),
		Flags:      make(map[string]string),
		Turn:       0,
		Phase:      PhaseWaitingInput,
		Language:   input.Language,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}

// Append adds a message to the session log at the given turn number.
func (s *State) Append(role Role, turn int, text string, meta map[string]string) {
	s.Messages = append(s.Messages, Message{
		Role: role,
		Text: text,
		Turn: turn,
		Meta: meta,
	})
}

// Suspend stores a continuation and moves the session into the dice-check
// phase. Creating a continuation always implies PhaseDiceCheck.
func (s *State) Suspend(continuation Continuation) {
	s.Pending = &continuation
	s.Phase = PhaseDiceCheck
}

// TakeContinuation removes and returns the pending continuation. Clearing
// the continuation moves the session back to the waiting-input phase, so the
// phase and the continuation stay in lockstep even when the resumed loop
// aborts before finishing the turn.
func (s *State) TakeContinuation() (Continuation, bool) {
	if s.Pending == nil {
		return Continuation{}, false
	}
	continuation := *s.Pending
	s.Pending = nil
	s.Phase = PhaseWaitingInput
	return continuation, true
}

// RecentMessages returns a copy of the last n log entries.
func (s *State) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	start := len(s.Messages) - n
	if start < 0 {
		start = 0
	}
	window := make([]Message, len(s.Messages)-start)
	copy(window, s.Messages[start:])
	return window
}
