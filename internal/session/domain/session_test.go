package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func testCharacter() Character {
	return Character{
		Name:       "Mira",
		Concept:    "wandering cartographer",
		Traits:     []Trait{{Name: "Sharp Eye", Positive: "notices details", Negative: "fixates"}},
		FatePoints: 3,
		Tags:       []string{"tired"},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func stubID() (string, error) { return "session-1", nil }

func TestCreateState(t *testing.T) {
	state, err := CreateState(CreateStateInput{
		PackID:     "emberfall",
		Character:  testCharacter(),
		LocationID: "harbor",
		ActiveNPCs: []string{"npc_innkeeper"},
		Language:   "ru",
	}, fixedClock, stubID)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	if state.ID != "session-1" {
		t.Fatalf("expected generated id, got %q", state.ID)
	}
	if state.Turn != 0 {
		t.Fatalf("expected turn 0, got %d", state.Turn)
	}
	if state.Phase != PhaseWaitingInput {
		t.Fatalf("expected waiting_input phase, got %q", state.Phase)
	}
	if state.Pending != nil {
		t.Fatal("new session must not have a pending continuation")
	}
	if state.Language != "ru" {
		t.Fatalf("expected language ru, got %q", state.Language)
	}
}

func TestCreateStateValidation(t *testing.T) {
	base := CreateStateInput{
		PackID:     "emberfall",
		Character:  testCharacter(),
		LocationID: "harbor",
	}

	cases := []struct {
		name    string
		mutate  func(*CreateStateInput)
		wantErr error
	}{
		{
			name:    "missing pack id",
			mutate:  func(in *CreateStateInput) { in.PackID = " " },
			wantErr: ErrEmptyPackID,
		},
		{
			name:    "missing location",
			mutate:  func(in *CreateStateInput) { in.LocationID = "" },
			wantErr: ErrEmptyLocationID,
		},
		{
			name:    "unnamed character",
			mutate:  func(in *CreateStateInput) { in.Character.Name = "" },
			wantErr: ErrEmptyCharacterName,
		},
		{
			name:    "no traits",
			mutate:  func(in *CreateStateInput) { in.Character.Traits = nil },
			wantErr: ErrTraitCountOutOfRange,
		},
		{
			name: "too many traits",
			mutate: func(in *CreateStateInput) {
				in.Character.Traits = make([]Trait, 5)
			},
			wantErr: ErrTraitCountOutOfRange,
		},
		{
			name:    "fate points above cap",
			mutate:  func(in *CreateStateInput) { in.Character.FatePoints = 6 },
			wantErr: ErrFatePointsOutOfRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			if _, err := CreateState(input, fixedClock, stubID); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSuspendAndTakeContinuation(t *testing.T) {
	state, err := CreateState(CreateStateInput{
		PackID:     "emberfall",
		Character:  testCharacter(),
		LocationID: "harbor",
	}, fixedClock, stubID)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	state.Suspend(Continuation{
		PlayerInput: "I sneak past the guard",
		Iteration:   2,
		Results:     []AgentResult{{AgentID: "lore", Result: "found", Success: true}},
	})

	if state.Phase != PhaseDiceCheck {
		t.Fatalf("suspend must set dice_check phase, got %q", state.Phase)
	}
	if state.Pending == nil {
		t.Fatal("suspend must store the continuation")
	}

	continuation, ok := state.TakeContinuation()
	if !ok {
		t.Fatal("expected a continuation")
	}
	if state.Pending != nil {
		t.Fatal("take must clear the pending continuation")
	}
	if state.Phase != PhaseWaitingInput {
		t.Fatalf("take must restore the waiting phase, got %q", state.Phase)
	}
	if continuation.PlayerInput != "I sneak past the guard" || continuation.Iteration != 2 {
		t.Fatalf("unexpected continuation: %+v", continuation)
	}

	if _, ok := state.TakeContinuation(); ok {
		t.Fatal("second take must report no continuation")
	}
}

func TestContinuationSerializedLayout(t *testing.T) {
	raw, err := json.Marshal(Continuation{
		PlayerInput: "attack",
		Iteration:   1,
		Results:     []AgentResult{{AgentID: "npc_guard", Result: "blocked", Success: false}},
	})
	if err != nil {
		t.Fatalf("marshal continuation: %v", err)
	}

	for _, field := range []string{`"player_input"`, `"iteration_count"`, `"accumulated_results"`, `"agent_id"`, `"result_text"`} {
		if !strings.Contains(string(raw), field) {
			t.Fatalf("expected field %s in %s", field, raw)
		}
	}

	var decoded Continuation
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal continuation: %v", err)
	}
	if decoded.PlayerInput != "attack" || decoded.Iteration != 1 || len(decoded.Results) != 1 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestRecentMessages(t *testing.T) {
	state := &State{}
	for i := 0; i < 15; i++ {
		state.Append(RoleUser, i, "message", nil)
	}

	window := state.RecentMessages(10)
	if len(window) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(window))
	}
	if window[0].Turn != 5 || window[9].Turn != 14 {
		t.Fatalf("expected the most recent window, got turns %d..%d", window[0].Turn, window[9].Turn)
	}

	if got := state.RecentMessages(0); got != nil {
		t.Fatalf("expected nil for zero window, got %v", got)
	}

	short := &State{}
	short.Append(RoleUser, 0, "only", nil)
	if got := short.RecentMessages(10); len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
}
