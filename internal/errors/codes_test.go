package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/session/domain"
	"github.com/hollowmoor/tableside/internal/session/service"
	"github.com/hollowmoor/tableside/internal/turn"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{stderrors.New("boom"), CodeUnknown},
		{service.ErrSessionNotFound, CodeSessionNotFound},
		{service.ErrUnknownPreset, CodePresetNotFound},
		{service.ErrCharacterRequired, CodeCharacterRequired},
		{domain.ErrEmptyPackID, CodeSessionEmptyPackID},
		{domain.ErrEmptyLocationID, CodeSessionEmptyLocation},
		{domain.ErrEmptyCharacterName, CodeCharacterEmptyName},
		{domain.ErrTraitCountOutOfRange, CodeCharacterTraitCount},
		{domain.ErrFatePointsOutOfRange, CodeCharacterFatePointRange},
		{turn.ErrEmptyInput, CodeTurnEmptyInput},
		{turn.ErrNoPendingCheck, CodeTurnNoPendingCheck},
		{dice.ErrNegativeDiceCount, CodeDiceNegativeCount},
		{worldpack.ErrEmptyPackID, CodePackEmptyID},
		{worldpack.ErrNoLocations, CodePackNoLocations},
		{worldpack.ErrUnknownStartLocation, CodePackUnknownStartLocation},
	}

	for _, tc := range tests {
		if got := FromError(tc.err); got != tc.want {
			t.Errorf("FromError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestFromErrorUnwrapsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("start turn: %w", turn.ErrEmptyInput)
	if got := FromError(wrapped); got != CodeTurnEmptyInput {
		t.Fatalf("FromError(wrapped) = %s, want %s", got, CodeTurnEmptyInput)
	}
}

func TestFromErrorOracleFailure(t *testing.T) {
	err := &turn.OracleError{Stage: "decision", Err: stderrors.New("timeout")}
	if got := FromError(fmt.Errorf("run turn: %w", err)); got != CodeOracleFailure {
		t.Fatalf("FromError(oracle) = %s, want %s", got, CodeOracleFailure)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeTurnEmptyInput, KindValidation},
		{CodeCharacterTraitCount, KindValidation},
		{CodeTurnNoPendingCheck, KindPrecondition},
		{CodeSessionNotFound, KindNotFound},
		{CodePackNotFound, KindNotFound},
		{CodeOracleFailure, KindUnavailable},
		{CodeUnknown, KindInternal},
		{Code("SOMETHING_ELSE"), KindInternal},
	}

	for _, tc := range tests {
		if got := tc.code.Kind(); got != tc.want {
			t.Errorf("%s.Kind() = %d, want %d", tc.code, got, tc.want)
		}
	}
}
