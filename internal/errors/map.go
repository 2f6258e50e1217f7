package errors

import (
	"errors"

	"github.com/hollowmoor/tableside/internal/dice"
	"github.com/hollowmoor/tableside/internal/session/domain"
	"github.com/hollowmoor/tableside/internal/session/service"
	"github.com/hollowmoor/tableside/internal/turn"
	"github.com/hollowmoor/tableside/internal/worldpack"
)

// FromError maps a domain error to its machine-readable code. Unrecognized
// errors map to CodeUnknown.
func FromError(err error) Code {
	if err == nil {
		return CodeUnknown
	}

	var oracleErr *turn.OracleError
	if errors.As(err, &oracleErr) {
		return CodeOracleFailure
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, service.ErrUnknownPreset):
		return CodePresetNotFound
	case errors.Is(err, service.ErrCharacterRequired):
		return CodeCharacterRequired

	case errors.Is(err, domain.ErrEmptyPackID):
		return CodeSessionEmptyPackID
	case errors.Is(err, domain.ErrEmptyLocationID):
		return CodeSessionEmptyLocation
	case errors.Is(err, domain.ErrEmptyCharacterName):
		return CodeCharacterEmptyName
	case errors.Is(err, domain.ErrTraitCountOutOfRange):
		return CodeCharacterTraitCount
	case errors.Is(err, domain.ErrFatePointsOutOfRange):
		return CodeCharacterFatePointRange

	case errors.Is(err, turn.ErrEmptyInput):
		return CodeTurnEmptyInput
	case errors.Is(err, turn.ErrNoPendingCheck):
		return CodeTurnNoPendingCheck

	case errors.Is(err, dice.ErrNegativeDiceCount):
		return CodeDiceNegativeCount

	case errors.Is(err, worldpack.ErrEmptyPackID):
		return CodePackEmptyID
	case errors.Is(err, worldpack.ErrNoLocations):
		return CodePackNoLocations
	case errors.Is(err, worldpack.ErrUnknownStartLocation):
		return CodePackUnknownStartLocation

	default:
		return CodeUnknown
	}
}
