// Package errors provides machine-readable error codes for the engine's
// domain errors, for clients that switch on failure kinds rather than
// matching sentinel errors.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeSessionEmptyPackID   Code = "SESSION_EMPTY_PACK_ID"
	CodeSessionEmptyLocation Code = "SESSION_EMPTY_LOCATION_ID"
	CodeCharacterRequired    Code = "SESSION_CHARACTER_REQUIRED"
	CodePresetNotFound       Code = "SESSION_PRESET_NOT_FOUND"

	// Character errors
	CodeCharacterEmptyName      Code = "CHARACTER_EMPTY_NAME"
	CodeCharacterTraitCount     Code = "CHARACTER_TRAIT_COUNT_OUT_OF_RANGE"
	CodeCharacterFatePointRange Code = "CHARACTER_FATE_POINTS_OUT_OF_RANGE"

	// Turn errors
	CodeTurnEmptyInput     Code = "TURN_EMPTY_INPUT"
	CodeTurnNoPendingCheck Code = "TURN_NO_PENDING_CHECK"
	CodeOracleFailure      Code = "ORACLE_FAILURE"

	// Dice errors
	CodeDiceNegativeCount Code = "DICE_NEGATIVE_COUNT"

	// Pack errors
	CodePackEmptyID              Code = "PACK_EMPTY_ID"
	CodePackNoLocations          Code = "PACK_NO_LOCATIONS"
	CodePackUnknownStartLocation Code = "PACK_UNKNOWN_START_LOCATION"
	CodePackNotFound             Code = "PACK_NOT_FOUND"
)

// Kind groups codes by how a client should treat them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPrecondition
	KindNotFound
	KindUnavailable
)

// Kind maps a code to its failure kind.
func (c Code) Kind() Kind {
	switch c {
	// Validation failures, bad input.
	case CodeSessionEmptyPackID,
		CodeSessionEmptyLocation,
		CodeCharacterRequired,
		CodeCharacterEmptyName,
		CodeCharacterTraitCount,
		CodeCharacterFatePointRange,
		CodeTurnEmptyInput,
		CodeDiceNegativeCount,
		CodePackEmptyID,
		CodePackNoLocations,
		CodePackUnknownStartLocation:
		return KindValidation

	// State doesn't allow the operation.
	case CodeTurnNoPendingCheck:
		return KindPrecondition

	// Resource doesn't exist.
	case CodeSessionNotFound,
		CodePresetNotFound,
		CodePackNotFound:
		return KindNotFound

	// Upstream dependency failed.
	case CodeOracleFailure:
		return KindUnavailable

	default:
		return KindInternal
	}
}
