package domain

import (
	"errors"
	"strings"
)

const (
	minTraits     = 1
	maxTraits     = 4
	maxFatePoints = 5
)

var (
	// ErrEmptyCharacterName indicates a character without a name.
	ErrEmptyCharacterName = errors.New("character name is required")
	// ErrTraitCountOutOfRange indicates fewer than 1 or more than 4 traits.
	ErrTraitCountOutOfRange = errors.New("character requires between 1 and 4 traits")
	// ErrFatePointsOutOfRange indicates fate points outside 0-5.
	ErrFatePointsOutOfRange = errors.New("fate points must be between 0 and 5")
)

// Trait is a dual-aspect narrative descriptor: the same quality helps in
// some situations and hurts in others.
type Trait struct {
	Name     string
	Positive string
	Negative string
}

// Character is the player character bound to a session.
type Character struct {
	Name       string
	Concept    string
	Traits     []Trait
	FatePoints int
	Tags       []string
}

// TraitNames returns the display names of the character's traits.
func (c Character) TraitNames() []string {
	names := make([]string, 0, len(c.Traits))
	for _, trait := range c.Traits {
		names = append(names, trait.Name)
	}
	return names
}

// NormalizeCharacter validates and canonicalizes a character.
func NormalizeCharacter(character Character) (Character, error) {
	character.Name = strings.TrimSpace(character.Name)
	if character.Name == "" {
		return Character{}, ErrEmptyCharacterName
	}
	if len(character.Traits) < minTraits || len(character.Traits) > maxTraits {
		return Character{}, ErrTraitCountOutOfRange
	}
	if character.FatePoints < 0 || character.FatePoints > maxFatePoints {
		return Character{}, ErrFatePointsOutOfRange
	}
	return character, nil
}
