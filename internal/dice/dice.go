// Package dice implements the 2d6 check mechanic for the narrative engine.
//
// Every check rolls a pool of six-sided dice and keeps exactly two of them.
// Bonus dice grow the pool and keep the highest two; penalty dice grow the
// pool and keep the lowest two. The kept dice plus the modifier decide the
// outcome category.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Outcome represents the outcome category of a check roll.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeFailure
	OutcomePartial
	OutcomeSuccess
	OutcomeCritical
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "failure"
	case OutcomePartial:
		return "partial"
	case OutcomeSuccess:
		return "success"
	case OutcomeCritical:
		return "critical"
	default:
		return "unspecified"
	}
}

// Outcome thresholds for the kept-2d6-plus-modifier total.
const (
	criticalThreshold = 12
	successThreshold  = 10
	partialThreshold  = 7
)

// keptDice is the number of dice kept from the pool, regardless of its size.
const keptDice = 2

// ErrNegativeDiceCount indicates bonus or penalty dice counts below zero.
var ErrNegativeDiceCount = errors.New("bonus and penalty dice must be non-negative")

// Request describes a check roll.
type Request struct {
	Modifier    int
	BonusDice   int
	PenaltyDice int
	Seed        int64
}

// Result captures a fully resolved check roll.
type Result struct {
	Rolls     []int // every die rolled, in roll order
	Kept      []int // exactly two dice, descending
	Dropped   []int // the rest of the pool, descending
	Modifier  int
	Total     int
	Outcome   Outcome
	IsBonus   bool
	IsPenalty bool
}

// Roll resolves a check roll from the provided request.
//
// Roll is deterministic with respect to Seed: the same request always
// produces the same result. The pool size is 2 + |BonusDice - PenaltyDice|;
// a net bonus keeps the highest two dice, a net penalty keeps the lowest
// two, and a net of zero behaves as a plain 2d6 even when both sides
// contributed dice.
func Roll(request Request) (Result, error) {
	if request.BonusDice < 0 || request.PenaltyDice < 0 {
		return Result{}, ErrNegativeDiceCount
	}

	rng := rand.New(rand.NewSource(request.Seed))
	return RollWithRng(rng, request.Modifier, request.BonusDice, request.PenaltyDice)
}

// RollWithRng resolves a check roll using a provided random source.
func RollWithRng(rng *rand.Rand, modifier, bonusDice, penaltyDice int) (Result, error) {
	if bonusDice < 0 || penaltyDice < 0 {
		return Result{}, ErrNegativeDiceCount
	}

	netBonus := bonusDice - penaltyDice
	poolSize := keptDice + abs(netBonus)

	rolls := make([]int, poolSize)
	for i := range rolls {
		rolls[i] = rng.Intn(6) + 1
	}

	sorted := make([]int, poolSize)
	copy(sorted, rolls)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var kept, dropped []int
	if netBonus >= 0 {
		kept = sorted[:keptDice]
		dropped = sorted[keptDice:]
	} else {
		kept = sorted[poolSize-keptDice:]
		dropped = sorted[:poolSize-keptDice]
	}

	total := kept[0] + kept[1] + modifier

	return Result{
		Rolls:     rolls,
		Kept:      kept,
		Dropped:   dropped,
		Modifier:  modifier,
		Total:     total,
		Outcome:   OutcomeForTotal(total),
		IsBonus:   netBonus > 0,
		IsPenalty: netBonus < 0,
	}, nil
}

// OutcomeForTotal maps a kept-dice-plus-modifier total to its outcome category.
func OutcomeForTotal(total int) Outcome {
	switch {
	case total >= criticalThreshold:
		return OutcomeCritical
	case total >= successThreshold:
		return OutcomeSuccess
	case total >= partialThreshold:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

// Formula renders the dice-notation string for a pool.
//
// A flat pool is "2d6"; a net bonus keeps the highest two ("3d6kh2") and a
// net penalty keeps the lowest two ("3d6kl2").
func Formula(bonusDice, penaltyDice int) string {
	netBonus := bonusDice - penaltyDice
	poolSize := keptDice + abs(netBonus)

	switch {
	case netBonus > 0:
		return fmt.Sprintf("%dd6kh2", poolSize)
	case netBonus < 0:
		return fmt.Sprintf("%dd6kl2", poolSize)
	default:
		return "2d6"
	}
}

// CheckFactors describes how character traits and status tags influence a
// requested check.
type CheckFactors struct {
	BonusDice     int
	PenaltyDice   int
	MatchedTraits []string
	MatchedTags   []string
}

// DeriveCheckFactors inspects a check's intention and reason for mentions of
// the player's traits and status tags.
//
// Matching is a case-insensitive substring test against intention and reason
// concatenated. Any trait match grants one bonus die; any tag match adds one
// penalty die. Both can apply at once; the bonus and penalty cancel and the
// check rolls a plain 2d6.
func DeriveCheckFactors(intention, reason string, traits, tags []string) CheckFactors {
	haystack := strings.ToLower(intention + " " + reason)

	factors := CheckFactors{}
	for _, trait := range traits {
		name := strings.TrimSpace(trait)
		if name == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(name)) {
			factors.MatchedTraits = append(factors.MatchedTraits, name)
		}
	}
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(name)) {
			factors.MatchedTags = append(factors.MatchedTags, name)
		}
	}

	if len(factors.MatchedTraits) > 0 {
		factors.BonusDice = 1
	}
	if len(factors.MatchedTags) > 0 {
		factors.PenaltyDice = 1
	}
	return factors
}

// CheckRequest is the payload handed back to the caller when a turn suspends
// on a dice check.
type CheckRequest struct {
	Intention     string
	Reason        string
	MatchedTraits []string
	MatchedTags   []string
	Formula       string
	Instructions  string
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
