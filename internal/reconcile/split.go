// Package reconcile turns expense and contribution records into period
// summaries and rolls those summaries into an overview.
//
// This file implements the Strategy Pattern for the split denominator:
// how many ways the period's shared total is divided.
package reconcile

import (
	"fmt"
	"sort"
)

// SplitStrategy decides the denominator of the per-person share.
type SplitStrategy interface {
	// Ways returns the number of equal shares, given how many
	// participants the period has. It must return at least 1.
	Ways(participants int) int
}

// FixedSplit divides the total into a constant number of shares,
// regardless of who took part. FixedSplit{N: 2} is the historical
// half-and-half rule.
type FixedSplit struct {
	N int
}

// Ways returns N, or 2 when N is not positive.
func (s FixedSplit) Ways(int) int {
	if s.N < 1 {
		return 2
	}
	return s.N
}

// PerParticipantSplit divides the total evenly among the participants.
type PerParticipantSplit struct{}

// Ways returns the participant count, never less than 1.
func (PerParticipantSplit) Ways(participants int) int {
	if participants < 1 {
		return 1
	}
	return participants
}

const (
	SplitHalf           = "half"
	SplitPerParticipant = "per-participant"
)

var splitStrategies = map[string]SplitStrategy{
	SplitHalf:           FixedSplit{N: 2},
	SplitPerParticipant: PerParticipantSplit{},
}

// GetSplitStrategy returns the strategy registered under name.
func GetSplitStrategy(name string) (SplitStrategy, error) {
	s, ok := splitStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown split strategy: %s", name)
	}
	return s, nil
}

// RegisterSplitStrategy adds or replaces a named strategy.
func RegisterSplitStrategy(name string, s SplitStrategy) {
	splitStrategies[name] = s
}

// SplitStrategyNames lists registered names, sorted.
func SplitStrategyNames() []string {
	names := make([]string, 0, len(splitStrategies))
	for n := range splitStrategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
