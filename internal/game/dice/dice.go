// Package dice provides the randomness abstraction, notation parser and
// roll-result types used by every rules component of the combat engine.
package dice

import (
	"fmt"
	"strings"
)

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// For Normal rolls Kept equals Dice. For Advantage and Disadvantage two dice
// are rolled and Kept holds the single die that counts.
//
// Postcondition: Total() == sum(Kept) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d6+3"
	Mode       Mode
	Dice       []int // every die rolled, in roll order
	Kept       []int // dice counted toward the total
	Modifier   int   // flat modifier (may be negative)
}

// Total returns the sum of the kept dice plus the modifier.
//
// Postcondition: return value == sum(r.Kept) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Kept {
		total += d
	}
	return total
}

// Natural returns the first kept die, the value that decides natural 1s and
// 20s on a d20 roll. Returns 0 when nothing was kept.
func (r RollResult) Natural() int {
	if len(r.Kept) == 0 {
		return 0
	}
	return r.Kept[0]
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
//	"1d20+5 (advantage) → [7 16] keep [16] +5 = 21"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	var b strings.Builder
	b.WriteString(r.Expression)
	if r.Mode != Normal {
		fmt.Fprintf(&b, " (%s)", r.Mode)
	}
	fmt.Fprintf(&b, " → %v", r.Dice)
	if r.Mode != Normal {
		fmt.Fprintf(&b, " keep %v", r.Kept)
	}
	fmt.Fprintf(&b, " %+d = %d", r.Modifier, r.Total())
	return b.String()
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
