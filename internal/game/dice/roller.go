package dice

import (
	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Mode selects how many dice a single-die roll uses and which one counts.
type Mode int

const (
	// Normal rolls the expression as written.
	Normal Mode = iota
	// Advantage rolls two dice and keeps the higher.
	Advantage
	// Disadvantage rolls two dice and keeps the lower.
	Disadvantage
)

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

// ModeFor converts a pair of advantage/disadvantage flags into a Mode.
//
// Postcondition: returns a failed_precondition error when both flags are set.
func ModeFor(advantage, disadvantage bool) (Mode, error) {
	switch {
	case advantage && disadvantage:
		return Normal, rpgerr.Precondition("dice: advantage and disadvantage are mutually exclusive")
	case advantage:
		return Advantage, nil
	case disadvantage:
		return Disadvantage, nil
	default:
		return Normal, nil
	}
}

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Precondition: expr.Count >= 1 and expr.Sides >= 1; src must be non-nil.
// Advantage and Disadvantage additionally require expr.Count == 1.
// Postcondition: len(result.Dice) == expr.Count for Normal rolls and 2 otherwise;
// result.Total() == sum(result.Kept) + result.Modifier.
func Roll(expr Expression, mode Mode, src Source) (RollResult, error) {
	if expr.Count < 1 || expr.Sides < 1 {
		return RollResult{}, rpgerr.InvalidInputf("dice: cannot roll %dd%d", expr.Count, expr.Sides)
	}
	raw := expr.Raw
	if raw == "" {
		raw = expr.String()
	}

	if mode == Normal {
		rolled := make([]int, expr.Count)
		for i := range rolled {
			rolled[i] = src.Intn(expr.Sides) + 1
		}
		return RollResult{
			Expression: raw,
			Mode:       Normal,
			Dice:       rolled,
			Kept:       rolled,
			Modifier:   expr.Modifier,
		}, nil
	}

	if expr.Count != 1 {
		return RollResult{}, rpgerr.Preconditionf("dice: %s requires a single die, got %q", mode, raw)
	}
	a := src.Intn(expr.Sides) + 1
	b := src.Intn(expr.Sides) + 1
	kept := a
	if (mode == Advantage && b > a) || (mode == Disadvantage && b < a) {
		kept = b
	}
	return RollResult{
		Expression: raw,
		Mode:       mode,
		Dice:       []int{a, b},
		Kept:       []int{kept},
		Modifier:   expr.Modifier,
	}, nil
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Postcondition: Returns a RollResult or a parse/roll error.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, Normal, src)
}
