package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// ErrInvalidNotation is wrapped by every Parse failure. Match it with errors.Is.
var ErrInvalidNotation = rpgerr.InvalidInput("dice: invalid notation")

var notationPattern = regexp.MustCompile(`^(\d*)d(\d+)(?:([+-])(\d+))?$`)

// Expression represents a parsed dice expression ready to be rolled.
// Precondition: Count >= 1, Sides >= 1 after successful Parse.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2". Letters are case-insensitive
// and surrounding whitespace is ignored.
//
// Postcondition: Returns a valid Expression, or an error wrapping ErrInvalidNotation.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, invalidNotation(expr, "empty expression")
	}

	m := notationPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, invalidNotation(expr, "does not match [N]dS[+/-M]")
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, invalidNotation(expr, "die count out of range")
		}
		count = n
	}
	if count < 1 {
		return Expression{}, invalidNotation(expr, "die count must be >= 1")
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expression{}, invalidNotation(expr, "die sides out of range")
	}
	if sides < 1 {
		return Expression{}, invalidNotation(expr, "die sides must be >= 1")
	}

	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[4])
		if err != nil {
			return Expression{}, invalidNotation(expr, "modifier out of range")
		}
		if m[3] == "-" {
			modifier = -modifier
		}
	}

	return Expression{
		Raw:      expr,
		Count:    count,
		Sides:    sides,
		Modifier: modifier,
	}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Base returns the dice portion without the modifier, e.g. "2d6".
func (e Expression) Base() string {
	return fmt.Sprintf("%dd%d", e.Count, e.Sides)
}

// String returns the canonical notation, e.g. "2d6+3" or "1d8-1".
func (e Expression) String() string {
	return FormatWithModifier(e.Base(), e.Modifier)
}

// WithCount returns a copy of e rolling n dice.
//
// Precondition: n >= 1.
func (e Expression) WithCount(n int) Expression {
	out := e
	out.Count = n
	out.Raw = out.String()
	return out
}

// ScaleDice multiplies the die count by factor, leaving the modifier alone.
// Critical hits and cantrip scaling are both expressed this way.
//
// Precondition: factor >= 1.
func (e Expression) ScaleDice(factor int) Expression {
	return e.WithCount(e.Count * factor)
}

// AddDice returns a copy of e with n extra dice of the same size.
//
// Precondition: n >= 0.
func (e Expression) AddDice(n int) Expression {
	return e.WithCount(e.Count + n)
}

// FormatWithModifier renders base dice and a flat modifier as valid notation,
// never producing a doubled sign.
//
//	FormatWithModifier("1d8", 3)  == "1d8+3"
//	FormatWithModifier("1d8", -1) == "1d8-1"
//	FormatWithModifier("1d8", 0)  == "1d8"
func FormatWithModifier(base string, modifier int) string {
	switch {
	case modifier > 0:
		return fmt.Sprintf("%s+%d", base, modifier)
	case modifier < 0:
		return fmt.Sprintf("%s%d", base, modifier)
	default:
		return base
	}
}

func invalidNotation(raw, reason string) error {
	return rpgerr.Wrapf(ErrInvalidNotation, "parsing %q: %s", raw, reason)
}
