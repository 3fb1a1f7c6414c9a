package dice

import "go.uber.org/zap"

var d20 = MustParse("1d20")

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, mode, dice, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// NewRoller creates a Roller that does not log.
//
// Precondition: src must be non-nil.
func NewRoller(src Source) *Roller {
	return NewLoggedRoller(src, zap.NewNop())
}

// Roll evaluates expr in the given mode and logs the result at debug level.
//
// Postcondition: result logged; returns RollResult or error.
func (r *Roller) Roll(expr Expression, mode Mode) (RollResult, error) {
	result, err := Roll(expr, mode, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Stringer("mode", result.Mode),
		zap.Ints("dice", result.Dice),
		zap.Ints("kept", result.Kept),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses notation and rolls it normally, logging the result.
//
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(notation string) (RollResult, error) {
	e, err := Parse(notation)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e, Normal)
}

// RollNotation is the flag-based form: roll notation with optional advantage
// or disadvantage.
//
// Postcondition: returns a failed_precondition error when both flags are set or
// when either flag is used with more than one die; returns an error wrapping
// ErrInvalidNotation when notation is malformed.
func (r *Roller) RollNotation(notation string, advantage, disadvantage bool) (RollResult, error) {
	mode, err := ModeFor(advantage, disadvantage)
	if err != nil {
		return RollResult{}, err
	}
	e, err := Parse(notation)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e, mode)
}

// D20 rolls a single d20 in the given mode.
func (r *Roller) D20(mode Mode) (RollResult, error) {
	return r.Roll(d20, mode)
}
