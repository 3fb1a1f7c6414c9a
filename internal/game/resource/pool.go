// Package resource implements capped, rechargeable counters that back spell
// slots and limited-use class features.
package resource

import (
	"fmt"
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// RecoveryType classifies when a Pool refills.
type RecoveryType int

const (
	// Permanent pools never recover once spent.
	Permanent RecoveryType = iota
	// ShortRest pools recover on a short or long rest.
	ShortRest
	// LongRest pools recover only on a long rest.
	LongRest
	// Daily pools recover at dawn, which a long rest stands in for.
	Daily
)

var recoveryNames = map[RecoveryType]string{
	Permanent: "permanent",
	ShortRest: "short_rest",
	LongRest:  "long_rest",
	Daily:     "daily",
}

// String returns the YAML name of the recovery type.
func (r RecoveryType) String() string {
	if s, ok := recoveryNames[r]; ok {
		return s
	}
	return "unknown"
}

// ParseRecoveryType converts a YAML name into a RecoveryType. "none" and
// "never" are accepted as aliases for permanent.
//
// Postcondition: returns an invalid_input error for unrecognized names.
func ParseRecoveryType(s string) (RecoveryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "permanent", "none", "never":
		return Permanent, nil
	case "short_rest", "short":
		return ShortRest, nil
	case "long_rest", "long":
		return LongRest, nil
	case "daily", "dawn":
		return Daily, nil
	}
	return Permanent, rpgerr.InvalidInputf("resource: unknown recovery type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r RecoveryType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RecoveryType) UnmarshalText(b []byte) error {
	v, err := ParseRecoveryType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RestType is the kind of rest a character takes.
type RestType int

const (
	// Short is a short rest.
	Short RestType = iota
	// Long is a long rest.
	Long
)

// String returns "short" or "long".
func (t RestType) String() string {
	if t == Long {
		return "long"
	}
	return "short"
}

// RecoversOn reports whether a pool with this recovery type refills on rest.
// A short rest refills ShortRest pools; a long rest refills ShortRest,
// LongRest and Daily pools. Permanent pools never refill.
func (r RecoveryType) RecoversOn(rest RestType) bool {
	switch r {
	case ShortRest:
		return true
	case LongRest, Daily:
		return rest == Long
	default:
		return false
	}
}

// Pool is a named counter bounded by [0, Maximum].
// Invariant: 0 <= Current <= Maximum after every mutation.
type Pool struct {
	Name     string
	Current  int
	Maximum  int
	Recovery RecoveryType
}

// NewPool creates a full pool.
//
// Postcondition: Maximum >= 0 and Current == Maximum.
func NewPool(name string, maximum int, recovery RecoveryType) *Pool {
	if maximum < 0 {
		maximum = 0
	}
	return &Pool{Name: name, Current: maximum, Maximum: maximum, Recovery: recovery}
}

// Use spends n units. It returns false and leaves the pool unchanged when
// n <= 0 or fewer than n units remain.
//
// Postcondition: on true, Current decreased by exactly n.
func (p *Pool) Use(n int) bool {
	if n <= 0 || p.Current < n {
		return false
	}
	p.Current -= n
	return true
}

// Recover adds up to n units, capped at Maximum, and returns how many units
// were actually restored. Non-positive n restores nothing.
func (p *Pool) Recover(n int) int {
	if n <= 0 {
		return 0
	}
	before := p.Current
	p.Current = min(p.Current+n, p.Maximum)
	return p.Current - before
}

// RecoverFull refills the pool and returns how many units were restored.
func (p *Pool) RecoverFull() int {
	restored := p.Maximum - p.Current
	p.Current = p.Maximum
	return restored
}

// IsAvailable reports whether at least n units remain.
func (p *Pool) IsAvailable(n int) bool {
	return n > 0 && p.Current >= n
}

// IsEmpty reports whether no units remain.
func (p *Pool) IsEmpty() bool { return p.Current == 0 }

// IsFull reports whether the pool is at its maximum.
func (p *Pool) IsFull() bool { return p.Current == p.Maximum }

// String renders the pool as "name: current/maximum".
func (p *Pool) String() string {
	return fmt.Sprintf("%s: %d/%d", p.Name, p.Current, p.Maximum)
}
