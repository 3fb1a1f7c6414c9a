// Package clock tracks elapsed game time and the timed effects that expire
// as it passes. A Clock is advanced explicitly, either by combat rounds or by
// resting and travel, never by wall time.
package clock

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
)

// DefaultRoundDuration is the game time one combat round represents.
const DefaultRoundDuration = 6 * time.Second

// TimePeriod is a named phase of the game day.
type TimePeriod string

const (
	PeriodMidnight  TimePeriod = "Midnight"
	PeriodLateNight TimePeriod = "Late Night"
	PeriodDawn      TimePeriod = "Dawn"
	PeriodMorning   TimePeriod = "Morning"
	PeriodAfternoon TimePeriod = "Afternoon"
	PeriodDusk      TimePeriod = "Dusk"
	PeriodEvening   TimePeriod = "Evening"
	PeriodNight     TimePeriod = "Night"
)

// GameHour is a game-clock hour in [0, 23].
type GameHour int

// Period returns the named time period for this hour.
//
// Precondition: h is in [0, 23].
// Postcondition: Returns one of the eight TimePeriod constants.
func (h GameHour) Period() TimePeriod {
	switch {
	case h == 0:
		return PeriodMidnight
	case h >= 1 && h <= 4:
		return PeriodLateNight
	case h >= 5 && h <= 6:
		return PeriodDawn
	case h >= 7 && h <= 11:
		return PeriodMorning
	case h >= 12 && h <= 16:
		return PeriodAfternoon
	case h >= 17 && h <= 18:
		return PeriodDusk
	case h >= 19 && h <= 21:
		return PeriodEvening
	default: // 22-23
		return PeriodNight
	}
}

// String returns the hour in "HH:00" format.
func (h GameHour) String() string {
	return fmt.Sprintf("%02d:00", int(h))
}

// Tick is broadcast to subscribers each time the clock advances.
type Tick struct {
	Advanced time.Duration
	Elapsed  time.Duration
	Hour     GameHour
	Reason   string
	Expired  []TimedEffect
}

// Clock is the game-time authority. It implements combat.TimeSink so an
// initiative tracker can advance it one round at a time.
// It is safe for concurrent use.
type Clock struct {
	mu            sync.Mutex
	elapsed       time.Duration
	startHour     int
	roundDuration time.Duration
	effects       []*TimedEffect
	subscribers   map[chan<- Tick]struct{}
	sink          event.Sink
	logger        *zap.Logger
}

// Option configures a Clock.
type Option func(*Clock)

// WithStartHour sets the hour of day at elapsed time zero.
func WithStartHour(h int) Option {
	return func(c *Clock) { c.startHour = ((h % 24) + 24) % 24 }
}

// WithEventSink routes time_advanced and timed_effect_expired events to s.
func WithEventSink(s event.Sink) Option {
	return func(c *Clock) { c.sink = event.OrNop(s) }
}

// WithLogger sets the clock's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a clock at elapsed time zero.
//
// Precondition: roundDuration >= 0; 0 selects DefaultRoundDuration.
func New(roundDuration time.Duration, opts ...Option) *Clock {
	if roundDuration <= 0 {
		roundDuration = DefaultRoundDuration
	}
	c := &Clock{
		roundDuration: roundDuration,
		subscribers:   make(map[chan<- Tick]struct{}),
		sink:          event.Nop{},
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Elapsed returns the total game time advanced so far.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// CurrentHour returns the hour of day.
func (c *Clock) CurrentHour() GameHour {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hourLocked()
}

func (c *Clock) hourLocked() GameHour {
	return GameHour((c.startHour + int(c.elapsed/time.Hour)) % 24)
}

// RoundDuration returns the game time of one combat round.
func (c *Clock) RoundDuration() time.Duration { return c.roundDuration }

// CombatRoundElapsed advances the clock by one round.
func (c *Clock) CombatRoundElapsed() {
	c.Advance(c.roundDuration, "combat round")
}

// Subscribe registers ch to receive a Tick on each advance.
// If ch is full, the tick is dropped for that subscriber (non-blocking).
//
// Precondition: ch must not be nil.
func (c *Clock) Subscribe(ch chan<- Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (c *Clock) Unsubscribe(ch chan<- Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, ch)
}

// Advance moves game time forward by d, expiring every timed effect whose
// remaining time runs out, and returns the expired effects.
//
// Postcondition: d <= 0 changes nothing and returns nil.
func (c *Clock) Advance(d time.Duration, reason string) []TimedEffect {
	if d <= 0 {
		return nil
	}
	c.mu.Lock()
	c.elapsed += d
	var expired []TimedEffect
	kept := c.effects[:0]
	for _, e := range c.effects {
		e.Remaining -= d
		if e.Remaining <= 0 {
			e.Remaining = 0
			expired = append(expired, *e)
			continue
		}
		kept = append(kept, e)
	}
	c.effects = kept
	tick := Tick{Advanced: d, Elapsed: c.elapsed, Hour: c.hourLocked(), Reason: reason, Expired: expired}
	subs := make([]chan<- Tick, 0, len(c.subscribers))
	for ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, e := range expired {
		c.sink.Emit(event.Event{
			Type:   event.TimedEffectExpire,
			Actor:  e.Caster,
			Target: e.Target,
			Detail: e.Source,
		})
	}
	c.sink.Emit(event.Event{
		Type:   event.TimeAdvanced,
		Amount: int(d / time.Second),
		Detail: fmt.Sprintf("%s (%s elapsed)", reason, FormatDuration(tick.Elapsed)),
	})
	c.logger.Debug("time advanced",
		zap.Duration("by", d),
		zap.Duration("elapsed", tick.Elapsed),
		zap.String("reason", reason),
		zap.Int("expired", len(expired)),
	)

	for _, ch := range subs {
		select {
		case ch <- tick:
		default:
		}
	}
	return expired
}

// EffectKind classifies a TimedEffect.
type EffectKind string

const (
	KindSpell     EffectKind = "spell"
	KindCondition EffectKind = "condition"
	KindBuff      EffectKind = "buff"
	KindDebuff    EffectKind = "debuff"
	KindPoison    EffectKind = "poison"
	KindDisease   EffectKind = "disease"
)

// TimedEffect is an effect that lasts a fixed amount of game time.
type TimedEffect struct {
	Kind EffectKind
	// Source names what created the effect, e.g. a spell ID.
	Source        string
	Target        string
	Caster        string
	Duration      time.Duration
	Remaining     time.Duration
	Concentration bool
	Description   string
}

// Track starts tracking e, replacing any effect with the same target and
// source. Remaining defaults to, and is capped at, Duration.
//
// Precondition: e.Duration > 0 and e.Source and e.Target are non-empty;
// otherwise an invalid_input error is returned.
func (c *Clock) Track(e TimedEffect) error {
	if e.Duration <= 0 {
		return rpgerr.InvalidInputf("clock: effect %q needs a positive duration", e.Source)
	}
	if e.Source == "" || e.Target == "" {
		return rpgerr.InvalidInput("clock: effect source and target are required")
	}
	if e.Remaining <= 0 || e.Remaining > e.Duration {
		e.Remaining = e.Duration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(func(x *TimedEffect) bool { return x.Target == e.Target && x.Source == e.Source })
	c.effects = append(c.effects, &e)
	return nil
}

// Remove stops tracking the effect with target and source.
func (c *Clock) Remove(target, source string) (TimedEffect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.removeLocked(func(x *TimedEffect) bool { return x.Target == target && x.Source == source })
	if len(removed) == 0 {
		return TimedEffect{}, false
	}
	return removed[0], true
}

// BreakConcentration drops every concentration effect caster maintains.
func (c *Clock) BreakConcentration(caster string) []TimedEffect {
	c.mu.Lock()
	removed := c.removeLocked(func(x *TimedEffect) bool { return x.Concentration && x.Caster == caster })
	c.mu.Unlock()
	for _, e := range removed {
		c.sink.Emit(event.Event{
			Type: event.TimedEffectExpire, Actor: e.Caster, Target: e.Target,
			Detail: e.Source + " (concentration broken)",
		})
	}
	return removed
}

// Active returns a snapshot of tracked effects ordered by remaining time,
// then target and source.
func (c *Clock) Active() []TimedEffect {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TimedEffect, 0, len(c.effects))
	for _, e := range c.effects {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Remaining != out[j].Remaining {
			return out[i].Remaining < out[j].Remaining
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// ActiveFor returns the tracked effects on target.
func (c *Clock) ActiveFor(target string) []TimedEffect {
	var out []TimedEffect
	for _, e := range c.Active() {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

func (c *Clock) removeLocked(match func(*TimedEffect) bool) []TimedEffect {
	var removed []TimedEffect
	kept := c.effects[:0]
	for _, e := range c.effects {
		if match(e) {
			removed = append(removed, *e)
			continue
		}
		kept = append(kept, e)
	}
	c.effects = kept
	return removed
}
