package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

var durationPattern = regexp.MustCompile(`(\d+)\s*(round|minute|hour|day)s?`)

// ParseDuration converts a spell-style duration such as "1 minute",
// "Concentration, up to 10 minutes" or "8 hours" into game time.
// "Instantaneous" parses as zero; "Until dispelled" and "Permanent" report
// ok=false with no error.
//
// Postcondition: unrecognized text returns an invalid_input error.
func ParseDuration(text string, roundDuration time.Duration) (d time.Duration, ok bool, err error) {
	if roundDuration <= 0 {
		roundDuration = DefaultRoundDuration
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "" || lower == "instantaneous":
		return 0, true, nil
	case strings.Contains(lower, "until dispelled"), strings.Contains(lower, "permanent"):
		return 0, false, nil
	}
	m := durationPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, false, rpgerr.InvalidInputf("clock: unrecognized duration %q", text)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false, rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "clock: duration amount")
	}
	var unit time.Duration
	switch m[2] {
	case "round":
		unit = roundDuration
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	}
	return time.Duration(n) * unit, true, nil
}

// IsConcentration reports whether a duration string requires concentration.
func IsConcentration(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "concentration")
}

// FormatDuration renders d with its two largest non-zero units, e.g.
// "1h 30m", "2m 6s" or "0s".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)
	d -= time.Duration(mins) * time.Minute
	secs := int(d / time.Second)

	parts := make([]string, 0, 2)
	for _, p := range []struct {
		n    int
		unit string
	}{{days, "d"}, {hours, "h"}, {mins, "m"}, {secs, "s"}} {
		if p.n == 0 && len(parts) == 0 {
			continue
		}
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", p.n, p.unit))
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
