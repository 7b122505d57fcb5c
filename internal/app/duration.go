package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pscheid92/pollbot/internal/domain"
)

const invalidDurationMessage = "Invalid time format or exceeds 30d. Use e.g. 10s, 5m, 2h, 7d, max 30d."

var durationPattern = regexp.MustCompile(`(?i)^(\d+)([smhd])$`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration parses poll durations such as "10s", "5m", "2h" or "7d".
// The result is positive and never longer than domain.MaxPollDuration.
func ParseDuration(s string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, domain.NewValidationError(invalidDurationMessage)
	}

	unit := durationUnits[strings.ToLower(match[2])]
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 || n > int64(domain.MaxPollDuration/unit) {
		return 0, domain.NewValidationError(invalidDurationMessage)
	}

	return time.Duration(n) * unit, nil
}

// DescribeDuration renders d in the largest whole unit, e.g. "5 minutes" or "1 day".
func DescribeDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return plural(int64(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
