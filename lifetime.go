package blog

import (
	"regexp"
	"strconv"
	"time"
)

var lifetimePattern = regexp.MustCompile(
	`^(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`,
)

var lifetimeUnits = []time.Duration{
	7 * 24 * time.Hour,
	24 * time.Hour,
	time.Hour,
	time.Minute,
	time.Second,
}

// ParseLifetime parses the compact duration grammar used in configuration:
// optional w, d, h, m, and s components concatenated in that order, e.g.
// "1h30m" or "2w". Anything unparsable, the empty string included, yields
// (0, false) and the caller must fall back to its own default.
func ParseLifetime(text string) (time.Duration, bool) {
	parts := lifetimePattern.FindStringSubmatch(text)
	if parts == nil {
		return 0, false
	}

	var total time.Duration
	matched := false
	for i, unit := range lifetimeUnits {
		part := parts[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, false
		}
		total += time.Duration(n) * unit
		matched = true
	}

	if !matched {
		return 0, false
	}
	return total, true
}

// LifetimeOrDefault parses text and substitutes def when it does not parse.
func LifetimeOrDefault(text string, def time.Duration) time.Duration {
	if d, ok := ParseLifetime(text); ok {
		return d
	}
	return def
}
