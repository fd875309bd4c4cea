package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	parenRe = regexp.MustCompile(`\s*\([^)]*\)`)
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	hhmmRe  = regexp.MustCompile(`(\d{2})(\d{2})`)
)

// CleanTitle strips parenthetical annotations (edition/version suffixes like
// "(IMAX)" or "(디지털)") and trims whitespace. The exclude-list producer and
// consumer both go through this, so matching stays consistent. Idempotent.
func CleanTitle(title string) string {
	return strings.TrimSpace(parenRe.ReplaceAllString(title, ""))
}

// ParseClock parses a raw time token into hour and minute. It accepts the
// KOBIS "HHMM" form as well as the KMDB "H:MM" / "HH:MM" forms.
func ParseClock(tok string) (int, int, error) {
	tok = strings.TrimSpace(tok)

	var hs, ms string
	if m := clockRe.FindStringSubmatch(tok); m != nil {
		hs, ms = m[1], m[2]
	} else if m := hhmmRe.FindStringSubmatch(tok); m != nil {
		hs, ms = m[1], m[2]
	} else {
		return 0, 0, fmt.Errorf("unrecognized time token %q", tok)
	}

	hour, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", tok)
	}
	minute, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", tok)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}

	return hour, minute, nil
}

// ClockOn combines an hour and minute with the target date's year, month and
// day in local time.
func ClockOn(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local)
}

// Clock formats an hour and minute as a zero-padded "HH:MM" string.
func Clock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
