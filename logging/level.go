package logging

import (
	"fmt"
	"strings"

	"github.com/joeycumines/logiface"
)

// ParseLevel accepts both the syslog keywords printed by logiface.Level and
// the zerolog spellings ("warn", "error", "fatal").
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info", "informational":
		return logiface.LevelInformational, nil
	case "trace":
		return logiface.LevelTrace, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "crit", "critical", "fatal":
		return logiface.LevelCritical, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "emerg", "emergency", "panic":
		return logiface.LevelEmergency, nil
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("logging: unknown level %q", s)
}
