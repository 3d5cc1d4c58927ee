package model

const (
	ModeFocus      = "focus"
	ModeShortBreak = "short_break"
	ModeLongBreak  = "long_break"
)

const (
	DefaultFocusDurationSeconds      = 25 * 60
	DefaultShortBreakDurationSeconds = 5 * 60
	DefaultLongBreakDurationSeconds  = 15 * 60
)

// DurationForMode is the static mode registry: every session kind maps to a
// fixed nominal duration in seconds. Unknown modes map to the focus duration.
func DurationForMode(mode string) int {
	switch mode {
	case ModeShortBreak:
		return DefaultShortBreakDurationSeconds
	case ModeLongBreak:
		return DefaultLongBreakDurationSeconds
	default:
		return DefaultFocusDurationSeconds
	}
}

func IsValidMode(mode string) bool {
	return mode == ModeFocus || mode == ModeShortBreak || mode == ModeLongBreak
}
