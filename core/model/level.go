package model

import "fmt"

// Level is the shared four-step scale used for disaster severity, request
// urgency and location priority.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// ParseLevel validates a raw level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Valid reports whether the level is one of the four known steps.
func (l Level) Valid() bool {
	_, err := ParseLevel(string(l))
	return err == nil
}

// Weight returns the ordinal weight of the level, 1 for low up to 4 for
// critical. Unknown levels weigh 0.
func (l Level) Weight() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	}
	return 0
}
