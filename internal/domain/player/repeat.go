package player

import (
	"fmt"
	"strings"
)

// RepeatMode controls what happens when a track ends on its own.
type RepeatMode int

const (
	NoRepeat RepeatMode = iota
	RepeatAll
	RepeatOne
)

// Next returns the mode that follows m in the NoRepeat, RepeatAll, RepeatOne cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case NoRepeat:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return NoRepeat
	}
}

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// ParseRepeatMode accepts the String forms plus a few common aliases.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "no", "":
		return NoRepeat, nil
	case "all", "playlist":
		return RepeatAll, nil
	case "one", "single", "track":
		return RepeatOne, nil
	}
	return NoRepeat, fmt.Errorf("unknown repeat mode %q", s)
}
