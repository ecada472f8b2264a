package voicemap

import (
	"fmt"
	"strings"
)

// Screen is the active application screen.
type Screen string

const (
	ScreenHome      Screen = "home"
	ScreenNavigate  Screen = "navigate"
	ScreenHazards   Screen = "hazards"
	ScreenEmergency Screen = "emergency"
)

// ParseScreen parses a screen name.
func ParseScreen(name string) (Screen, error) {
	switch s := Screen(strings.ToLower(strings.TrimSpace(name))); s {
	case ScreenHome, ScreenNavigate, ScreenHazards, ScreenEmergency:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
}

// Announcement is spoken when the user switches to the screen directly.
func (s Screen) Announcement() string {
	switch s {
	case ScreenHome:
		return "Home screen active"
	case ScreenNavigate:
		return "Navigation screen active"
	case ScreenHazards:
		return "Hazard reporting screen active"
	case ScreenEmergency:
		return "Emergency assistance screen active"
	default:
		return ""
	}
}
