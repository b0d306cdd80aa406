package features

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Class is the infrastructure class of a feature. Matching runs
// independently per class; features of different classes never match each
// other.
type Class string

// The built-in infrastructure classes. Datasets may carry additional
// custom classes; any non-empty string is a valid class.
const (
	ClassCycleTrack  Class = "cycle_track"
	ClassCycleLane   Class = "cycle_lane"
	ClassCalmTraffic Class = "calm_traffic"
)

// ClassUnknown is the class assigned to features whose source records no
// class at all.
const ClassUnknown Class = "unknown"

// titleCaser renders class names for report output.
var titleCaser = cases.Title(language.English)

// String returns the raw class name.
func (c Class) String() string {
	return string(c)
}

// Title returns a human-readable display name for the class, for use in
// reports ("cycle_track" becomes "Cycle Track").
func (c Class) Title() string {
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

// ParseClass normalizes a raw class value. Whitespace is trimmed and the
// name lowercased; an empty value maps to ClassUnknown.
func ParseClass(s string) Class {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ClassUnknown
	}
	return Class(s)
}
