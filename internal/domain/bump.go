package domain

import (
	"fmt"
	"strings"
)

// BumpLevel selects the semantic version component to increment
type BumpLevel string

const (
	BumpMajor BumpLevel = "major"
	BumpMinor BumpLevel = "minor"
	BumpPatch BumpLevel = "patch"
)

// BumpLevels returns the accepted levels in the order they are documented
func BumpLevels() []BumpLevel {
	return []BumpLevel{BumpMajor, BumpMinor, BumpPatch}
}

// ParseBumpLevel parses "major", "minor" or "patch". Matching is exact;
// "Patch" or " patch" are rejected like any other value.
func ParseBumpLevel(s string) (BumpLevel, error) {
	for _, l := range BumpLevels() {
		if s == string(l) {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid bump level %q (expected %s)", s, levelList())
}

// Valid reports whether l is one of the known levels
func (l BumpLevel) Valid() bool {
	_, err := ParseBumpLevel(string(l))
	return err == nil
}

func (l BumpLevel) String() string {
	return string(l)
}

func levelList() string {
	names := make([]string, 0, 3)
	for _, l := range BumpLevels() {
		names = append(names, string(l))
	}
	return strings.Join(names, "|")
}
