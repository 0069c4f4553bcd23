package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPreference = errors.New("invalid theme preference")

// ThemePreference is the user's chosen theme
type ThemePreference string

const (
	ThemeLight  ThemePreference = "light"
	ThemeDark   ThemePreference = "dark"
	ThemeSystem ThemePreference = "system"

	DefaultThemePreference = ThemeDark
)

// ColorScheme is a concrete display mode. SchemeUnknown means the device
// did not report one.
type ColorScheme string

const (
	SchemeLight   ColorScheme = "light"
	SchemeDark    ColorScheme = "dark"
	SchemeUnknown ColorScheme = ""

	FallbackScheme = SchemeDark
)

// Valid reports whether p is one of the three preferences
func (p ThemePreference) Valid() bool {
	switch p {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// ParseThemePreference accepts the raw stored value, with or without JSON quotes
func ParseThemePreference(raw string) (ThemePreference, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	p := ThemePreference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPreference, raw)
	}
	return p, nil
}

// ParseColorScheme maps a device report to a scheme; anything else is unknown
func ParseColorScheme(s string) ColorScheme {
	switch ColorScheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeLight:
		return SchemeLight
	case SchemeDark:
		return SchemeDark
	}
	return SchemeUnknown
}

// ResolveScheme combines the preference with the device scheme
func ResolveScheme(pref ThemePreference, device ColorScheme) ColorScheme {
	switch pref {
	case ThemeLight:
		return SchemeLight
	case ThemeDark:
		return SchemeDark
	}
	if device == SchemeLight || device == SchemeDark {
		return device
	}
	return FallbackScheme
}

// ThemeState is the observable state of the theme store
type ThemeState struct {
	Preference      ThemePreference `json:"preference"`
	DeviceScheme    ColorScheme     `json:"device_scheme"`
	EffectiveScheme ColorScheme     `json:"effective_scheme"`
	Version         uint64          `json:"version"`
}
