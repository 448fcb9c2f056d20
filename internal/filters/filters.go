// Package filters derives the visible subset of the league catalog from the
// browse page's facet selections.
package filters

import (
	"net/url"
	"strings"

	"github.com/codr1/leaguehub/internal/catalog"
)

type Facet string

const (
	FacetSport      Facet = "sport"
	FacetFormat     Facet = "format"
	FacetLocation   Facet = "location"
	FacetSkillLevel Facet = "skillLevel"
	FacetDay        Facet = "day"
)

// Facets lists every facet in display order.
var Facets = []Facet{FacetSport, FacetFormat, FacetLocation, FacetSkillLevel, FacetDay}

// Sentinels meaning "unconstrained".
const (
	AllSports      = "All Sports"
	AllFormats     = "All Formats"
	AllLocations   = "All Locations"
	AllSkillLevels = "All Skill Levels"
	AllDays        = "All Days"
)

// Sentinel returns the "All" value for f.
func Sentinel(f Facet) string {
	switch f {
	case FacetSport:
		return AllSports
	case FacetFormat:
		return AllFormats
	case FacetLocation:
		return AllLocations
	case FacetSkillLevel:
		return AllSkillLevels
	case FacetDay:
		return AllDays
	}
	return ""
}

// Options returns the selectable values for f, sentinel first.
func Options(f Facet) []string {
	options := []string{Sentinel(f)}
	switch f {
	case FacetSport:
		for _, sport := range catalog.Sports {
			options = append(options, string(sport))
		}
	case FacetFormat:
		for _, format := range catalog.Formats {
			options = append(options, string(format))
		}
	case FacetLocation:
		for _, region := range catalog.Regions {
			options = append(options, string(region))
		}
	case FacetSkillLevel:
		for _, level := range catalog.SkillLevels {
			options = append(options, string(level))
		}
	case FacetDay:
		options = append(options, catalog.Days...)
	default:
		return nil
	}
	return options
}

// State holds exactly one value per facet.
type State struct {
	Sport      string `json:"sport"`
	Format     string `json:"format"`
	Location   string `json:"location"`
	SkillLevel string `json:"skillLevel"`
	Day        string `json:"day"`
}

// Default returns a state with every facet unconstrained.
func Default() State {
	return State{
		Sport:      AllSports,
		Format:     AllFormats,
		Location:   AllLocations,
		SkillLevel: AllSkillLevels,
		Day:        AllDays,
	}
}

func (s State) Value(f Facet) string {
	switch f {
	case FacetSport:
		return s.Sport
	case FacetFormat:
		return s.Format
	case FacetLocation:
		return s.Location
	case FacetSkillLevel:
		return s.SkillLevel
	case FacetDay:
		return s.Day
	}
	return ""
}

func (s State) with(f Facet, value string) State {
	switch f {
	case FacetSport:
		s.Sport = value
	case FacetFormat:
		s.Format = value
	case FacetLocation:
		s.Location = value
	case FacetSkillLevel:
		s.SkillLevel = value
	case FacetDay:
		s.Day = value
	}
	return s
}

// IsAnyActive reports whether at least one facet differs from its sentinel.
func (s State) IsAnyActive() bool {
	for _, f := range Facets {
		if s.Value(f) != Sentinel(f) {
			return true
		}
	}
	return false
}

// Clear resets every facet.
func (s State) Clear() State {
	return Default()
}

// Change applies a user selection. The sport facet toggles: choosing the
// already-selected sport resets it to AllSports. Other facets are replaced.
func (s State) Change(f Facet, value string) State {
	if f == FacetSport && s.Sport == value {
		return s.with(f, AllSports)
	}
	return s.with(f, value)
}

// Seed returns the default state with the sport facet taken from rawSport
// when it is an exact member of the sport enumeration.
func Seed(rawSport string) State {
	state := Default()
	if catalog.Sport(rawSport).Valid() {
		state.Sport = rawSport
	}
	return state
}

// FromQuery builds a state from URL query values. Values that are not a
// member of their facet's enumeration are ignored.
func FromQuery(values url.Values) State {
	state := Seed(values.Get(string(FacetSport)))
	for _, f := range Facets[1:] {
		value := values.Get(string(f))
		if value == "" || !allowed(f, value) {
			continue
		}
		state = state.with(f, value)
	}
	return state
}

func allowed(f Facet, value string) bool {
	for _, option := range Options(f) {
		if option == value {
			return true
		}
	}
	return false
}

// Apply returns the leagues matching s in catalog order. The input is not modified.
func Apply(leagues []catalog.League, s State) []catalog.League {
	visible := make([]catalog.League, 0, len(leagues))
	for _, league := range leagues {
		if Matches(league, s) {
			visible = append(visible, league)
		}
	}
	return visible
}

// Matches reports whether league satisfies every facet of s.
func Matches(league catalog.League, s State) bool {
	if s.Sport != AllSports && string(league.Sport) != s.Sport {
		return false
	}
	if s.Format != AllFormats && string(league.Format) != s.Format {
		return false
	}
	if s.Location != AllLocations && string(league.Location) != s.Location {
		return false
	}
	if s.SkillLevel != AllSkillLevels && string(league.SkillLevel) != s.SkillLevel {
		return false
	}
	if s.Day != AllDays && !hasDay(league, s.Day) {
		return false
	}
	return true
}

// hasDay matches whole day tokens so "Tue" never matches "Tuesday".
func hasDay(league catalog.League, day string) bool {
	day = strings.TrimSpace(day)
	for _, token := range league.Days() {
		if token == day {
			return true
		}
	}
	return false
}
