// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed leagues.yaml
var defaultCatalogYAML []byte

type Sport string

const (
	SportVolleyball Sport = "Volleyball"
	SportBadminton  Sport = "Badminton"
	SportBasketball Sport = "Basketball"
	SportPickleball Sport = "Pickleball"
)

type Format string

const (
	Format6s      Format = "6s"
	Format4s      Format = "4s"
	Format2s      Format = "2s"
	FormatSingles Format = "Singles"
	FormatDoubles Format = "Doubles"
	Format5s      Format = "5s"
)

type Region string

const (
	RegionCentral Region = "Central"
	RegionWestEnd Region = "West End"
	RegionEastEnd Region = "East End"
)

type SkillLevel string

const (
	SkillElite        SkillLevel = "Elite"
	SkillCompetitive  SkillLevel = "Competitive"
	SkillAdvanced     SkillLevel = "Advanced"
	SkillIntermediate SkillLevel = "Intermediate"
)

// Enumeration members in display order.
var (
	Sports      = []Sport{SportVolleyball, SportBadminton, SportBasketball, SportPickleball}
	Formats     = []Format{Format6s, Format4s, Format2s, FormatSingles, FormatDoubles, Format5s}
	Regions     = []Region{RegionCentral, RegionWestEnd, RegionEastEnd}
	SkillLevels = []SkillLevel{SkillElite, SkillCompetitive, SkillAdvanced, SkillIntermediate}
	Days        = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

func (s Sport) Valid() bool {
	for _, candidate := range Sports {
		if s == candidate {
			return true
		}
	}
	return false
}

func (f Format) Valid() bool {
	for _, candidate := range Formats {
		if f == candidate {
			return true
		}
	}
	return false
}

func (r Region) Valid() bool {
	for _, candidate := range Regions {
		if r == candidate {
			return true
		}
	}
	return false
}

func (l SkillLevel) Valid() bool {
	for _, candidate := range SkillLevels {
		if l == candidate {
			return true
		}
	}
	return false
}

// ValidDay reports whether day is a single weekday name.
func ValidDay(day string) bool {
	for _, candidate := range Days {
		if day == candidate {
			return true
		}
	}
	return false
}

type League struct {
	ID             int64      `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Sport          Sport      `yaml:"sport" json:"sport"`
	Format         Format     `yaml:"format" json:"format"`
	Day            string     `yaml:"day" json:"day"`
	Times          []string   `yaml:"times" json:"times"`
	Location       Region     `yaml:"location" json:"location"`
	Venue          string     `yaml:"venue,omitempty" json:"venue,omitempty"`
	Season         string     `yaml:"season" json:"season"`
	SkillLevel     SkillLevel `yaml:"skill_level" json:"skillLevel"`
	Price          float64    `yaml:"price" json:"price"`
	SpotsRemaining int        `yaml:"spots_remaining" json:"spotsRemaining"`
	Featured       bool       `yaml:"featured,omitempty" json:"featured,omitempty"`
	Image          string     `yaml:"image" json:"image"`
}

// IsFull reports whether registration has been replaced by the waitlist.
func (l League) IsFull() bool {
	return l.SpotsRemaining == 0
}

// Days splits the league's day label into single-day tokens.
// "Tuesday & Thursday" yields ["Tuesday", "Thursday"].
func (l League) Days() []string {
	return DayTokens(l.Day)
}

// DayTokens splits a compound day label on "&", "," and "/".
func DayTokens(label string) []string {
	parts := strings.FieldsFunc(label, func(r rune) bool {
		return r == '&' || r == ',' || r == '/'
	})
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

func (l League) validate() error {
	if l.ID <= 0 {
		return errors.New("id must be a positive integer")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("name is required")
	}
	if !l.Sport.Valid() {
		return fmt.Errorf("unknown sport %q", l.Sport)
	}
	if !l.Format.Valid() {
		return fmt.Errorf("unknown format %q", l.Format)
	}
	if !l.Location.Valid() {
		return fmt.Errorf("unknown location %q", l.Location)
	}
	if !l.SkillLevel.Valid() {
		return fmt.Errorf("unknown skill level %q", l.SkillLevel)
	}
	days := l.Days()
	if len(days) == 0 {
		return errors.New("day is required")
	}
	for _, day := range days {
		if !ValidDay(day) {
			return fmt.Errorf("unknown day %q", day)
		}
	}
	if l.Price < 0 {
		return errors.New("price must be 0 or greater")
	}
	if l.SpotsRemaining < 0 {
		return errors.New("spots_remaining must be 0 or greater")
	}
	return nil
}

// Catalog is an immutable, ordered collection of leagues.
type Catalog struct {
	leagues []League
	byID    map[int64]int
}

// New validates leagues and returns a catalog preserving their order.
func New(leagues []League) (*Catalog, error) {
	c := &Catalog{
		leagues: make([]League, 0, len(leagues)),
		byID:    make(map[int64]int, len(leagues)),
	}
	for _, league := range leagues {
		if err := league.validate(); err != nil {
			return nil, fmt.Errorf("league %d: %w", league.ID, err)
		}
		if _, exists := c.byID[league.ID]; exists {
			return nil, fmt.Errorf("league %d: duplicate id", league.ID)
		}
		league.Times = append([]string(nil), league.Times...)
		c.byID[league.ID] = len(c.leagues)
		c.leagues = append(c.leagues, league)
	}
	return c, nil
}

type catalogFile struct {
	Leagues []League `yaml:"leagues"`
}

// Parse builds a catalog from a YAML document with a top-level "leagues" list.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return New(file.Leagues)
}

// Load reads a catalog file. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog. It panics if the embedded file is invalid.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic("invalid embedded catalog: " + err.Error())
	}
	return c
}

// All returns a copy of every league in catalog order.
func (c *Catalog) All() []League {
	if c == nil {
		return nil
	}
	out := make([]League, len(c.leagues))
	copy(out, c.leagues)
	return out
}

func (c *Catalog) Get(id int64) (League, bool) {
	if c == nil {
		return League{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return League{}, false
	}
	return c.leagues[idx], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.leagues)
}
