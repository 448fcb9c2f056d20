package leagues

import "strconv"

const (
	DefaultTierSize = 3
	DefaultMaxTiers = 5
	// MaxTierSize is one slot per letter A-Z.
	MaxTierSize = 26
	// MaxTierCount bounds the maxTiers a caller may request.
	MaxTierCount = 20
	courtCount   = 3
)

// Rotation lists for tier assignments, indexed by tier index modulo length.
var (
	TierLocations = []string{
		"Glebe Collegiate Gym",
		"Lisgar Collegiate Gym",
		"Nepean Sportsplex",
		"Colonel By Secondary",
		"Brewer Arena",
	}
	TierTimeSlots = []string{
		"7:00 PM",
		"8:15 PM",
		"9:30 PM",
	}
)

// Team is a ranked entry; Rank is its 1-based position in the ranking list.
type Team struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Slot is a lettered position in a tier. Team is nil when unfilled.
type Slot struct {
	Letter string `json:"slot"`
	Team   *Team  `json:"team"`
}

type Tier struct {
	Number   int    `json:"tier"`
	Slots    []Slot `json:"slots"`
	Location string `json:"location"`
	Time     string `json:"time"`
	Court    string `json:"court"`
}

// Slot returns the team in the slot with the given letter, or nil.
func (t Tier) Slot(letter string) *Team {
	for _, slot := range t.Slots {
		if slot.Letter == letter {
			return slot.Team
		}
	}
	return nil
}

// Teams returns the filled slots in rank order.
func (t Tier) Teams() []Team {
	teams := make([]Team, 0, len(t.Slots))
	for _, slot := range t.Slots {
		if slot.Team != nil {
			teams = append(teams, *slot.Team)
		}
	}
	return teams
}

// RankTeams assigns positional ranks to names in order.
func RankTeams(names []string) []Team {
	teams := make([]Team, 0, len(names))
	for i, name := range names {
		teams = append(teams, Team{Name: name, Rank: i + 1})
	}
	return teams
}

// GenerateTiers partitions ranked into consecutive groups of tierSize, at
// most maxTiers of them. Teams beyond tierSize*maxTiers are not scheduled.
// Non-positive sizes fall back to DefaultTierSize and DefaultMaxTiers; a
// tierSize above MaxTierSize is clamped to it.
func GenerateTiers(ranked []Team, tierSize, maxTiers int) []Tier {
	if tierSize <= 0 {
		tierSize = DefaultTierSize
	}
	tierSize = min(tierSize, MaxTierSize)
	if maxTiers <= 0 {
		maxTiers = DefaultMaxTiers
	}

	count := min(maxTiers, (len(ranked)+tierSize-1)/tierSize)
	tiers := make([]Tier, 0, count)
	for i := 0; i < count; i++ {
		start := i * tierSize

		slots := make([]Slot, tierSize)
		for j := range slots {
			slots[j].Letter = slotLetter(j)
			if start+j < len(ranked) {
				team := ranked[start+j]
				slots[j].Team = &team
			}
		}
		if slots[0].Team == nil {
			break
		}

		tiers = append(tiers, Tier{
			Number:   i + 1,
			Slots:    slots,
			Location: TierLocations[i%len(TierLocations)],
			Time:     TierTimeSlots[i%len(TierTimeSlots)],
			Court:    "Court " + strconv.Itoa(i%courtCount+1),
		})
	}
	return tiers
}

func slotLetter(index int) string {
	return string(rune('A' + index))
}
