package leagues

// Matchup pairs two teams of a tier for one round.
type Matchup struct {
	Round int  `json:"round"`
	Home  Team `json:"home"`
	Away  Team `json:"away"`
}

// Matchups returns every pairing of the tier's filled slots exactly once,
// using the circle method. The home side of the fixed team alternates by round.
func (t Tier) Matchups() []Matchup {
	return RoundRobin(t.Teams())
}

// RoundRobin pairs every team with every other team once.
func RoundRobin(teams []Team) []Matchup {
	if len(teams) < 2 {
		return nil
	}

	working := make([]*Team, 0, len(teams)+1)
	for i := range teams {
		working = append(working, &teams[i])
	}
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	rounds := len(working) - 1
	matchups := make([]Matchup, 0, rounds*len(working)/2)

	for round := 0; round < rounds; round++ {
		for i := 0; i < len(working)/2; i++ {
			left := working[i]
			right := working[len(working)-1-i]
			if left == nil || right == nil {
				continue
			}
			home := *left
			away := *right
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			matchups = append(matchups, Matchup{
				Round: round + 1,
				Home:  home,
				Away:  away,
			})
		}
		rotateTeams(working)
	}

	return matchups
}

func rotateTeams(teams []*Team) {
	if len(teams) <= 2 {
		return
	}
	last := teams[len(teams)-1]
	copy(teams[2:], teams[1:len(teams)-1])
	teams[1] = last
}
