package leagues

import (
	"errors"
	"fmt"
	"sort"
)

var ErrTiedMatch = errors.New("tied matches are not supported")

// StandingsTeam is a team registered in the league.
type StandingsTeam struct {
	ID   int64
	Name string
}

// MatchResult is a recorded final score between two league teams.
type MatchResult struct {
	ID         int64
	HomeTeamID int64
	AwayTeamID int64
	HomeScore  int
	AwayScore  int
}

type TeamStanding struct {
	TeamID            int64  `json:"teamId"`
	TeamName          string `json:"teamName"`
	MatchesPlayed     int    `json:"matchesPlayed"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
	PointsFor         int    `json:"pointsFor"`
	PointsAgainst     int    `json:"pointsAgainst"`
	PointDifferential int    `json:"pointDifferential"`
}

type teamStats struct {
	TeamStanding
	headToHeadWins      map[int64]int
	headToHeadPointDiff map[int64]int
}

// CalculateStandings orders teams by wins, then within equal-wins groups by
// head-to-head wins, point differential, head-to-head point differential and
// name. Teams without results are included with zeroed records.
func CalculateStandings(teams []StandingsTeam, results []MatchResult) ([]TeamStanding, error) {
	stats := make(map[int64]*teamStats, len(teams))
	ordered := make([]*teamStats, 0, len(teams))
	for _, team := range teams {
		if _, ok := stats[team.ID]; ok {
			continue
		}
		entry := &teamStats{
			TeamStanding: TeamStanding{
				TeamID:   team.ID,
				TeamName: team.Name,
			},
			headToHeadWins:      make(map[int64]int),
			headToHeadPointDiff: make(map[int64]int),
		}
		stats[team.ID] = entry
		ordered = append(ordered, entry)
	}

	for _, result := range results {
		if result.HomeScore == result.AwayScore {
			return nil, fmt.Errorf("match %d: %w", result.ID, ErrTiedMatch)
		}
		home, ok := stats[result.HomeTeamID]
		if !ok {
			return nil, fmt.Errorf("match %d references unknown team %d", result.ID, result.HomeTeamID)
		}
		away, ok := stats[result.AwayTeamID]
		if !ok {
			return nil, fmt.Errorf("match %d references unknown team %d", result.ID, result.AwayTeamID)
		}

		home.record(away.TeamID, result.HomeScore, result.AwayScore)
		away.record(home.TeamID, result.AwayScore, result.HomeScore)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Wins != ordered[j].Wins {
			return ordered[i].Wins > ordered[j].Wins
		}
		return ordered[i].TeamName < ordered[j].TeamName
	})

	sortStandingsByTiebreakers(ordered)

	standings := make([]TeamStanding, 0, len(ordered))
	for _, team := range ordered {
		standings = append(standings, team.TeamStanding)
	}
	return standings, nil
}

func (s *teamStats) record(opponentID int64, teamScore, opponentScore int) {
	s.MatchesPlayed++
	s.PointsFor += teamScore
	s.PointsAgainst += opponentScore
	s.PointDifferential = s.PointsFor - s.PointsAgainst

	if teamScore > opponentScore {
		s.Wins++
		s.headToHeadWins[opponentID]++
	} else {
		s.Losses++
	}
	s.headToHeadPointDiff[opponentID] += teamScore - opponentScore
}

// StandingsToRanked converts standings order into positional ranks.
func StandingsToRanked(standings []TeamStanding) []Team {
	ranked := make([]Team, 0, len(standings))
	for i, standing := range standings {
		ranked = append(ranked, Team{
			ID:   standing.TeamID,
			Name: standing.TeamName,
			Rank: i + 1,
		})
	}
	return ranked
}

func sortStandingsByTiebreakers(ordered []*teamStats) {
	if len(ordered) < 2 {
		return
	}

	start := 0
	for start < len(ordered) {
		end := start + 1
		for end < len(ordered) && ordered[end].Wins == ordered[start].Wins {
			end++
		}

		if end-start > 1 {
			group := ordered[start:end]
			groupSet := make(map[int64]struct{}, len(group))
			for _, team := range group {
				groupSet[team.TeamID] = struct{}{}
			}

			sort.SliceStable(group, func(i, j int) bool {
				headToHeadWinsI := headToHeadWins(group[i], groupSet)
				headToHeadWinsJ := headToHeadWins(group[j], groupSet)
				if headToHeadWinsI != headToHeadWinsJ {
					return headToHeadWinsI > headToHeadWinsJ
				}
				if group[i].PointDifferential != group[j].PointDifferential {
					return group[i].PointDifferential > group[j].PointDifferential
				}
				headToHeadDiffI := headToHeadPointDiff(group[i], groupSet)
				headToHeadDiffJ := headToHeadPointDiff(group[j], groupSet)
				if headToHeadDiffI != headToHeadDiffJ {
					return headToHeadDiffI > headToHeadDiffJ
				}
				return group[i].TeamName < group[j].TeamName
			})
		}

		start = end
	}
}

func headToHeadWins(team *teamStats, group map[int64]struct{}) int {
	total := 0
	for opponentID, wins := range team.headToHeadWins {
		if _, ok := group[opponentID]; ok {
			total += wins
		}
	}
	return total
}

func headToHeadPointDiff(team *teamStats, group map[int64]struct{}) int {
	total := 0
	for opponentID, diff := range team.headToHeadPointDiff {
		if _, ok := group[opponentID]; ok {
			total += diff
		}
	}
	return total
}
