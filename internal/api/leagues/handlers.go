// internal/api/leagues/handlers.go
package leagues

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/catalog"
	appdb "github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/filters"
	leaguescheduler "github.com/codr1/leaguehub/internal/leagues"
)

const (
	leagueQueryTimeout = 5 * time.Second
	leagueIDPathKey    = "id"

	registrationOpen     = "open"
	registrationWaitlist = "waitlist"
)

var (
	queries       *appdb.Queries
	leagueCatalog *catalog.Catalog
)

// leagueView is a catalog league plus its derived registration state.
type leagueView struct {
	catalog.League
	IsFull       bool   `json:"isFull"`
	Registration string `json:"registration"`
}

type leagueListResponse struct {
	Leagues       []leagueView  `json:"leagues"`
	Filters       filters.State `json:"filters"`
	FiltersActive bool          `json:"filtersActive"`
	Total         int           `json:"total"`
}

type standingsResponse struct {
	LeagueID  int64                          `json:"leagueId"`
	Standings []leaguescheduler.TeamStanding `json:"standings"`
}

type tierView struct {
	leaguescheduler.Tier
	Matchups []leaguescheduler.Matchup `json:"matchups"`
}

type scheduleResponse struct {
	LeagueID    int64      `json:"leagueId"`
	TierSize    int        `json:"tierSize"`
	MaxTiers    int        `json:"maxTiers"`
	Tiers       []tierView `json:"tiers"`
	Unscheduled int        `json:"unscheduled"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cat *catalog.Catalog) {
	if database != nil {
		queries = database.Queries
	}
	leagueCatalog = cat
}

// GET /api/v1/leagues
func HandleListLeagues(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	cat := loadCatalog()
	if cat == nil {
		logger.Error().Msg("League catalog not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	state := filters.FromQuery(r.URL.Query())
	visible := filters.Apply(cat.All(), state)

	views := make([]leagueView, 0, len(visible))
	for _, league := range visible {
		views = append(views, newLeagueView(league))
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, leagueListResponse{
		Leagues:       views,
		Filters:       state,
		FiltersActive: state.IsAnyActive(),
		Total:         len(views),
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write leagues response")
	}
}

// GET /api/v1/leagues/facets
func HandleFacets(w http.ResponseWriter, r *http.Request) {
	facets := make(map[filters.Facet][]string, len(filters.Facets))
	for _, facet := range filters.Facets {
		facets[facet] = filters.Options(facet)
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, facets); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write facets response")
	}
}

// GET /api/v1/leagues/{id}
func HandleLeagueDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	league, ok := leagueFromRequest(w, r)
	if !ok {
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newLeagueView(league)); err != nil {
		logger.Error().Err(err).Int64("league_id", league.ID).Msg("Failed to write league response")
	}
}

// GET /api/v1/leagues/{id}/standings
func HandleLeagueStandings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	league, ok := leagueFromRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	standings, err := loadStandings(ctx, league.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, standingsResponse{
		LeagueID:  league.ID,
		Standings: standings,
	}); err != nil {
		logger.Error().Err(err).Int64("league_id", league.ID).Msg("Failed to write standings response")
	}
}

// GET /api/v1/leagues/{id}/schedule
func HandleLeagueSchedule(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	tierSize, err := apiutil.QueryIntMax(r, "tierSize", leaguescheduler.DefaultTierSize, leaguescheduler.MaxTierSize)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}
	maxTiers, err := apiutil.QueryIntMax(r, "maxTiers", leaguescheduler.DefaultMaxTiers, leaguescheduler.MaxTierCount)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	league, ok := leagueFromRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	standings, err := loadStandings(ctx, league.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	ranked := leaguescheduler.StandingsToRanked(standings)
	tiers := leaguescheduler.GenerateTiers(ranked, tierSize, maxTiers)

	scheduled := 0
	views := make([]tierView, 0, len(tiers))
	for _, tier := range tiers {
		scheduled += len(tier.Teams())
		matchups := tier.Matchups()
		if matchups == nil {
			matchups = []leaguescheduler.Matchup{}
		}
		views = append(views, tierView{Tier: tier, Matchups: matchups})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, scheduleResponse{
		LeagueID:    league.ID,
		TierSize:    tierSize,
		MaxTiers:    maxTiers,
		Tiers:       views,
		Unscheduled: len(ranked) - scheduled,
	}); err != nil {
		logger.Error().Err(err).Int64("league_id", league.ID).Msg("Failed to write schedule response")
	}
}

func newLeagueView(league catalog.League) leagueView {
	registration := registrationOpen
	if league.IsFull() {
		registration = registrationWaitlist
	}
	return leagueView{
		League:       league,
		IsFull:       league.IsFull(),
		Registration: registration,
	}
}

// leagueFromRequest resolves the {id} path value against the catalog and
// writes the error response when it cannot.
func leagueFromRequest(w http.ResponseWriter, r *http.Request) (catalog.League, bool) {
	cat := loadCatalog()
	if cat == nil {
		log.Ctx(r.Context()).Error().Msg("League catalog not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return catalog.League{}, false
	}

	leagueID, err := apiutil.PathID(r, leagueIDPathKey)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid league ID")
		return catalog.League{}, false
	}

	league, ok := cat.Get(leagueID)
	if !ok {
		apiutil.WriteError(w, http.StatusNotFound, "League not found")
		return catalog.League{}, false
	}
	return league, true
}

func loadStandings(ctx context.Context, leagueID int64) ([]leaguescheduler.TeamStanding, error) {
	logger := log.Ctx(ctx)

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		return nil, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Internal server error"}
	}

	teams, err := q.ListTeamsByLeague(ctx, leagueID)
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list league teams")
		return nil, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load standings", Err: err}
	}
	matches, err := q.ListMatchResultsByLeague(ctx, leagueID)
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list league matches")
		return nil, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load standings", Err: err}
	}

	standingsTeams := make([]leaguescheduler.StandingsTeam, 0, len(teams))
	for _, team := range teams {
		standingsTeams = append(standingsTeams, leaguescheduler.StandingsTeam{ID: team.ID, Name: team.Name})
	}
	results := make([]leaguescheduler.MatchResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, leaguescheduler.MatchResult{
			ID:         match.ID,
			HomeTeamID: match.HomeTeamID,
			AwayTeamID: match.AwayTeamID,
			HomeScore:  match.HomeScore,
			AwayScore:  match.AwayScore,
		})
	}

	standings, err := leaguescheduler.CalculateStandings(standingsTeams, results)
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to compute standings")
		return nil, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to compute standings", Err: err}
	}
	if standings == nil {
		standings = []leaguescheduler.TeamStanding{}
	}
	return standings, nil
}

func loadQueries() *appdb.Queries {
	return queries
}

func loadCatalog() *catalog.Catalog {
	return leagueCatalog
}
