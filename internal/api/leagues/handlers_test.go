package leagues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/catalog"
	"github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/testutil"
)

func setup(t *testing.T) *db.DB {
	t.Helper()
	database := testutil.NewTestDB(t)
	InitHandlers(database, catalog.Default())
	t.Cleanup(func() {
		queries = nil
		leagueCatalog = nil
	})
	return database
}

func get(t *testing.T, handler http.HandlerFunc, target string, pathID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if pathID != "" {
		req.SetPathValue(leagueIDPathKey, pathID)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func leagueIDs(views []leagueView) []int64 {
	ids := make([]int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestHandleListLeagues(t *testing.T) {
	setup(t)

	tests := []struct {
		name       string
		query      string
		wantIDs    []int64
		wantActive bool
	}{
		{name: "no filters", query: "", wantIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "volleyball", query: "?sport=Volleyball", wantIDs: []int64{1, 2, 4, 9}, wantActive: true},
		{name: "volleyball central", query: "?sport=Volleyball&location=Central", wantIDs: []int64{1, 2}, wantActive: true},
		{name: "compound day", query: "?day=Thursday", wantIDs: []int64{4, 7}, wantActive: true},
		{name: "lowercase sport ignored", query: "?sport=volleyball", wantIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "unknown location ignored", query: "?location=Downtown", wantIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, HandleListLeagues, "/api/v1/leagues"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			resp := decode[leagueListResponse](t, rec)
			if got := fmt.Sprint(leagueIDs(resp.Leagues)); got != fmt.Sprint(tt.wantIDs) {
				t.Fatalf("expected ids %v, got %s", tt.wantIDs, got)
			}
			if resp.Total != len(tt.wantIDs) || resp.FiltersActive != tt.wantActive {
				t.Fatalf("unexpected total/active %d/%v", resp.Total, resp.FiltersActive)
			}
		})
	}
}

func TestHandleListLeaguesRegistrationState(t *testing.T) {
	setup(t)

	rec := get(t, HandleListLeagues, "/api/v1/leagues?sport=Volleyball&location=Central", "")
	resp := decode[leagueListResponse](t, rec)
	for _, league := range resp.Leagues {
		wantFull := league.SpotsRemaining == 0
		if league.IsFull != wantFull {
			t.Fatalf("league %d: isFull=%v with %d spots", league.ID, league.IsFull, league.SpotsRemaining)
		}
		if wantFull && league.Registration != registrationWaitlist {
			t.Fatalf("league %d: expected waitlist, got %q", league.ID, league.Registration)
		}
		if !wantFull && league.Registration != registrationOpen {
			t.Fatalf("league %d: expected open, got %q", league.ID, league.Registration)
		}
	}
}

func TestHandleFacets(t *testing.T) {
	setup(t)

	rec := get(t, HandleFacets, "/api/v1/leagues/facets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	facets := decode[map[string][]string](t, rec)
	if facets["sport"][0] != "All Sports" || len(facets["sport"]) != 5 {
		t.Fatalf("unexpected sport options %v", facets["sport"])
	}
	if facets["skillLevel"][0] != "All Skill Levels" || len(facets["day"]) != 8 {
		t.Fatalf("unexpected facets %v", facets)
	}
}

func TestHandleLeagueDetail(t *testing.T) {
	setup(t)

	rec := get(t, HandleLeagueDetail, "/api/v1/leagues/2", "2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	view := decode[leagueView](t, rec)
	if view.ID != 2 || !view.IsFull || view.Registration != registrationWaitlist {
		t.Fatalf("unexpected league view %+v", view)
	}

	if rec := get(t, HandleLeagueDetail, "/api/v1/leagues/99", "99"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := get(t, HandleLeagueDetail, "/api/v1/leagues/abc", "abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func seedLeague(t *testing.T, database *db.DB, leagueID int64, names ...string) []db.Team {
	t.Helper()
	captain := testutil.CreateUser(t, database, fmt.Sprintf("captain-%d", leagueID), fmt.Sprintf("captain%d@example.com", leagueID))
	teams := make([]db.Team, 0, len(names))
	for _, name := range names {
		teams = append(teams, testutil.CreateTeam(t, database, leagueID, name, captain.ID))
	}
	return teams
}

func recordMatch(t *testing.T, database *db.DB, leagueID int64, home, away db.Team, homeScore, awayScore int) {
	t.Helper()
	if _, err := database.Queries.CreateMatchResult(context.Background(), db.CreateMatchResultParams{
		LeagueID: leagueID, HomeTeamID: home.ID, AwayTeamID: away.ID, HomeScore: homeScore, AwayScore: awayScore,
	}); err != nil {
		t.Fatalf("CreateMatchResult: %v", err)
	}
}

func TestHandleLeagueStandings(t *testing.T) {
	database := setup(t)
	teams := seedLeague(t, database, 1, "Alpha", "Bravo", "Charlie")
	recordMatch(t, database, 1, teams[1], teams[0], 25, 20)
	recordMatch(t, database, 1, teams[1], teams[2], 25, 10)
	recordMatch(t, database, 1, teams[0], teams[2], 25, 23)

	rec := get(t, HandleLeagueStandings, "/api/v1/leagues/1/standings", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[standingsResponse](t, rec)
	if len(resp.Standings) != 3 {
		t.Fatalf("expected 3 standings, got %d", len(resp.Standings))
	}
	order := []string{resp.Standings[0].TeamName, resp.Standings[1].TeamName, resp.Standings[2].TeamName}
	if fmt.Sprint(order) != "[Bravo Alpha Charlie]" {
		t.Fatalf("unexpected order %v", order)
	}
	if resp.Standings[0].Wins != 2 || resp.Standings[0].PointDifferential != 20 {
		t.Fatalf("unexpected leader %+v", resp.Standings[0])
	}

	empty := get(t, HandleLeagueStandings, "/api/v1/leagues/3/standings", "3")
	if empty.Code != http.StatusOK {
		t.Fatalf("expected 200 for a league without teams, got %d", empty.Code)
	}
	if resp := decode[standingsResponse](t, empty); resp.Standings == nil || len(resp.Standings) != 0 {
		t.Fatalf("expected empty standings list, got %#v", resp.Standings)
	}
}

func TestHandleLeagueStandingsRejectsTiedResult(t *testing.T) {
	database := setup(t)
	teams := seedLeague(t, database, 1, "Alpha", "Bravo")
	recordMatch(t, database, 1, teams[0], teams[1], 21, 21)

	rec := get(t, HandleLeagueStandings, "/api/v1/leagues/1/standings", "1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a tied result, got %d", rec.Code)
	}
}

func TestHandleLeagueSchedule(t *testing.T) {
	database := setup(t)
	names := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		names = append(names, fmt.Sprintf("Team %d", i))
	}
	seedLeague(t, database, 4, names...)

	rec := get(t, HandleLeagueSchedule, "/api/v1/leagues/4/schedule", "4")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[scheduleResponse](t, rec)
	if resp.TierSize != 3 || resp.MaxTiers != 5 || len(resp.Tiers) != 3 || resp.Unscheduled != 0 {
		t.Fatalf("unexpected schedule %+v", resp)
	}
	last := resp.Tiers[2]
	if last.Slot("A") == nil || last.Slot("B") != nil || last.Slot("C") != nil {
		t.Fatalf("expected only slot A filled in last tier, got %+v", last.Slots)
	}
	if len(resp.Tiers[0].Matchups) != 3 || len(last.Matchups) != 0 {
		t.Fatalf("unexpected matchups %d/%d", len(resp.Tiers[0].Matchups), len(last.Matchups))
	}
	if resp.Tiers[0].Court != "Court 1" || resp.Tiers[2].Court != "Court 3" {
		t.Fatalf("unexpected courts %q %q", resp.Tiers[0].Court, resp.Tiers[2].Court)
	}

	capped := decode[scheduleResponse](t, get(t, HandleLeagueSchedule, "/api/v1/leagues/4/schedule?tierSize=2&maxTiers=2", "4"))
	if len(capped.Tiers) != 2 || capped.Unscheduled != 3 {
		t.Fatalf("expected 2 tiers with 3 unscheduled, got %d/%d", len(capped.Tiers), capped.Unscheduled)
	}

	if rec := get(t, HandleLeagueSchedule, "/api/v1/leagues/4/schedule?tierSize=0", "4"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid tierSize, got %d", rec.Code)
	}
}

func TestHandleLeagueScheduleRejectsOversizedParams(t *testing.T) {
	database := setup(t)
	seedLeague(t, database, 1, "Lone Team")

	tests := []struct {
		query   string
		wantMsg string
	}{
		{"tierSize=20000000", "tierSize must be at most 26"},
		{"tierSize=27", "tierSize must be at most 26"},
		{"maxTiers=1000000", "maxTiers must be at most 20"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, HandleLeagueSchedule, "/api/v1/leagues/1/schedule?"+tt.query, "1")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decode[apiutil.ErrorResponse](t, rec); got.Error != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, got.Error)
			}
		})
	}

	rec := get(t, HandleLeagueSchedule, "/api/v1/leagues/1/schedule?tierSize=26&maxTiers=20", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 at the limits, got %d", rec.Code)
	}
	if resp := decode[scheduleResponse](t, rec); len(resp.Tiers) != 1 || len(resp.Tiers[0].Slots) != 26 {
		t.Fatalf("unexpected schedule at the limits %+v", resp)
	}
}

func TestHandlersWithoutInit(t *testing.T) {
	queries = nil
	leagueCatalog = nil

	if rec := get(t, HandleListLeagues, "/api/v1/leagues", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a catalog, got %d", rec.Code)
	}

	leagueCatalog = catalog.Default()
	t.Cleanup(func() { leagueCatalog = nil })
	if rec := get(t, HandleLeagueStandings, "/api/v1/leagues/1/standings", "1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a database, got %d", rec.Code)
	}
}
