package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codr1/leaguehub/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// CreateUser inserts a user with the given auth id and email.
func CreateUser(t *testing.T, database *db.DB, authID, email string) db.User {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{
		AuthID:    authID,
		Email:     email,
		FirstName: "Test",
		LastName:  authID,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", authID, err)
	}
	return user
}

// CreateTeam inserts a team captained by captainID.
func CreateTeam(t *testing.T, database *db.DB, leagueID int64, name string, captainID int64) db.Team {
	t.Helper()

	team, err := database.Queries.CreateTeam(context.Background(), db.CreateTeamParams{
		LeagueID:  leagueID,
		Name:      name,
		CaptainID: captainID,
	})
	if err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return team
}
