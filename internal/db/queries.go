package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Queries runs hand-written SQL against a connection or transaction.
// Statements use `?` placeholders and are rebound for the driver.
type Queries struct {
	db sqlx.ExtContext
}

func NewQueries(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

func (q *Queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.db, dest, q.db.Rebind(query), args...)
}

func (q *Queries) list(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.db, dest, q.db.Rebind(query), args...)
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.db.Rebind(query), args...)
}

// insertID runs an INSERT ... RETURNING id and returns the new key.
func (q *Queries) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := q.get(ctx, &id, query+` RETURNING id`, args...); err != nil {
		return 0, err
	}
	return id, nil
}

// execOne runs an update that must affect exactly one row.
func (q *Queries) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const userColumns = `id, auth_id, email, first_name, last_name, phone, is_admin, stripe_customer_id, created_at, updated_at`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return u, err
}

func (q *Queries) GetUserByAuthID(ctx context.Context, authID string) (User, error) {
	var u User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE auth_id = ?`, authID)
	return u, err
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	err := q.list(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY last_name, first_name, id`)
	return users, err
}

type CreateUserParams struct {
	AuthID    string
	Email     string
	FirstName string
	LastName  string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	id, err := q.insertID(ctx, `
		INSERT INTO users (auth_id, email, first_name, last_name)
		VALUES (?, ?, ?, ?)`,
		arg.AuthID, arg.Email, arg.FirstName, arg.LastName,
	)
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

type UpdateUserProfileParams struct {
	ID        int64
	FirstName string
	LastName  string
	Phone     sql.NullString
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	err := q.execOne(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, phone = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		arg.FirstName, arg.LastName, arg.Phone, arg.ID,
	)
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, arg.ID)
}

func (q *Queries) SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return q.execOne(ctx, `UPDATE users SET is_admin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, isAdmin, id)
}

func (q *Queries) SetUserStripeCustomerID(ctx context.Context, id int64, customerID string) error {
	return q.execOne(ctx, `UPDATE users SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, customerID, id)
}

const teamColumns = `id, league_id, name, captain_id, created_at`

func (q *Queries) GetTeam(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := q.get(ctx, &t, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)
	return t, err
}

type CreateTeamParams struct {
	LeagueID  int64
	Name      string
	CaptainID int64
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	id, err := q.insertID(ctx, `
		INSERT INTO teams (league_id, name, captain_id)
		VALUES (?, ?, ?)`,
		arg.LeagueID, arg.Name, arg.CaptainID,
	)
	if err != nil {
		return Team{}, err
	}
	return q.GetTeam(ctx, id)
}

func (q *Queries) AddTeamMember(ctx context.Context, teamID, userID int64) error {
	_, err := q.exec(ctx, `
		INSERT INTO team_members (team_id, user_id)
		VALUES (?, ?)
		ON CONFLICT (team_id, user_id) DO NOTHING`,
		teamID, userID,
	)
	return err
}

// ListTeamsByLeague returns teams in registration order.
func (q *Queries) ListTeamsByLeague(ctx context.Context, leagueID int64) ([]Team, error) {
	teams := []Team{}
	err := q.list(ctx, &teams, `SELECT `+teamColumns+` FROM teams WHERE league_id = ? ORDER BY created_at, id`, leagueID)
	return teams, err
}

// ListTeamsForUser returns teams the user captains or belongs to.
func (q *Queries) ListTeamsForUser(ctx context.Context, userID int64) ([]Team, error) {
	teams := []Team{}
	err := q.list(ctx, &teams, `
		SELECT `+teamColumns+` FROM teams
		WHERE captain_id = ?
		   OR id IN (SELECT team_id FROM team_members WHERE user_id = ?)
		ORDER BY created_at, id`,
		userID, userID,
	)
	return teams, err
}

const matchColumns = `id, league_id, home_team_id, away_team_id, home_score, away_score, played_at`

func (q *Queries) ListMatchResultsByLeague(ctx context.Context, leagueID int64) ([]LeagueMatch, error) {
	matches := []LeagueMatch{}
	err := q.list(ctx, &matches, `SELECT `+matchColumns+` FROM league_matches WHERE league_id = ? ORDER BY played_at, id`, leagueID)
	return matches, err
}

type CreateMatchResultParams struct {
	LeagueID   int64
	HomeTeamID int64
	AwayTeamID int64
	HomeScore  int
	AwayScore  int
}

func (q *Queries) CreateMatchResult(ctx context.Context, arg CreateMatchResultParams) (LeagueMatch, error) {
	id, err := q.insertID(ctx, `
		INSERT INTO league_matches (league_id, home_team_id, away_team_id, home_score, away_score)
		VALUES (?, ?, ?, ?, ?)`,
		arg.LeagueID, arg.HomeTeamID, arg.AwayTeamID, arg.HomeScore, arg.AwayScore,
	)
	if err != nil {
		return LeagueMatch{}, err
	}
	var m LeagueMatch
	err = q.get(ctx, &m, `SELECT `+matchColumns+` FROM league_matches WHERE id = ?`, id)
	return m, err
}

const paymentColumns = `id, user_id, team_id, league_id, amount_due, amount_paid, status, stripe_payment_intent_id, created_at, updated_at`

func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := q.get(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	return p, err
}

func (q *Queries) ListPaymentsByUser(ctx context.Context, userID int64) ([]PaymentWithTeam, error) {
	payments := []PaymentWithTeam{}
	err := q.list(ctx, &payments, `
		SELECT p.id, p.user_id, p.team_id, p.league_id, p.amount_due, p.amount_paid, p.status,
		       p.stripe_payment_intent_id, p.created_at, p.updated_at, t.name AS team_name
		FROM payments p
		LEFT JOIN teams t ON t.id = p.team_id
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC, p.id DESC`,
		userID,
	)
	return payments, err
}

type CreatePaymentParams struct {
	UserID     int64
	TeamID     sql.NullInt64
	LeagueID   int64
	AmountDue  float64
	AmountPaid float64
	Status     string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	status := arg.Status
	if status == "" {
		status = PaymentStatusPending
	}
	id, err := q.insertID(ctx, `
		INSERT INTO payments (user_id, team_id, league_id, amount_due, amount_paid, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.TeamID, arg.LeagueID, arg.AmountDue, arg.AmountPaid, status,
	)
	if err != nil {
		return Payment{}, err
	}
	return q.GetPayment(ctx, id)
}

func (q *Queries) SetPaymentIntent(ctx context.Context, id int64, intentID string) error {
	return q.execOne(ctx, `UPDATE payments SET stripe_payment_intent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, intentID, id)
}

const inviteColumns = `id, team_id, email, invited_by, status, created_at`

func (q *Queries) GetPendingInvite(ctx context.Context, teamID int64, email string) (TeamInvite, error) {
	var inv TeamInvite
	err := q.get(ctx, &inv, `
		SELECT `+inviteColumns+` FROM team_invites
		WHERE team_id = ? AND email = ? AND status = ?
		ORDER BY id LIMIT 1`,
		teamID, email, InviteStatusPending,
	)
	return inv, err
}

type CreateTeamInviteParams struct {
	TeamID    int64
	Email     string
	InvitedBy int64
}

// ErrPendingInviteExists is returned by CreateTeamInvite when the team
// already has a pending invite for the email.
var ErrPendingInviteExists = errors.New("pending invite already exists")

// CreateTeamInvite inserts a pending invite. The partial unique index on
// pending (team_id, email) rows makes concurrent inserts for the same
// recipient yield one row; the losers get ErrPendingInviteExists.
func (q *Queries) CreateTeamInvite(ctx context.Context, arg CreateTeamInviteParams) (TeamInvite, error) {
	id, err := q.insertID(ctx, `
		INSERT INTO team_invites (team_id, email, invited_by, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (team_id, email) WHERE status = 'pending' DO NOTHING`,
		arg.TeamID, arg.Email, arg.InvitedBy, InviteStatusPending,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TeamInvite{}, ErrPendingInviteExists
		}
		return TeamInvite{}, err
	}
	var inv TeamInvite
	err = q.get(ctx, &inv, `SELECT `+inviteColumns+` FROM team_invites WHERE id = ?`, id)
	return inv, err
}

// ExpirePendingInvites marks pending invites created before the cutoff as
// expired and returns how many changed.
func (q *Queries) ExpirePendingInvites(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := q.exec(ctx, `
		UPDATE team_invites SET status = ?
		WHERE status = ? AND created_at < ?`,
		InviteStatusExpired, InviteStatusPending, createdBefore.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UpsertProductParams struct {
	ID          string
	PriceID     string
	Name        string
	Description string
	Mode        string
	Price       float64
	Currency    string
	Interval    sql.NullString
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) error {
	_, err := q.exec(ctx, `
		INSERT INTO products (id, price_id, name, description, mode, price, currency, billing_interval, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			price_id = excluded.price_id,
			name = excluded.name,
			description = excluded.description,
			mode = excluded.mode,
			price = excluded.price,
			currency = excluded.currency,
			billing_interval = excluded.billing_interval,
			updated_at = CURRENT_TIMESTAMP`,
		arg.ID, arg.PriceID, arg.Name, arg.Description, arg.Mode, arg.Price, arg.Currency, arg.Interval,
	)
	return err
}

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	products := []Product{}
	err := q.list(ctx, &products, `
		SELECT id, price_id, name, description, mode, price, currency, billing_interval, updated_at
		FROM products ORDER BY name, id`)
	return products, err
}
