package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID               int64          `db:"id"`
	AuthID           string         `db:"auth_id"`
	Email            string         `db:"email"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Phone            sql.NullString `db:"phone"`
	IsAdmin          bool           `db:"is_admin"`
	StripeCustomerID sql.NullString `db:"stripe_customer_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type Team struct {
	ID        int64     `db:"id"`
	LeagueID  int64     `db:"league_id"`
	Name      string    `db:"name"`
	CaptainID int64     `db:"captain_id"`
	CreatedAt time.Time `db:"created_at"`
}

type LeagueMatch struct {
	ID         int64     `db:"id"`
	LeagueID   int64     `db:"league_id"`
	HomeTeamID int64     `db:"home_team_id"`
	AwayTeamID int64     `db:"away_team_id"`
	HomeScore  int       `db:"home_score"`
	AwayScore  int       `db:"away_score"`
	PlayedAt   time.Time `db:"played_at"`
}

const (
	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

type Payment struct {
	ID                    int64          `db:"id"`
	UserID                int64          `db:"user_id"`
	TeamID                sql.NullInt64  `db:"team_id"`
	LeagueID              int64          `db:"league_id"`
	AmountDue             float64        `db:"amount_due"`
	AmountPaid            float64        `db:"amount_paid"`
	Status                string         `db:"status"`
	StripePaymentIntentID sql.NullString `db:"stripe_payment_intent_id"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

// PaymentWithTeam is a payment joined with the name of its team, when linked.
type PaymentWithTeam struct {
	Payment
	TeamName sql.NullString `db:"team_name"`
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

type TeamInvite struct {
	ID        int64     `db:"id"`
	TeamID    int64     `db:"team_id"`
	Email     string    `db:"email"`
	InvitedBy int64     `db:"invited_by"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type Product struct {
	ID          string         `db:"id"`
	PriceID     string         `db:"price_id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Mode        string         `db:"mode"`
	Price       float64        `db:"price"`
	Currency    string         `db:"currency"`
	Interval    sql.NullString `db:"billing_interval"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
