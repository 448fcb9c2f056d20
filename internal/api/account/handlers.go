// internal/api/account/handlers.go
package account

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/api/authz"
	"github.com/codr1/leaguehub/internal/catalog"
	appdb "github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/payments"
	"github.com/codr1/leaguehub/internal/phone"
)

const (
	accountQueryTimeout = 5 * time.Second

	roleCaptain = "captain"
	roleMember  = "member"
)

var (
	queries       *appdb.Queries
	leagueCatalog *catalog.Catalog
)

// teamResponse resolves the team's league once. LeagueName is nil when the
// league is not in the catalog.
type teamResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	LeagueID   int64     `json:"leagueId"`
	LeagueName *string   `json:"leagueName"`
	Sport      *string   `json:"sport"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

// paymentResponse carries optional team and league links as nil-able fields.
type paymentResponse struct {
	ID                    int64     `json:"id"`
	LeagueID              int64     `json:"leagueId"`
	LeagueName            *string   `json:"leagueName"`
	TeamID                *int64    `json:"teamId"`
	TeamName              *string   `json:"teamName"`
	AmountDue             float64   `json:"amountDue"`
	AmountPaid            float64   `json:"amountPaid"`
	Outstanding           float64   `json:"outstanding"`
	Status                string    `json:"status"`
	StripePaymentIntentID *string   `json:"stripePaymentIntentId"`
	CreatedAt             time.Time `json:"createdAt"`
}

type profileRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

type profileResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone"`
	IsAdmin   bool    `json:"isAdmin"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cat *catalog.Catalog) {
	if database != nil {
		queries = database.Queries
	}
	leagueCatalog = cat
}

// GET /api/v1/account/teams
func HandleListTeams(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), accountQueryTimeout)
	defer cancel()

	teams, err := q.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list teams")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load teams")
		return
	}

	resp := make([]teamResponse, 0, len(teams))
	for _, team := range teams {
		role := roleMember
		if team.CaptainID == user.ID {
			role = roleCaptain
		}
		view := teamResponse{
			ID:        team.ID,
			Name:      team.Name,
			LeagueID:  team.LeagueID,
			Role:      role,
			CreatedAt: team.CreatedAt,
		}
		if league, ok := lookupLeague(team.LeagueID); ok {
			sport := string(league.Sport)
			view.LeagueName = &league.Name
			view.Sport = &sport
		}
		resp = append(resp, view)
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write teams response")
	}
}

// GET /api/v1/account/payments
func HandleListPayments(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), accountQueryTimeout)
	defer cancel()

	rows, err := q.ListPaymentsByUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list payments")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load payments")
		return
	}

	resp := make([]paymentResponse, 0, len(rows))
	for _, row := range rows {
		view := paymentResponse{
			ID:                    row.ID,
			LeagueID:              row.LeagueID,
			TeamID:                apiutil.NullInt64Ptr(row.TeamID),
			TeamName:              apiutil.NullStringPtr(row.TeamName),
			AmountDue:             row.AmountDue,
			AmountPaid:            row.AmountPaid,
			Outstanding:           payments.FromMinorUnits(payments.ToMinorUnits(payments.Outstanding(row.AmountDue, row.AmountPaid))),
			Status:                row.Status,
			StripePaymentIntentID: apiutil.NullStringPtr(row.StripePaymentIntentID),
			CreatedAt:             row.CreatedAt,
		}
		if league, ok := lookupLeague(row.LeagueID); ok {
			view.LeagueName = &league.Name
		}
		resp = append(resp, view)
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write payments response")
	}
}

// PUT /api/v1/account/profile
func HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var req profileRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := apiutil.Validate(r.Context(), req); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), accountQueryTimeout)
	defer cancel()

	current, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		if appdb.IsNotFound(err) {
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to load user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	// A missing phone keeps the stored value; an empty one clears it.
	phoneValue := current.Phone
	if req.Phone != nil {
		normalized, err := normalizePhoneField(*req.Phone)
		if err != nil {
			apiutil.WriteHandlerError(w, r, err)
			return
		}
		phoneValue = apiutil.ToNullString(normalized)
	}

	updated, err := q.UpdateUserProfile(ctx, appdb.UpdateUserProfileParams{
		ID:        user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     phoneValue,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to update profile")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	logger.Info().Msg("Profile updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, profileFromUser(updated)); err != nil {
		logger.Error().Err(err).Msg("Failed to write profile response")
	}
}

func normalizePhoneField(raw string) (string, error) {
	normalized, err := phone.NormalizeOptional(raw)
	if errors.Is(err, phone.ErrInvalidPhone) {
		return "", apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"}
	}
	return normalized, err
}

func profileFromUser(u appdb.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     apiutil.NullStringPtr(u.Phone),
		IsAdmin:   u.IsAdmin,
	}
}

func lookupLeague(id int64) (catalog.League, bool) {
	return leagueCatalog.Get(id)
}

func loadQueries() *appdb.Queries {
	return queries
}
