// internal/api/admin/handlers.go
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/api/authz"
	appdb "github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/phone"
)

const adminQueryTimeout = 5 * time.Second

var store *appdb.DB

type userResponse struct {
	ID        int64     `json:"id"`
	AuthID    string    `json:"authId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// updateUserRequest leaves any omitted field unchanged.
type updateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	IsAdmin   *bool   `json:"isAdmin"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	store = database
}

// GET /api/v1/admin/users
func HandleListUsers(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if _, err := authz.RequireAdmin(r.Context()); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	database := loadStore()
	if database == nil {
		logger.Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	users, err := database.Queries.ListUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load users")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userFromRow(u))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write users response")
	}
}

// PATCH /api/v1/admin/users/{id}
func HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	caller, err := authz.RequireAdmin(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	database := loadStore()
	if database == nil {
		logger.Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	userID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req updateUserRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := apiutil.Validate(r.Context(), req); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	logger = logger.With().Int64("target_user_id", userID).Logger()
	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	current, err := database.Queries.GetUserByID(ctx, userID)
	if err != nil {
		if appdb.IsNotFound(err) {
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to load user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if req.IsAdmin != nil && !*req.IsAdmin && userID == caller.ID {
		apiutil.WriteError(w, http.StatusBadRequest, "Cannot remove your own admin access")
		return
	}

	params := appdb.UpdateUserProfileParams{
		ID:        current.ID,
		FirstName: current.FirstName,
		LastName:  current.LastName,
		Phone:     current.Phone,
	}
	if req.FirstName != nil {
		if params.FirstName = strings.TrimSpace(*req.FirstName); params.FirstName == "" {
			apiutil.WriteHandlerError(w, r, apiutil.FieldError{Field: "firstName", Reason: "is required"})
			return
		}
	}
	if req.LastName != nil {
		if params.LastName = strings.TrimSpace(*req.LastName); params.LastName == "" {
			apiutil.WriteHandlerError(w, r, apiutil.FieldError{Field: "lastName", Reason: "is required"})
			return
		}
	}
	if req.Phone != nil {
		normalized, err := phone.NormalizeOptional(*req.Phone)
		if err != nil {
			if errors.Is(err, phone.ErrInvalidPhone) {
				apiutil.WriteHandlerError(w, r, apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"})
				return
			}
			logger.Error().Err(err).Msg("Failed to normalize phone")
			apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		params.Phone = apiutil.ToNullString(normalized)
	}

	var updated appdb.User
	err = database.RunInTx(ctx, func(tx *appdb.DB) error {
		var err error
		updated, err = tx.Queries.UpdateUserProfile(ctx, params)
		if err != nil {
			return err
		}
		if req.IsAdmin != nil && *req.IsAdmin != updated.IsAdmin {
			if err := tx.Queries.SetUserAdmin(ctx, updated.ID, *req.IsAdmin); err != nil {
				return err
			}
			updated.IsAdmin = *req.IsAdmin
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to update user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	logger.Info().Bool("is_admin", updated.IsAdmin).Msg("User updated by admin")
	if err := apiutil.WriteJSON(w, http.StatusOK, userFromRow(updated)); err != nil {
		logger.Error().Err(err).Msg("Failed to write user response")
	}
}

func userFromRow(u appdb.User) userResponse {
	return userResponse{
		ID:        u.ID,
		AuthID:    u.AuthID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     apiutil.NullStringPtr(u.Phone),
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func loadStore() *appdb.DB {
	return store
}
