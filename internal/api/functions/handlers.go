// internal/api/functions/handlers.go
package functions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/api/authz"
	"github.com/codr1/leaguehub/internal/invites"
	"github.com/codr1/leaguehub/internal/metrics"
	"github.com/codr1/leaguehub/internal/payments"
	"github.com/codr1/leaguehub/internal/ratelimit"
)

const sdkTimeout = 10 * time.Second

// Deps are the services behind the function endpoints. Intents and Products
// are nil when the payment processor is not configured.
type Deps struct {
	Invites    *invites.Service
	Intents    *payments.IntentService
	Products   *payments.ProductSyncer
	Metrics    *metrics.Recorder
	TrustProxy bool
}

var deps Deps

type paymentIntentRequest struct {
	PaymentID int64 `json:"payment_id" validate:"required,gt=0"`
}

type syncProductsResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Products []payments.Product `json:"products"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(d Deps) {
	deps = d
}

// POST /api/v1/functions/send-invite
func HandleSendInvite(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodPost {
		apiutil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	caller, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	if deps.Invites == nil {
		logger.Error().Msg("Invite service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var req invites.Request
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := apiutil.Validate(r.Context(), req); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	clientIP := ratelimit.GetClientIP(r, deps.TrustProxy)
	result, err := deps.Invites.Send(r.Context(), caller, req, clientIP)
	if err != nil {
		var limited *invites.RateLimitedError
		switch {
		case errors.As(err, &limited):
			w.Header().Set("Retry-After", retryAfterSeconds(limited.RetryAfter))
			apiutil.WriteError(w, http.StatusTooManyRequests, "Too many invites, please try again later")
		case errors.Is(err, invites.ErrNotCaptain):
			apiutil.WriteError(w, http.StatusForbidden, "Only the team captain can send invites")
		case errors.Is(err, invites.ErrTeamNotFound):
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
		case errors.Is(err, invites.ErrEmailNotConfigured):
			apiutil.WriteError(w, http.StatusInternalServerError, "Email service not configured")
		case errors.Is(err, invites.ErrEmailFailed):
			apiutil.WriteError(w, http.StatusInternalServerError, "Failed to send invitation email")
		default:
			apiutil.WriteHandlerError(w, r, err)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error().Err(err).Msg("Failed to write invite response")
	}
}

// POST /api/v1/functions/create-payment-intent
func HandleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodPost {
		apiutil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	caller, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	if deps.Intents == nil {
		logger.Error().Msg("Payment processor not configured")
		apiutil.WriteError(w, http.StatusInternalServerError, "Payment service not configured")
		return
	}

	var req paymentIntentRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := apiutil.Validate(r.Context(), req); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	logger = logger.With().Int64("payment_id", req.PaymentID).Logger()
	ctx, cancel := context.WithTimeout(logger.WithContext(r.Context()), sdkTimeout)
	defer cancel()

	intent, err := deps.Intents.CreateIntent(ctx, caller.ID, req.PaymentID)
	if err != nil {
		deps.Metrics.PaymentIntent(metrics.ResultFailure)
		switch {
		case errors.Is(err, payments.ErrAlreadySettled):
			apiutil.WriteError(w, http.StatusBadRequest, "Payment is already settled")
		case errors.Is(err, payments.ErrNotOwner):
			apiutil.WriteError(w, http.StatusForbidden, "Forbidden")
		case errors.Is(err, payments.ErrPaymentNotFound):
			apiutil.WriteError(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, payments.ErrUserNotFound):
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
		default:
			logger.Error().Err(err).Msg("Failed to create payment intent")
			apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create payment intent")
		}
		return
	}

	deps.Metrics.PaymentIntent(metrics.ResultSuccess)
	logger.Info().Str("payment_intent_id", intent.ID).Msg("Payment intent created")
	if err := apiutil.WriteJSON(w, http.StatusOK, intent); err != nil {
		logger.Error().Err(err).Msg("Failed to write payment intent response")
	}
}

// GET|POST /api/v1/functions/sync-products
func HandleSyncProducts(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		apiutil.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	if _, err := authz.RequireAdmin(r.Context()); err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	if deps.Products == nil {
		logger.Error().Msg("Payment processor not configured")
		apiutil.WriteError(w, http.StatusInternalServerError, "Payment service not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sdkTimeout)
	defer cancel()

	products, err := deps.Products.Sync(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Product sync failed")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to sync products")
		return
	}

	resp := syncProductsResponse{
		Success:  true,
		Message:  fmt.Sprintf("Synced %d products", len(products)),
		Products: products,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write sync response")
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
