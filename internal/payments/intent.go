package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/db"
)

// IntentStore is the data access needed to create payment intents.
type IntentStore interface {
	GetPayment(ctx context.Context, id int64) (db.Payment, error)
	GetUserByID(ctx context.Context, id int64) (db.User, error)
	SetUserStripeCustomerID(ctx context.Context, id int64, customerID string) error
	SetPaymentIntent(ctx context.Context, id int64, intentID string) error
}

type IntentService struct {
	store     IntentStore
	processor Processor
	currency  string
}

func NewIntentService(store IntentStore, processor Processor, currency string) *IntentService {
	return &IntentService{
		store:     store,
		processor: processor,
		currency:  strings.ToLower(currency),
	}
}

// CreateIntent opens a payment intent for the outstanding balance of
// paymentID on behalf of userID.
func (s *IntentService) CreateIntent(ctx context.Context, userID, paymentID int64) (Intent, error) {
	logger := log.Ctx(ctx).With().Int64("payment_id", paymentID).Logger()

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return Intent{}, ErrPaymentNotFound
		}
		return Intent{}, fmt.Errorf("load payment: %w", err)
	}
	if payment.UserID != userID {
		return Intent{}, ErrNotOwner
	}

	amount := ToMinorUnits(Outstanding(payment.AmountDue, payment.AmountPaid))
	if amount <= 0 {
		return Intent{}, ErrAlreadySettled
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return Intent{}, ErrUserNotFound
		}
		return Intent{}, fmt.Errorf("load user: %w", err)
	}

	customerID, err := s.customerFor(ctx, user)
	if err != nil {
		return Intent{}, err
	}

	metadata := map[string]string{
		"payment_id": strconv.FormatInt(payment.ID, 10),
		"league_id":  strconv.FormatInt(payment.LeagueID, 10),
		"user_id":    strconv.FormatInt(user.ID, 10),
		"team_id":    "",
	}
	if payment.TeamID.Valid {
		metadata["team_id"] = strconv.FormatInt(payment.TeamID.Int64, 10)
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, IntentParams{
		Amount:     amount,
		Currency:   s.currency,
		CustomerID: customerID,
		Metadata:   metadata,
	})
	if err != nil {
		return Intent{}, err
	}

	if err := s.store.SetPaymentIntent(ctx, payment.ID, intent.ID); err != nil {
		return Intent{}, fmt.Errorf("store payment intent: %w", err)
	}

	logger.Info().
		Str("payment_intent_id", intent.ID).
		Int64("amount", amount).
		Str("currency", s.currency).
		Msg("Created payment intent")
	return intent, nil
}

func (s *IntentService) customerFor(ctx context.Context, user db.User) (string, error) {
	if user.StripeCustomerID.Valid && user.StripeCustomerID.String != "" {
		return user.StripeCustomerID.String, nil
	}

	customerID, err := s.processor.CreateCustomer(ctx, CustomerParams{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
	})
	if err != nil {
		return "", err
	}
	if err := s.store.SetUserStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}

	log.Ctx(ctx).Info().
		Int64("user_id", user.ID).
		Str("customer_id", customerID).
		Msg("Created payment customer")
	return customerID, nil
}
