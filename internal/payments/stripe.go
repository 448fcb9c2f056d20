package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeProcessor implements Processor against the Stripe API.
type StripeProcessor struct {
	api *client.API
}

var _ Processor = (*StripeProcessor)(nil)

// NewStripeProcessor returns a processor authenticated with secretKey.
func NewStripeProcessor(secretKey string) (*StripeProcessor, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProcessor{api: sc}, nil
}

func (s *StripeProcessor) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
	}
	if p.Name != "" {
		params.Name = stripe.String(p.Name)
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(p.UserID, 10))

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return customer.ID, nil
}

func (s *StripeProcessor) CreatePaymentIntent(ctx context.Context, p IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		Customer: stripe.String(p.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create stripe payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeProcessor) ListActiveProducts(ctx context.Context) ([]Product, error) {
	params := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.default_price")

	var products []Product
	it := s.api.Products.List(params)
	for it.Next() {
		if product, ok := ProjectProduct(it.Product()); ok {
			products = append(products, product)
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list stripe products: %w", err)
	}
	return products, nil
}

// ProjectProduct normalizes a Stripe product. Products without an expanded
// default price are skipped.
func ProjectProduct(p *stripe.Product) (Product, bool) {
	if p == nil || p.DefaultPrice == nil || p.DefaultPrice.ID == "" {
		return Product{}, false
	}
	price := p.DefaultPrice

	product := Product{
		ID:          p.ID,
		PriceID:     price.ID,
		Name:        p.Name,
		Description: p.Description,
		Mode:        ModePayment,
		Price:       FromMinorUnits(price.UnitAmount),
		Currency:    string(price.Currency),
	}
	if price.Recurring != nil {
		interval := string(price.Recurring.Interval)
		product.Mode = ModeSubscription
		product.Interval = &interval
	}
	return product, true
}
