package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"regexp"
	"strings"

	extErrors "github.com/pkg/errors"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// loadPlanFromFile will read the Pro plan definition from a JSON file.
// ID fields will be populated via ensureExistence().
// Note, if you change any of:
// Plan.Name
// Plan.Interval
// Plan.Currency
// Plan.AmountInCents
// Then a new Product and its associated Price will be created on Stripe.
// If you want to change the price of an existing Plan, make a new Plan and
// archive the old one on Stripe.
func loadPlanFromFile(filename string) (*Plan, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open plan JSON file")
	}
	var plan Plan
	if err := json.Unmarshal(jsonBytes, &plan); err != nil {
		return nil, extErrors.Wrap(err, "Invalid plan JSON file")
	}
	return &plan, nil
}

var lookupKeyRegex = regexp.MustCompile("[^a-zA-Z0-9]+")

// Plan describes the Pro tier. This corresponds to Stripe's "Product" with a
// single licensed Price.
type Plan struct {
	ID            string  `json:"id"`            // Corresponds to Stripe's Product ID
	PriceID       string  `json:"priceId"`       // Corresponds to Stripe's Price ID
	Name          string  `json:"name"`          // Represents the name shown to the customer and on Stripe
	Description   string  `json:"description"`   // Shown to the customer
	Currency      string  `json:"currency"`      // The ISO currency code (e.g. usd)
	Interval      string  `json:"interval"`      // Billing frequency (e.g. month)
	AmountInCents float64 `json:"amountInCents"` // Amount in cents per interval
}

// lookupKey will generate a unique LookupKey on Stripe to identify the Price of the Plan
func (p *Plan) lookupKey() string {
	planName := lookupKeyRegex.ReplaceAllString(p.Name, "-")
	amountPart := fmt.Sprintf("%f", p.AmountInCents)
	return strings.ToLower(fmt.Sprintf("%s_%s_%s", planName, p.Interval, amountPart))
}

// ensureExistence will ensure that the corresponding Plan exists on Stripe,
// and it will populate the ID fields in the Plan object
func (p *Plan) ensureExistence(ctx context.Context, s *client.API) error {
	if len(p.ID) > 0 && len(p.PriceID) > 0 {
		return nil
	}

	lookupParams := &stripe.PriceListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
		},
		Active:     stripe.Bool(true),
		LookupKeys: []*string{stripe.String(p.lookupKey())},
	}
	pricesIter := s.Prices.List(lookupParams)
	for pricesIter.Next() {
		price := pricesIter.Price()
		p.ID = price.Product.ID
		p.PriceID = price.ID
	}
	if pricesIter.Err() != nil {
		return extErrors.Wrap(pricesIter.Err(), "Cannot ensure Plan existence on Stripe")
	}

	if len(p.PriceID) > 0 {
		return nil
	}

	return p.createPlanOnStripe(ctx, s)
}

// createPlanOnStripe will create the missing Product and Price on Stripe
func (p *Plan) createPlanOnStripe(ctx context.Context, s *client.API) error {
	if len(p.ID) == 0 {
		prodParams := &stripe.ProductParams{
			Params: stripe.Params{
				Context: ctx,
			},
			Active:      stripe.Bool(true),
			Name:        stripe.String(p.Name),
			Description: stripe.String(p.Description),
		}
		stripeProduct, err := s.Products.New(prodParams)
		if err != nil {
			return extErrors.Wrap(err, "Cannot create Plan as Product on Stripe")
		}
		p.ID = stripeProduct.ID
	}

	pParams := &stripe.PriceParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Active:            stripe.Bool(true),
		Nickname:          stripe.String(p.Name),
		BillingScheme:     stripe.String("per_unit"),
		Currency:          stripe.String(p.Currency),
		UnitAmountDecimal: stripe.Float64(p.AmountInCents),
		Product:           stripe.String(p.ID),
		LookupKey:         stripe.String(p.lookupKey()),
		Recurring: &stripe.PriceRecurringParams{
			Interval:      stripe.String(p.Interval),
			IntervalCount: stripe.Int64(1),
			UsageType:     stripe.String("licensed"),
		},
	}
	price, err := s.Prices.New(pParams)
	if err != nil {
		return extErrors.Wrap(err, "Cannot create Price on Stripe")
	}
	p.PriceID = price.ID

	return nil
}

// GetStripeSubscriptionParams will generate SubscriptionParams used with Stripe from the Plan
func (p *Plan) GetStripeSubscriptionParams(ctx context.Context, customerID string) *stripe.SubscriptionParams {
	return &stripe.SubscriptionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Customer: stripe.String(customerID),
		Quantity: stripe.Int64(1),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price: stripe.String(p.PriceID),
			},
		},
	}
}
