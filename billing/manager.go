package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/lithammer/shortuuid/v3"
	extErrors "github.com/pkg/errors"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProMarker flips an account's pro flag after a billing state change
type ProMarker interface {
	MarkPro(ctx context.Context, ownerID string, pro bool) error
}

// ManagerOptions contains the dependencies of a Manager
type ManagerOptions struct {
	StripeClient   *client.API
	DB             *gorm.DB
	Logger         *zap.Logger
	Settings       ProMarker
	PathToPlanJSON string
}

// Manager handles the Pro tier billing lifecycle against Stripe
type Manager struct {
	ManagerOptions
	plan *Plan
}

// NewManager returns a new Manager for billing profiles
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.StripeClient == nil {
		return nil, fmt.Errorf("nil StripeClient is invalid")
	}
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Settings == nil {
		return nil, fmt.Errorf("nil Settings is invalid")
	}
	if len(option.PathToPlanJSON) == 0 {
		return nil, fmt.Errorf("empty PathToPlanJSON is invalid")
	}
	if err := option.DB.AutoMigrate(&Profile{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize billing.Manager")
	}

	plan, err := loadPlanFromFile(option.PathToPlanJSON)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot populate the Pro plan")
	}
	if err := plan.ensureExistence(context.Background(), option.StripeClient); err != nil {
		return nil, extErrors.Wrap(err, "Cannot ensure Plan existence on Stripe")
	}

	return &Manager{
		ManagerOptions: option,
		plan:           plan,
	}, nil
}

// ProPlan returns the synchronized Pro plan definition
func (m *Manager) ProPlan() Plan {
	return *m.plan
}

// GetProfile will try to return the billing profile by owner id
func (m *Manager) GetProfile(ctx context.Context, ownerID string) (*Profile, error) {
	var profile Profile

	result := m.DB.WithContext(ctx).First(&profile, "owner_id = ?", ownerID)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get billing profile by owner id")
	}

	return &profile, nil
}

// EnsureProfile returns the billing profile for an account, creating the
// Stripe customer on first access
func (m *Manager) EnsureProfile(ctx context.Context, ownerID, email string) (*Profile, error) {
	profile, err := m.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	params := &stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Email: stripe.String(email),
	}
	cust, err := m.StripeClient.Customers.New(params)
	if err != nil {
		m.Logger.Error("Stripe returned error",
			zap.Error(err),
		)
		return nil, extErrors.Wrap(err, "Cannot create a Stripe customer")
	}

	profile = &Profile{
		ID:               shortuuid.New(),
		OwnerID:          ownerID,
		StripeCustomerID: cust.ID,
		State:            StateInactive,
	}
	result := m.DB.WithContext(ctx).Create(profile)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create billing profile")
	}

	return profile, nil
}

// AttachPaymentOptions specifies which payment method to set as default for an account
type AttachPaymentOptions struct {
	OwnerID         string
	Email           string
	PaymentMethodID string
}

// AttachPayment attaches a payment method to the account's Stripe customer
// and makes it the default
func (m *Manager) AttachPayment(ctx context.Context, opt AttachPaymentOptions) error {
	if len(opt.OwnerID) == 0 {
		return fmt.Errorf("AttachPaymentOptions.OwnerID is required")
	}
	if len(opt.PaymentMethodID) == 0 {
		return fmt.Errorf("AttachPaymentOptions.PaymentMethodID is required")
	}
	profile, err := m.EnsureProfile(ctx, opt.OwnerID, opt.Email)
	if err != nil {
		return err
	}

	params := &stripe.PaymentMethodAttachParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Customer: stripe.String(profile.StripeCustomerID),
	}
	pm, err := m.StripeClient.PaymentMethods.Attach(opt.PaymentMethodID, params)
	if err != nil {
		return extErrors.Wrap(err, "Cannot attach payment method on Stripe")
	}

	customerParams := &stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
		},
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(pm.ID),
		},
	}
	if _, err := m.StripeClient.Customers.Update(profile.StripeCustomerID, customerParams); err != nil {
		return extErrors.Wrap(err, "Cannot set default payment method on Stripe")
	}

	return nil
}

// UpgradeToPro creates the Pro subscription on Stripe and marks the profile
// pending until payment clears
func (m *Manager) UpgradeToPro(ctx context.Context, ownerID, email string) (*stripe.Subscription, error) {
	profile, err := m.EnsureProfile(ctx, ownerID, email)
	if err != nil {
		return nil, err
	}
	if profile.State == StateActive || profile.State == StatePending {
		return nil, fmt.Errorf("account already has a Pro subscription")
	}

	subscriptionParams := m.plan.GetStripeSubscriptionParams(ctx, profile.StripeCustomerID)
	subscriptionParams.AddExpand("latest_invoice.payment_intent")
	subscriptionParams.AddExpand("pending_setup_intent")

	sub, err := m.StripeClient.Subscriptions.New(subscriptionParams)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create Pro subscription on Stripe")
	}

	result := m.DB.WithContext(ctx).Model(&Profile{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"stripe_subscription_id": sub.ID,
			"state":                  StatePending,
		})
	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot record Pro subscription in database")
	}

	return sub, nil
}

// SyncStatus fetches the subscription state from Stripe and reconciles the
// profile and the account's pro flag
func (m *Manager) SyncStatus(ctx context.Context, ownerID string) (*Profile, error) {
	profile, err := m.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if profile == nil || len(profile.StripeSubscriptionID) == 0 {
		return profile, nil
	}

	subscriptionParams := &stripe.SubscriptionParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}
	subscriptionParams.AddExpand("latest_invoice.payment_intent")
	subscriptionParams.AddExpand("pending_setup_intent")
	sub, err := m.StripeClient.Subscriptions.Get(profile.StripeSubscriptionID, subscriptionParams)
	if err != nil {
		return nil, extErrors.Wrap(err, "Unable to fetch from Stripe to synchronize status")
	}

	var nextState State
	var pro bool
	switch {
	case sub.Status == stripe.SubscriptionStatusActive && sub.PendingSetupIntent == nil:
		nextState = StateActive
		pro = true
	case sub.Status == stripe.SubscriptionStatusCanceled:
		nextState = StateInactive
	default:
		return profile, nil
	}

	if profile.State != nextState {
		result := m.DB.WithContext(ctx).Model(&Profile{}).
			Where("owner_id = ?", ownerID).
			Update("state", nextState)
		if result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Unable to update billing state in database")
		}
		profile.State = nextState
	}

	if err := m.Settings.MarkPro(ctx, ownerID, pro); err != nil {
		m.Logger.Error("Unable to synchronize pro flag",
			zap.String("OwnerID", ownerID),
			zap.Error(err),
		)
		// fail through: the next sync will retry
	}

	return profile, nil
}

// Cancel marks the Pro subscription to end at the current period on Stripe
func (m *Manager) Cancel(ctx context.Context, ownerID string) error {
	profile, err := m.GetProfile(ctx, ownerID)
	if err != nil {
		return err
	}
	if profile == nil || len(profile.StripeSubscriptionID) == 0 {
		return fmt.Errorf("account has no Pro subscription")
	}

	updateParams := &stripe.SubscriptionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	sub, err := m.StripeClient.Subscriptions.Update(profile.StripeSubscriptionID, updateParams)
	if err != nil {
		return extErrors.Wrap(err, "Unable to cancel subscription on Stripe")
	}
	if sub.CancelAtPeriodEnd != true {
		return fmt.Errorf("Stripe did not mark subscription as cancel at end of period")
	}
	result := m.DB.WithContext(ctx).Model(&Profile{}).
		Where("owner_id = ?", ownerID).
		Update("state", StateCancelled)
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Unable to mark billing profile as cancelled in database")
	}
	return nil
}
