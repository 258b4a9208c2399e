package billing

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deadpixel-labs/deathclock/auth"
	resp "github.com/deadpixel-labs/deathclock/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	BillingManager *Manager
	Logger         *zap.Logger
}

// Service is the billing API router
type Service struct {
	ServiceOptions
}

// AttachPaymentRequest contains the payment method to set as default
type AttachPaymentRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

// NewService will create an instance of the billing API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.BillingManager == nil {
		return nil, fmt.Errorf("nil BillingManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	profile, err := s.BillingManager.EnsureProfile(ctx, claims.ID, claims.Email)
	if err != nil {
		logger.Error("Unable to get billing profile",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get billing profile"))
		return
	}

	resp.WriteResponse(w, r, profile)
}

func (s *Service) getPlan(w http.ResponseWriter, r *http.Request) {
	resp.WriteResponse(w, r, s.BillingManager.ProPlan())
}

func (s *Service) attachPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	var req AttachPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages("A payment method is required"))
		return
	}

	if err := s.BillingManager.AttachPayment(ctx, AttachPaymentOptions{
		OwnerID:         claims.ID,
		Email:           claims.Email,
		PaymentMethodID: req.PaymentMethodID,
	}); err != nil {
		logger.Error("Unable to attach payment method",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot attach payment method"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) upgradeToPro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	sub, err := s.BillingManager.UpgradeToPro(ctx, claims.ID, claims.Email)
	if err != nil {
		logger.Error("Unable to create Pro subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot upgrade to Pro"))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) syncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	profile, err := s.BillingManager.SyncStatus(ctx, claims.ID)
	if err != nil {
		logger.Error("Unable to synchronize billing status",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot synchronize billing status"))
		return
	}
	if profile == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("No billing profile found"))
		return
	}

	resp.WriteResponse(w, r, profile)
}

func (s *Service) cancelPro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	if err := s.BillingManager.Cancel(ctx, claims.ID); err != nil {
		logger.Error("Unable to cancel Pro subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot cancel Pro subscription"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Router will return the routes under billing API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.getProfile)
	r.Get("/plan", s.getPlan)
	r.Post("/payment", s.attachPayment)
	r.Post("/pro", s.upgradeToPro)
	r.Post("/sync", s.syncStatus)
	r.Delete("/pro", s.cancelPro)

	return r
}
