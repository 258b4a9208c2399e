package subscription

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deadpixel-labs/deathclock/auth"
	resp "github.com/deadpixel-labs/deathclock/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Store  Store
	Logger *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// NewSubscriptionRequest contains the request from client to track a new subscription
type NewSubscriptionRequest struct {
	Name        string      `json:"name" validate:"required"`
	Website     string      `json:"website"`
	Category    string      `json:"category"`
	Notes       string      `json:"notes"`
	Cost        float64     `json:"cost" validate:"gte=0"`
	Frequency   Frequency   `json:"frequency"`
	StartDate   time.Time   `json:"startDate" validate:"required"`
	EndDate     time.Time   `json:"endDate" validate:"required"`
	AutoRenew   bool        `json:"autoRenew"`
	FuneralType FuneralType `json:"funeralType"`
}

// UpdateSubscriptionRequest carries partial subscription updates; nil fields are untouched
type UpdateSubscriptionRequest struct {
	Name        *string      `json:"name"`
	Website     *string      `json:"website"`
	Category    *string      `json:"category"`
	Notes       *string      `json:"notes"`
	Cost        *float64     `json:"cost"`
	Frequency   *Frequency   `json:"frequency"`
	EndDate     *time.Time   `json:"endDate"`
	AutoRenew   *bool        `json:"autoRenew"`
	Liked       *bool        `json:"liked"`
	FuneralType *FuneralType `json:"funeralType"`
}

func (s *Service) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	all := r.URL.Query().Get("all") != ""
	before := r.URL.Query().Get("before")

	var parsedTime time.Time
	if before != "" {
		var err error
		parsedTime, err = time.Parse(time.RFC3339Nano, before)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid before param"))
			return
		}
	}

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	opt := ListOption{
		OwnerID:        claims.ID,
		IncludeDeleted: all,
		Before:         parsedTime,
	}
	results, err := s.Store.List(ctx, opt)
	if err != nil {
		logger.Error("Unable to list subscriptions by owner id",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of subscriptions"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	subscriptionID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
		zap.String("SubscriptionID", subscriptionID),
	)

	sub, err := s.Store.GetByID(ctx, subscriptionID)
	if err != nil {
		logger.Error("Unable to query subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the subscription"))
		return
	}

	if sub == nil || sub.OwnerID != claims.ID {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) newSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("OwnerID", claims.ID))

	var req NewSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages("Name, cost, and dates are required"))
		return
	}

	now := time.Now()
	sub := Subscription{
		ID:          uuid.New().String(),
		OwnerID:     claims.ID,
		Name:        req.Name,
		Website:     req.Website,
		Category:    req.Category,
		Notes:       req.Notes,
		Cost:        req.Cost,
		Frequency:   NormalizeFrequency(req.Frequency),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		AutoRenew:   req.AutoRenew,
		FuneralType: NormalizeFuneralType(req.FuneralType),
	}
	sub.Status = sub.CurrentStatus(now)

	if err := sub.Validate(); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages(err.Error()))
		return
	}

	if err := s.Store.Create(ctx, &sub); err != nil {
		logger.Error("Unable to create subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create Subscription"))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) updateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
		zap.String("SubscriptionID", subscriptionID),
	)

	var req UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}

	now := time.Now()
	lambda := func(current *Subscription, desired *Subscription) (shouldSave bool, respError interface{}) {
		if current == nil || current.OwnerID != claims.ID || current.Deleted {
			respError = resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID")
			return
		}

		if req.Name != nil {
			desired.Name = *req.Name
		}
		if req.Website != nil {
			desired.Website = *req.Website
		}
		if req.Category != nil {
			desired.Category = *req.Category
		}
		if req.Notes != nil {
			desired.Notes = *req.Notes
		}
		if req.Cost != nil {
			desired.Cost = *req.Cost
		}
		if req.Frequency != nil {
			desired.Frequency = NormalizeFrequency(*req.Frequency)
		}
		if req.EndDate != nil {
			desired.EndDate = *req.EndDate
			// a fresh billing window clears a burial latch
			desired.ForceExpired = false
		}
		if req.AutoRenew != nil {
			desired.AutoRenew = *req.AutoRenew
		}
		if req.Liked != nil {
			desired.Liked = *req.Liked
		}
		if req.FuneralType != nil {
			desired.FuneralType = NormalizeFuneralType(*req.FuneralType)
		}

		if err := desired.Validate(); err != nil {
			respError = resp.ErrValidation().AddMessages(err.Error())
			return
		}

		desired.Status = ComputeStatus(desired.EndDate, desired.AutoRenew, desired.ForceExpired, now)
		shouldSave = true
		return
	}

	lambdaResult := s.Store.LambdaUpdate(ctx, subscriptionID, lambda)

	if lambdaResult.ReturnValue != nil {
		resp.WriteError(w, r, lambdaResult.ReturnValue.(*resp.Error))
		return
	}

	if lambdaResult.TxError != nil {
		logger.Error("Unable to update subscription",
			zap.Error(lambdaResult.TxError),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update Subscription"))
		return
	}

	resp.WriteResponse(w, r, lambdaResult.Subscription)
}

func (s *Service) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
		zap.String("SubscriptionID", subscriptionID),
	)

	lambda := func(current *Subscription, desired *Subscription) (shouldSave bool, respError interface{}) {
		if current == nil || current.OwnerID != claims.ID || current.Deleted {
			respError = resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID")
			return
		}

		// soft delete: the record stays for stats, reads as expired
		desired.Deleted = true
		desired.ForceExpired = true
		desired.Status = StatusExpired
		shouldSave = true
		return
	}

	lambdaResult := s.Store.LambdaUpdate(ctx, subscriptionID, lambda)

	if lambdaResult.ReturnValue != nil {
		resp.WriteError(w, r, lambdaResult.ReturnValue.(*resp.Error))
		return
	}

	if lambdaResult.TxError != nil {
		logger.Error("Unable to delete subscription",
			zap.Error(lambdaResult.TxError),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to delete Subscription"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) resurrectSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
		zap.String("SubscriptionID", subscriptionID),
	)

	now := time.Now()
	lambda := func(current *Subscription, desired *Subscription) (shouldSave bool, respError interface{}) {
		if current == nil || current.OwnerID != claims.ID {
			respError = resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID")
			return
		}
		if current.CurrentStatus(now) != StatusExpired {
			respError = resp.ErrBadRequest().AddMessages("Subscription is not expired")
			return
		}

		*desired = Resurrect(*current, now)
		shouldSave = true
		return
	}

	lambdaResult := s.Store.LambdaUpdate(ctx, subscriptionID, lambda)

	if lambdaResult.ReturnValue != nil {
		resp.WriteError(w, r, lambdaResult.ReturnValue.(*resp.Error))
		return
	}

	if lambdaResult.TxError != nil {
		logger.Error("Unable to resurrect subscription",
			zap.Error(lambdaResult.TxError),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to resurrect Subscription"))
		return
	}

	resp.WriteResponse(w, r, lambdaResult.Subscription)
}

func (s *Service) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	list, err := s.Store.List(ctx, ListOption{
		OwnerID:        claims.ID,
		IncludeDeleted: true,
	})
	if err != nil {
		logger.Error("Unable to list subscriptions for stats",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot compute portfolio stats"))
		return
	}

	resp.WriteResponse(w, r, Aggregate(list))
}

// Router will return the routes under subscription API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listSubscriptions)
	r.Post("/", s.newSubscription)
	r.Get("/stats", s.getStats)
	r.Get("/{id}", s.getSubscription)
	r.Patch("/{id}", s.updateSubscription)
	r.Delete("/{id}", s.deleteSubscription)
	r.Post("/{id}/resurrect", s.resurrectSubscription)

	return r
}
