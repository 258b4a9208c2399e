package settings

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deadpixel-labs/deathclock/auth"
	resp "github.com/deadpixel-labs/deathclock/response"
	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	SettingsManager *Manager
	Logger          *zap.Logger
}

// Service is the settings API router
type Service struct {
	ServiceOptions
}

// UpdateRequest carries partial settings updates from the client
type UpdateRequest struct {
	Email                *string                   `json:"email" validate:"omitempty,email"`
	EmailReminders       *bool                     `json:"emailReminders"`
	BrowserNotifications *bool                     `json:"browserNotifications"`
	ReminderDays         *int                      `json:"reminderDays" validate:"omitempty,gte=0,lte=60"`
	FuneralType          *subscription.FuneralType `json:"funeralType"`
}

// NewService will create an instance of the settings API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.SettingsManager == nil {
		return nil, fmt.Errorf("nil SettingsManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	current, err := s.SettingsManager.Get(ctx, claims.ID, claims.Email)
	if err != nil {
		logger.Error("Unable to get settings",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get settings"))
		return
	}

	resp.WriteResponse(w, r, current)
}

func (s *Service) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages("Invalid settings values"))
		return
	}

	updated, err := s.SettingsManager.Update(ctx, claims.ID, UpdateOption{
		Email:                req.Email,
		EmailReminders:       req.EmailReminders,
		BrowserNotifications: req.BrowserNotifications,
		ReminderDays:         req.ReminderDays,
		FuneralType:          req.FuneralType,
	})
	if err != nil {
		logger.Error("Unable to update settings",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot update settings"))
		return
	}

	resp.WriteResponse(w, r, updated)
}

// Router will return the routes under settings API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.getSettings)
	r.Put("/", s.updateSettings)

	return r
}
