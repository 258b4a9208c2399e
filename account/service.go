package account

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
	Auth           *auth.Auth
	AccountManager *Manager
	Logger         *zap.Logger
}

// Service is the account API router
type Service struct {
	ServiceOptions
}

// LoginRequest is the model of user request for a login token
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RefreshRequest is the model for exchanging a refresh token for a session token
type RefreshRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse carries the session and refresh tokens after login
type TokenResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

// NewService will create an instance of the account API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.AccountManager == nil {
		return nil, fmt.Errorf("nil AccountManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) requestLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	logger := s.Logger.With(zap.String("Email", req.Email))

	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages("A valid email address is required"))
		return
	}

	if err := s.Auth.Request(r.Context(), req.Email, req.Email); err != nil {
		logger.Error("Unable to send login token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")

	logger := s.Logger.With(zap.String("Email", email))

	valid, err := s.Auth.Verify(ctx, email, token)
	if err != nil {
		logger.Error("Unable to verify login token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrVerifyToken())
		return
	}

	if !valid {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	// "upsert" an account
	acct, err := s.AccountManager.GetByEmail(ctx, email)
	if err != nil {
		logger.Error("Unable to lookup Account",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	if acct == nil {
		acct, err = s.AccountManager.NewAccount(ctx, email)
		if err != nil {
			logger.Error("Unable to create Account",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected())
			return
		}
	}

	s.writeTokens(w, r, logger, auth.Claims{
		ID:    acct.ID,
		Email: acct.Email,
	})
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation().AddMessages("A refresh token is required"))
		return
	}

	refresh, err := s.Auth.VerifyRefreshToken(req.Token)
	if err != nil {
		s.Logger.Error("Unable to verify refresh token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrVerifyToken())
		return
	}
	if refresh == nil {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	acct, err := s.AccountManager.GetByID(ctx, refresh.ID)
	if err != nil {
		s.Logger.Error("Unable to lookup Account",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if acct == nil {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	s.writeTokens(w, r, s.Logger, auth.Claims{
		ID:    acct.ID,
		Email: acct.Email,
	})
}

func (s *Service) writeTokens(w http.ResponseWriter, r *http.Request, logger *zap.Logger, claims auth.Claims) {
	jwtToken, err := s.Auth.CreateTokenFromClaims(claims)
	if err != nil {
		logger.Error("Unable to generate token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	refreshToken, err := s.Auth.CreateRefreshTokenFromClaims(claims)
	if err != nil {
		logger.Error("Unable to generate refresh token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, TokenResponse{
		Token:   jwtToken,
		Refresh: refreshToken,
	})
}

// Router will return the routes under account API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.requestLogin)
	r.Post("/refresh", s.handleRefresh)
	r.Get("/{uid}/{token}", s.handleLogin)

	return r
}
