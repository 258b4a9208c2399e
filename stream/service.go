package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deadpixel-labs/deathclock/auth"
	"github.com/deadpixel-labs/deathclock/broker"
	resp "github.com/deadpixel-labs/deathclock/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Consumer broker.Consumer
	Logger   *zap.Logger
}

// Service streams lifecycle events to the browser over server-sent events,
// so the frontend can play ceremonies and refresh stats without polling
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the event stream router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Consumer == nil {
		return nil, fmt.Errorf("nil Consumer is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) streamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	flusher, ok := w.(http.Flusher)
	if !ok {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Streaming is not supported"))
		return
	}

	logger := s.Logger.With(
		zap.String("OwnerID", claims.ID),
	)

	envelopes, err := s.Consumer.Receive(ctx, claims.ID)
	if err != nil {
		logger.Error("Unable to subscribe to lifecycle events",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot subscribe to lifecycle events"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-envelopes:
			if !ok {
				return
			}
			data, err := json.Marshal(envelope)
			if err != nil {
				logger.Error("Unable to serialize envelope",
					zap.Error(err),
				)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", envelope.Topic, data)
			flusher.Flush()
		}
	}
}

// Router will return the routes under the event stream API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.streamEvents)

	return r
}
