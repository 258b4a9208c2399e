package catalog

import (
	"fmt"
	"net/http"

	resp "github.com/deadpixel-labs/deathclock/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	CatalogManager *Manager
	Logger         *zap.Logger
}

// Service is the catalog API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the catalog API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.CatalogManager == nil {
		return nil, fmt.Errorf("nil CatalogManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) listEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query != "" {
		resp.WriteResponse(w, r, s.CatalogManager.Search(query))
		return
	}
	resp.WriteResponse(w, r, s.CatalogManager.List())
}

func (s *Service) getEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := s.CatalogManager.GetByName(name)
	if !ok {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find catalog entry with specific name"))
		return
	}
	resp.WriteResponse(w, r, entry)
}

// Router will return the routes under catalog API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listEntries)
	r.Get("/{name}", s.getEntry)

	return r
}
