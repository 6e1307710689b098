// Package handlers contains the HTTP handlers of the API service.
package handlers

import (
	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/registry"
	"github.com/gridcast/gridcast/internal/store"
)

// topFeatureCount is how many importance entries the model endpoint
// returns
const topFeatureCount = 10

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	store    *store.Store
	registry *registry.Registry
	loader   *dataset.Loader
	cfg      config.Config
}

// New creates a new handler instance
func New(logger *logging.Logger, s *store.Store, reg *registry.Registry, loader *dataset.Loader, cfg config.Config) *Handler {
	if logger == nil {
		logger = logging.Global()
	}
	return &Handler{
		logger:   logger,
		store:    s,
		registry: reg,
		loader:   loader,
		cfg:      cfg,
	}
}
