package library

import (
	"context"
	"sync"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
)

// Service serves the process-wide reference Library.  The library is loaded
// once and shared read-only across all concurrent matchers; Reload swaps in a
// fresh copy atomically for long-lived processes after a vocabulary update.
type Service struct {
	loader *Loader
	logger logging.Logger

	mu  sync.RWMutex
	lib *Library
}

// NewService creates a Service over the given loader.
func NewService(loader *Loader, logger logging.Logger) *Service {
	return &Service{loader: loader, logger: logger}
}

// Get returns the current library, loading it on first use.  A load failure
// is fatal to any matching operation that depends on the result.
func (s *Service) Get(ctx context.Context) (*Library, error) {
	s.mu.RLock()
	lib := s.lib
	s.mu.RUnlock()
	if lib != nil {
		return lib, nil
	}
	return s.Reload(ctx)
}

// Reload fetches the vocabulary again and atomically replaces the cached
// library.  On failure the previous library (if any) remains in service.
func (s *Service) Reload(ctx context.Context) (*Library, error) {
	lib, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("library reload failed", logging.Err(err))
		return nil, err
	}

	s.mu.Lock()
	s.lib = lib
	s.mu.Unlock()

	s.logger.Info("library in service", logging.Int("records", lib.Len()))
	return lib, nil
}
