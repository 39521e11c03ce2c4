package model

import (
	"sync"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
type StateManager struct {
	mu     sync.RWMutex
	name   string
	fitted bool

	nFeatures int
	nSamples  int
}

// NewStateManager creates a StateManager for the named model.
func NewStateManager(name string) *StateManager {
	return &StateManager{name: name}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted with the dimensions seen during fitting.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.name, method)
	}
	return nil
}
