package flags

import "sync"

// Runtime holds mutable process-wide toggles that admin endpoints can flip
// without a restart. It is constructed in main and injected into the
// components that read it.
type Runtime struct {
	mu          sync.RWMutex
	mockMode    bool
	diagnostics map[string]string
}

// NewRuntime creates runtime flags with the given initial mock mode.
func NewRuntime(mockMode bool) *Runtime {
	return &Runtime{
		mockMode:    mockMode,
		diagnostics: make(map[string]string),
	}
}

// MockMode reports whether provider adapters should serve synthetic data
// instead of calling external APIs.
func (r *Runtime) MockMode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mockMode
}

// SetMockMode switches between mock and live provider data.
func (r *Runtime) SetMockMode(enabled bool) {
	r.mu.Lock()
	r.mockMode = enabled
	r.mu.Unlock()
}

// RecordProviderError stores the most recent failure message for a
// provider. Later errors overwrite earlier ones.
func (r *Runtime) RecordProviderError(provider, message string) {
	r.mu.Lock()
	r.diagnostics[provider] = message
	r.mu.Unlock()
}

// ProviderDiagnostics returns a copy of the last recorded failure per provider.
func (r *Runtime) ProviderDiagnostics() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.diagnostics))
	for k, v := range r.diagnostics {
		out[k] = v
	}
	return out
}
