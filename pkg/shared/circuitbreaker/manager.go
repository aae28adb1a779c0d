// Package circuitbreaker wraps sony/gobreaker into a named-instance
// manager, so one Settings template can guard many independent
// downstream endpoints — one breaker per tenant data source — without
// every caller constructing and tracking its own gobreaker.CircuitBreaker.
package circuitbreaker

import (
	"sync"

	"github.com/sony/gobreaker"
)

// Manager lazily creates and caches one gobreaker.CircuitBreaker per
// name, all derived from the same Settings template.
type Manager struct {
	settings gobreaker.Settings
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewManager builds a Manager. settings.Name is overwritten per breaker
// instance with the name passed to Get, so callers can leave it blank.
func NewManager(settings gobreaker.Settings) *Manager {
	return &Manager{settings: settings, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Get returns the named breaker, creating it from the manager's Settings
// template on first use.
func (m *Manager) Get(name string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	settings := m.settings
	settings.Name = name
	b := gobreaker.NewCircuitBreaker(settings)
	m.breakers[name] = b
	return b
}

// Execute runs fn through the named breaker, creating it if needed.
func (m *Manager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.Get(name).Execute(fn)
}
