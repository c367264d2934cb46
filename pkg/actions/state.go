package actions

import (
	"sort"
	"sync"

	"github.com/harun/rudder/pkg/browser"
)

// State is the shared run state threaded through a sequence of actions: named
// string values feed {key} substitution in selector templates, and named
// locators let a locate action's output become a later action's input without
// an explicit connection. Safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	values   map[string]string
	locators map[string]browser.Locator
}

// NewState returns an empty run state.
func NewState() *State {
	return &State{
		values:   make(map[string]string),
		locators: make(map[string]browser.Locator),
	}
}

// SetValue stores a named string value.
func (s *State) SetValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// SetValues stores every entry of values.
func (s *State) SetValues(values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
}

// Value returns the named value and whether it is set.
func (s *State) Value(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Values returns a copy of all stored values.
func (s *State) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// SetLocator stores a locator under the given name.
func (s *State) SetLocator(name string, loc browser.Locator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locators[name] = loc
}

// Locator returns the named locator and whether it is set.
func (s *State) Locator(name string) (browser.Locator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locators[name]
	return loc, ok
}

// LocatorNames returns the names of all stored locators, sorted.
func (s *State) LocatorNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.locators))
	for name := range s.locators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops all stored values and locators.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.locators = make(map[string]browser.Locator)
}
