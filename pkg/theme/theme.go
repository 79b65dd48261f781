// Package theme holds the shared light/dark flag that independent views
// read and react to.
package theme

import (
	"sync"

	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/metrics"
	"go.uber.org/zap"
)

// Palette is the set of colors a view paints with.
type Palette struct {
	BgColor     string `json:"bg_color"`
	BoxColor    string `json:"box_color"`
	TextColor   string `json:"text_color"`
	AccentColor string `json:"accent_color"`
}

var (
	Light = Palette{
		BgColor:     "#ecf0f1",
		BoxColor:    "#bdc3c7",
		TextColor:   "black",
		AccentColor: "#3498db",
	}
	Dark = Palette{
		BgColor:     "#2c3e50",
		BoxColor:    "#34495e",
		TextColor:   "#7f8c8d",
		AccentColor: "#ecf0f1",
	}
)

type subscriber struct {
	id uint64
	fn func(bool)
}

// Store is an observable boolean. The zero value is a usable light-mode
// store.
type Store struct {
	// notify serializes writers so every subscriber sees a change before the
	// next one starts.
	notify sync.Mutex

	mu     sync.RWMutex
	dark   bool
	subs   []subscriber
	nextID uint64
}

// NewStore returns a store starting in light mode.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) IsDark() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark
}

// Toggle flips the flag and notifies every subscriber, in subscription
// order, before returning.
func (s *Store) Toggle() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	s.dark = !s.dark
	dark := s.dark
	s.mu.Unlock()

	metrics.ThemeToggles.Inc()
	logger.Log.Debug("theme toggled", zap.Bool("dark", dark))
	s.broadcast(dark)
}

// Set assigns the flag. Subscribers are notified only when it changes.
func (s *Store) Set(dark bool) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.dark == dark {
		s.mu.Unlock()
		return
	}
	s.dark = dark
	s.mu.Unlock()

	metrics.ThemeToggles.Inc()
	s.broadcast(dark)
}

// Subscribe registers fn for every later change. Call the returned func to
// stop receiving.
func (s *Store) Subscribe(fn func(dark bool)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// broadcast runs outside s.mu so subscribers may read the store.
func (s *Store) broadcast(dark bool) {
	s.mu.RLock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(dark)
	}
}

// Palette returns the colors for the current mode.
func (s *Store) Palette() Palette {
	if s.IsDark() {
		return Dark
	}
	return Light
}

// ChartMode is the mode name chart renderers expect.
func (s *Store) ChartMode() string {
	if s.IsDark() {
		return "dark"
	}
	return "light"
}
