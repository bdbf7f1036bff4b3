package config

import (
	"sync"

	"github.com/lucasjlepore/fit-intervals/summary"
)

// Source holds the live configuration and notifies subscribers when it is
// replaced.
type Source struct {
	mu       sync.RWMutex
	cfg      Config
	settings summary.Settings

	subMu  sync.Mutex
	subs   map[int]func()
	order  []int
	nextID int
}

func NewSource(cfg Config) (*Source, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	return &Source{cfg: cfg, settings: settings, subs: make(map[int]func())}, nil
}

func (s *Source) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Source) Settings() summary.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update validates and installs cfg, then notifies subscribers. An invalid
// configuration leaves the current one in place.
func (s *Source) Update(cfg Config) error {
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.settings = settings
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (s *Source) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}
