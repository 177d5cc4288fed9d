// Package state holds what the refresh loop and the display layers share:
// the latest snapshot and the user's language and interval choices.
package state

import (
	"log/slog"
	"sync"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

// SaveFunc persists the preference pair. It is called outside any lock.
type SaveFunc func(lang config.Language, interval config.Interval) error

const saveAttempts = 2

type State struct {
	snapMu   sync.RWMutex
	snapshot usage.Snapshot

	prefMu   sync.Mutex
	language config.Language
	interval config.Interval

	// saveMu orders writes so the newest preferences land last.
	saveMu sync.Mutex
	save   SaveFunc
	logger *slog.Logger

	subMu       sync.Mutex
	subscribers []func(config.Language, config.Interval)
}

// New returns a State seeded with the given preferences. save may be nil.
func New(lang config.Language, interval config.Interval, save SaveFunc, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		language: lang,
		interval: interval,
		save:     save,
		logger:   logger,
	}
}

func (s *State) Snapshot() usage.Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// SetSnapshot replaces the current snapshot wholesale.
func (s *State) SetSnapshot(snap usage.Snapshot) {
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

func (s *State) Language() config.Language {
	s.prefMu.Lock()
	defer s.prefMu.Unlock()
	return s.language
}

func (s *State) Interval() config.Interval {
	s.prefMu.Lock()
	defer s.prefMu.Unlock()
	return s.interval
}

// OnSettingsChanged registers fn to run after every language or interval
// change, whoever made it. fn runs on the caller's goroutine with no lock held.
func (s *State) OnSettingsChanged(fn func(config.Language, config.Interval)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// SetLanguage changes the language and persists preferences.
func (s *State) SetLanguage(lang config.Language) {
	s.prefMu.Lock()
	s.language = lang
	s.prefMu.Unlock()
	s.persist()
	s.notify()
}

// SetInterval changes the refresh interval and persists preferences. The
// refresh loop picks it up at its next cycle.
func (s *State) SetInterval(interval config.Interval) {
	s.prefMu.Lock()
	s.interval = interval
	s.prefMu.Unlock()
	s.persist()
	s.notify()
}

func (s *State) notify() {
	s.subMu.Lock()
	subs := append([]func(config.Language, config.Interval){}, s.subscribers...)
	s.subMu.Unlock()

	lang, interval := s.Language(), s.Interval()
	for _, fn := range subs {
		fn(lang, interval)
	}
}

// persist saves the current preferences, retrying once. Failures are logged
// and otherwise ignored.
func (s *State) persist() {
	if s.save == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	lang, interval := s.Language(), s.Interval()
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		err := s.save(lang, interval)
		if err == nil {
			return
		}
		s.logger.Warn("state: save preferences failed", "attempt", attempt, "err", err)
	}
	s.logger.Error("state: preferences not saved", "attempts", saveAttempts)
}
