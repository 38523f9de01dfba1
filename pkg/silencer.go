package himitsu

import (
	"sync"
	"time"
)

// silencerState tags the Silencer's current mode. The zero value is
// stateNotSilenced.
type silencerState int

const (
	stateNotSilenced silencerState = iota
	stateSilenceSingle
	stateUpcomingSilenceSet
	stateInSilenceSet
)

// Silencer is a small state machine for temporarily suppressing findings.
// All transitions run under a single mutex; none of them block.
type Silencer struct {
	mu sync.Mutex

	state          silencerState
	pendingSetSecs int64 // duration_secs for UpcomingSilenceSet
	expiresAt      int64 // unix seconds for InSilenceSet
}

// NewSilencer returns a Silencer in its NotSilenced state.
func NewSilencer() *Silencer {
	return &Silencer{state: stateNotSilenced}
}

// SilenceOnce arms a one-shot silence: the next check_and_consume is silent
// and the Silencer reverts to NotSilenced, regardless of the prior state.
func (s *Silencer) SilenceOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateSilenceSingle
}

// SilenceSet arms a timed silence window of durationSecs: the next
// check_and_consume both silences and starts the window, regardless of the
// prior state.
func (s *Silencer) SilenceSet(durationSecs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateUpcomingSilenceSet
	s.pendingSetSecs = durationSecs
}

// nowFunc returns the current UNIX time in seconds. Callers that can't
// acquire the wall clock MUST NOT panic; CheckAndConsume treats a zero-value
// now as "clock unavailable" per spec, i.e. now defaults to 0.
func nowUnixSeconds() int64 {
	return time.Now().Unix()
}

// CheckAndConsume advances the state machine exactly once and reports
// whether the current scan should be treated as silent. It must be called
// at most once per scan, and only when that scan's result is non-empty.
func (s *Silencer) CheckAndConsume() bool {
	return s.checkAndConsumeAt(nowUnixSeconds())
}

func (s *Silencer) checkAndConsumeAt(now int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNotSilenced:
		return false

	case stateSilenceSingle:
		s.state = stateNotSilenced
		return true

	case stateUpcomingSilenceSet:
		s.state = stateInSilenceSet
		s.expiresAt = now + s.pendingSetSecs
		return true

	case stateInSilenceSet:
		if now <= s.expiresAt {
			return true
		}
		s.state = stateNotSilenced
		return false

	default:
		return false
	}
}
