package himitsu

import "testing"

func TestSilencerNotSilencedByDefault(t *testing.T) {
	s := NewSilencer()
	if s.checkAndConsumeAt(0) {
		t.Error("fresh silencer should not be silent")
	}
}

func TestSilencerSilenceOnceLinearity(t *testing.T) {
	s := NewSilencer()
	s.SilenceOnce()

	if !s.checkAndConsumeAt(100) {
		t.Error("expected first check after silence_once to be silent")
	}
	if s.checkAndConsumeAt(100) {
		t.Error("expected second check after silence_once to not be silent")
	}
}

func TestSilencerSilenceSetWindow(t *testing.T) {
	s := NewSilencer()
	s.SilenceSet(2)

	// First check: UpcomingSilenceSet -> InSilenceSet{now+2}, silent.
	if !s.checkAndConsumeAt(0) {
		t.Fatal("expected silence_set's first check to be silent")
	}
	// One second later: still within the window.
	if !s.checkAndConsumeAt(1) {
		t.Error("expected check 1s later to still be silent")
	}
	// Three seconds later: window has elapsed.
	if s.checkAndConsumeAt(3) {
		t.Error("expected check 3s later to no longer be silent")
	}
}

func TestSilencerSilenceSetBoundaryInclusive(t *testing.T) {
	s := NewSilencer()
	s.SilenceSet(2)
	s.checkAndConsumeAt(0) // arms InSilenceSet{expires_at: 2}

	if !s.checkAndConsumeAt(2) {
		t.Error("expected now == expires_at to still be silent")
	}
}

func TestSilencerSilenceOnceOverridesPendingSet(t *testing.T) {
	s := NewSilencer()
	s.SilenceSet(100)
	s.SilenceOnce()

	if !s.checkAndConsumeAt(0) {
		t.Fatal("expected silence_once to take effect")
	}
	if s.checkAndConsumeAt(0) {
		t.Error("expected silencer to revert to NotSilenced after the single consume")
	}
}
