package model

import "testing"

func TestPhaseOrdinal(t *testing.T) {
	cases := []struct {
		phase Phase
		want  int
	}{
		{PhaseConsent, 0},
		{PhasePreQuiz, 1},
		{PhaseInteraction, 2},
		{PhasePostQuiz, 3},
		{PhaseCompleted, 4},
		{Phase("debrief"), -1},
		{Phase(""), -1},
	}
	for _, tc := range cases {
		if got := tc.phase.Ordinal(); got != tc.want {
			t.Errorf("Ordinal(%q) = %d, want %d", tc.phase, got, tc.want)
		}
	}
}

func TestPhaseCanAdvanceTo(t *testing.T) {
	cases := []struct {
		name string
		from Phase
		to   Phase
		want bool
	}{
		{"consent to pre_quiz", PhaseConsent, PhasePreQuiz, true},
		{"consent skips to interaction", PhaseConsent, PhaseInteraction, true},
		{"consent straight to completed", PhaseConsent, PhaseCompleted, true},
		{"post_quiz to completed", PhasePostQuiz, PhaseCompleted, true},
		{"same phase", PhaseInteraction, PhaseInteraction, false},
		{"backward", PhasePostQuiz, PhasePreQuiz, false},
		{"from terminal", PhaseCompleted, PhaseConsent, false},
		{"unknown target", PhaseConsent, Phase("debrief"), false},
		{"unknown source", Phase("debrief"), PhasePreQuiz, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
				t.Errorf("CanAdvanceTo(%q -> %q) = %t, want %t", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestAllPhasesCompleted(t *testing.T) {
	s := &StudySession{}
	if s.AllPhasesCompleted() {
		t.Fatal("fresh session reported all phases completed")
	}

	s.Consent.Completed = true
	s.PreQuiz.Completed = true
	s.Interaction.Completed = true
	if s.AllPhasesCompleted() {
		t.Fatal("three of four completed phases should not count as all")
	}

	s.PostQuiz.Completed = true
	if !s.AllPhasesCompleted() {
		t.Fatal("all four tracked phases completed, expected true")
	}
}

func TestProgressUnknownPhase(t *testing.T) {
	s := &StudySession{}
	if s.Progress(PhaseCompleted) != nil {
		t.Error("terminal phase must not have a progress slot")
	}
	if s.Progress(Phase("debrief")) != nil {
		t.Error("unknown phase must not have a progress slot")
	}
	if s.Progress(PhaseInteraction) != &s.Interaction {
		t.Error("tracked phase must return its own slot")
	}
}
