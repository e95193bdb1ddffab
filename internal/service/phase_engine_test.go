package service

import (
	"errors"
	"testing"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
)

func newTestSession(startedAt time.Time) *model.StudySession {
	s := &model.StudySession{
		ID:            uuid.New(),
		ParticipantID: uuid.New(),
		CurrentPhase:  model.PhaseConsent,
		IsActive:      true,
		StartedAt:     startedAt,
	}
	start := startedAt
	s.Consent.StartedAt = &start
	return s
}

func TestApplyTransitionForward(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSession(start)
	at := start.Add(90 * time.Second)

	res, err := applyTransition(s, model.PhasePreQuiz, at)
	if err != nil {
		t.Fatalf("applyTransition: %v", err)
	}

	if !res.Changed {
		t.Error("forward transition must report Changed")
	}
	if res.OldPhase != model.PhaseConsent || res.NewPhase != model.PhasePreQuiz {
		t.Errorf("phases = %s -> %s", res.OldPhase, res.NewPhase)
	}
	if res.ClosedDurationSeconds != 90 {
		t.Errorf("closed duration = %d, want 90", res.ClosedDurationSeconds)
	}
	if s.CurrentPhase != model.PhasePreQuiz {
		t.Errorf("current phase = %s", s.CurrentPhase)
	}
	if s.Consent.DurationSeconds != 90 {
		t.Errorf("consent duration = %d, want 90", s.Consent.DurationSeconds)
	}
	if !s.Consent.Completed || s.Consent.CompletedAt == nil {
		t.Error("exited phase must be flagged completed with a timestamp")
	}
	if s.Consent.EndedAt == nil || !s.Consent.EndedAt.Equal(at) {
		t.Error("exited phase must carry the end timestamp")
	}
	if s.PreQuiz.StartedAt == nil || !s.PreQuiz.StartedAt.Equal(at) {
		t.Error("entered phase must carry the start timestamp")
	}
}

func TestApplyTransitionSamePhaseNoOp(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)

	res, err := applyTransition(s, model.PhaseConsent, start.Add(time.Minute))
	if err != nil {
		t.Fatalf("applyTransition: %v", err)
	}
	if res.Changed {
		t.Error("same-phase transition must be a no-op")
	}
	if s.Consent.Completed || s.Consent.DurationSeconds != 0 {
		t.Error("no-op must not mutate the session")
	}
}

func TestApplyTransitionBackwardRejected(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)
	s.CurrentPhase = model.PhasePostQuiz

	_, err := applyTransition(s, model.PhasePreQuiz, start.Add(time.Minute))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if s.CurrentPhase != model.PhasePostQuiz {
		t.Error("rejected transition must not mutate the session")
	}
}

func TestApplyTransitionDurationAccumulates(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSession(start)
	s.Consent.DurationSeconds = 40
	s.Consent.Completed = true
	prevCompletedAt := start.Add(-time.Hour)
	s.Consent.CompletedAt = &prevCompletedAt

	at := start.Add(25 * time.Second)
	res, err := applyTransition(s, model.PhasePreQuiz, at)
	if err != nil {
		t.Fatalf("applyTransition: %v", err)
	}
	if s.Consent.DurationSeconds != 65 {
		t.Errorf("duration = %d, want accumulated 65", s.Consent.DurationSeconds)
	}
	if res.ClosedDurationSeconds != 25 {
		t.Errorf("closed duration = %d, want 25", res.ClosedDurationSeconds)
	}
	if !s.Consent.CompletedAt.Equal(prevCompletedAt) {
		t.Error("completion timestamp must be set exactly once")
	}
}

func TestApplyTransitionNegativeDurationClamped(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSession(start)

	// Client clock behind the phase start.
	res, err := applyTransition(s, model.PhasePreQuiz, start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("applyTransition: %v", err)
	}
	if res.ClosedDurationSeconds != 0 || s.Consent.DurationSeconds != 0 {
		t.Errorf("negative duration must clamp to 0, got %d", s.Consent.DurationSeconds)
	}
}

func TestApplyTransitionCompletionRequiresAllPhases(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("skip leaves study incomplete", func(t *testing.T) {
		s := newTestSession(start)
		res, err := applyTransition(s, model.PhaseCompleted, start.Add(time.Minute))
		if err != nil {
			t.Fatalf("applyTransition: %v", err)
		}
		if !res.Changed {
			t.Error("forward skip must still change the phase")
		}
		if s.IsCompleted {
			t.Error("study must not complete with unfinished phases")
		}
		if !s.IsActive || s.EndedAt != nil {
			t.Error("incomplete study must keep the session active")
		}
	})

	t.Run("full protocol completes the study", func(t *testing.T) {
		s := newTestSession(start)
		at := start
		for _, next := range []model.Phase{model.PhasePreQuiz, model.PhaseInteraction, model.PhasePostQuiz, model.PhaseCompleted} {
			at = at.Add(time.Minute)
			if _, err := applyTransition(s, next, at); err != nil {
				t.Fatalf("transition to %s: %v", next, err)
			}
		}
		if !s.IsCompleted {
			t.Error("completing every phase must complete the study")
		}
		if s.IsActive {
			t.Error("completed study must deactivate the session")
		}
		if s.EndedAt == nil || !s.EndedAt.Equal(at) {
			t.Error("completed study must stamp the session end")
		}
	})
}

func TestBuildBreakdown(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSession(start)

	at := start.Add(30 * time.Second)
	if _, err := applyTransition(s, model.PhasePreQuiz, at); err != nil {
		t.Fatalf("transition: %v", err)
	}

	now := at.Add(45 * time.Second)
	b := buildBreakdown(s, now)

	if b.CurrentPhase != model.PhasePreQuiz {
		t.Errorf("current phase = %s", b.CurrentPhase)
	}
	if b.Durations[model.PhaseConsent] != 30 {
		t.Errorf("consent duration = %d, want 30", b.Durations[model.PhaseConsent])
	}
	if b.LiveElapsed != 45 {
		t.Errorf("live elapsed = %d, want 45", b.LiveElapsed)
	}
	if b.TotalSeconds != 75 {
		t.Errorf("total = %d, want 75", b.TotalSeconds)
	}
	if !b.CompletionFlags[model.PhaseConsent] || b.CompletionFlags[model.PhasePreQuiz] {
		t.Error("completion flags must track exited phases only")
	}

	s.IsActive = false
	inactive := buildBreakdown(s, now)
	if inactive.LiveElapsed != 0 {
		t.Error("inactive session must not accrue live elapsed time")
	}
}
