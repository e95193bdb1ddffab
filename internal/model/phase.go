package model

// Phase is one ordered stage of the research protocol.
type Phase string

const (
	PhaseConsent     Phase = "consent"
	PhasePreQuiz     Phase = "pre_quiz"
	PhaseInteraction Phase = "interaction"
	PhasePostQuiz    Phase = "post_quiz"
	PhaseCompleted   Phase = "completed"
)

// phaseOrder fixes the protocol order. Transitions may only move to a phase
// with a strictly greater ordinal; PhaseCompleted is terminal.
var phaseOrder = map[Phase]int{
	PhaseConsent:     0,
	PhasePreQuiz:     1,
	PhaseInteraction: 2,
	PhasePostQuiz:    3,
	PhaseCompleted:   4,
}

// TrackedPhases are the phases that carry duration accounting and a
// completion flag (every phase except the terminal one).
var TrackedPhases = []Phase{PhaseConsent, PhasePreQuiz, PhaseInteraction, PhasePostQuiz}

// Valid reports whether p is a known protocol phase.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Ordinal returns the position of p in the protocol order, or -1 for an
// unknown phase.
func (p Phase) Ordinal() int {
	n, ok := phaseOrder[p]
	if !ok {
		return -1
	}
	return n
}

// CanAdvanceTo reports whether a session in phase p may transition to next.
// Equal phases are a no-op handled by the caller; backward or unknown
// targets are rejected.
func (p Phase) CanAdvanceTo(next Phase) bool {
	if !p.Valid() || !next.Valid() {
		return false
	}
	return next.Ordinal() > p.Ordinal()
}
