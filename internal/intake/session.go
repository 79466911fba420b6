package intake

import (
	"github.com/rotisserie/eris"

	"github.com/taperedplus/design-intake/internal/model"
)

// Phase is where a session sits in the five-step intake wizard.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseProcessing    Phase = "processing"
	PhaseAwaitingMatch Phase = "awaiting_match"
	PhaseReady         Phase = "ready"
	PhaseValidating    Phase = "validating"
)

// Session is the workflow state for one enquiry. Transitions are pure:
// each returns the successor state and leaves the receiver untouched,
// so callers own synchronization and can replay or discard freely.
//
// Classification is chosen exactly once, when the upload either skips
// the match step (no candidates) or the user answers it. Only Reset
// clears it.
type Session struct {
	Phase          Phase
	Classification model.Classification
}

// NewSession returns an idle session.
func NewSession() Session {
	return Session{Phase: PhaseIdle}
}

// UploadStarted moves an idle session into processing.
func (s Session) UploadStarted() (Session, error) {
	if s.Phase != PhaseIdle {
		return s, eris.Errorf("intake: cannot start upload in phase %q", s.Phase)
	}
	return Session{Phase: PhaseProcessing}, nil
}

// UploadCompleted finishes processing. With candidate matches the user
// must choose; with none the enquiry is a new one and the session is
// ready immediately.
func (s Session) UploadCompleted(hasCandidates bool) (Session, error) {
	if s.Phase != PhaseProcessing {
		return s, eris.Errorf("intake: cannot complete upload in phase %q", s.Phase)
	}
	if hasCandidates {
		return Session{Phase: PhaseAwaitingMatch}, nil
	}
	return Session{Phase: PhaseReady, Classification: model.NewEnquiry}, nil
}

// MatchSelected records the user's answer to the match step. Confirming
// an existing project classifies the session as an amendment; rejecting
// every candidate classifies it as a new enquiry.
func (s Session) MatchSelected(confirmed bool) (Session, error) {
	if s.Phase != PhaseAwaitingMatch {
		return s, eris.Errorf("intake: cannot select match in phase %q", s.Phase)
	}
	cls := model.NewEnquiry
	if confirmed {
		cls = model.Amendment
	}
	return Session{Phase: PhaseReady, Classification: cls}, nil
}

// ValidatorSubmitted moves a ready session into validation.
func (s Session) ValidatorSubmitted() (Session, error) {
	if s.Phase != PhaseReady {
		return s, eris.Errorf("intake: cannot submit validator in phase %q", s.Phase)
	}
	return Session{Phase: PhaseValidating, Classification: s.Classification}, nil
}

// Reset discards the session from any phase, clearing the classification.
func (s Session) Reset() Session {
	return Session{Phase: PhaseIdle}
}
