package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taperedplus/design-intake/internal/model"
)

func TestSessionNewEnquiryPath(t *testing.T) {
	s := NewSession()

	s, err := s.UploadStarted()
	require.NoError(t, err)
	assert.Equal(t, PhaseProcessing, s.Phase)

	s, err = s.UploadCompleted(false)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, model.NewEnquiry, s.Classification)

	s, err = s.ValidatorSubmitted()
	require.NoError(t, err)
	assert.Equal(t, PhaseValidating, s.Phase)
	assert.Equal(t, model.NewEnquiry, s.Classification)
}

func TestSessionAmendmentPath(t *testing.T) {
	s := NewSession()
	s, _ = s.UploadStarted()

	s, err := s.UploadCompleted(true)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingMatch, s.Phase)
	assert.Empty(t, s.Classification)

	s, err = s.MatchSelected(true)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, model.Amendment, s.Classification)
}

func TestSessionRejectingMatchesMeansNewEnquiry(t *testing.T) {
	s := Session{Phase: PhaseAwaitingMatch}

	s, err := s.MatchSelected(false)
	require.NoError(t, err)
	assert.Equal(t, model.NewEnquiry, s.Classification)
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	idle := NewSession()

	_, err := idle.UploadCompleted(false)
	assert.Error(t, err)
	_, err = idle.MatchSelected(true)
	assert.Error(t, err)
	_, err = idle.ValidatorSubmitted()
	assert.Error(t, err)

	ready := Session{Phase: PhaseReady, Classification: model.Amendment}
	_, err = ready.UploadStarted()
	assert.Error(t, err)
	_, err = ready.MatchSelected(false)
	assert.Error(t, err, "classification is immutable once chosen")
}

func TestSessionResetFromAnyPhase(t *testing.T) {
	for _, phase := range []Phase{PhaseIdle, PhaseProcessing, PhaseAwaitingMatch, PhaseReady, PhaseValidating} {
		s := Session{Phase: phase, Classification: model.Amendment}
		s = s.Reset()
		assert.Equal(t, PhaseIdle, s.Phase)
		assert.Empty(t, s.Classification)
	}
}

func TestSessionTransitionsArePure(t *testing.T) {
	s := NewSession()
	next, err := s.UploadStarted()
	require.NoError(t, err)

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, PhaseProcessing, next.Phase)
}
