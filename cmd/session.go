package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/reconcile"
	"github.com/taperedplus/design-intake/pkg/monday"
)

// sessionView is the JSON shape of the workflow state.
type sessionView struct {
	Phase          intake.Phase         `json:"phase"`
	Classification model.Classification `json:"classification,omitempty"`
}

// transition applies a session transition under the lock. The server
// tracks one enquiry at a time, mirroring the single-user wizard flow.
func (a *api) transition(step func(intake.Session) (intake.Session, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	next, err := step(a.session)
	if err != nil {
		return err
	}
	a.session = next
	return nil
}

func (a *api) snapshotSession() intake.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	s := a.snapshotSession()
	writeJSON(w, http.StatusOK, sessionView{Phase: s.Phase, Classification: s.Classification})
}

func (a *api) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.session = a.session.Reset()
	s := a.session
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, sessionView{Phase: s.Phase, Classification: s.Classification})
}

// handleSelect records the user's answer to the match step. Confirming a
// board item classifies the enquiry as an amendment and merges the board's
// parameter set with the extracted one; rejecting every candidate
// classifies it as a new enquiry.
func (a *api) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirmed bool               `json:"confirmed"`
		ProjectID string             `json:"project_id"`
		Params    model.ParameterSet `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Confirmed && req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required when confirming a match")
		return
	}

	// Transitions are pure, so the answer can be validated up front. The
	// board fetch runs before the state commits; a transient Monday
	// failure leaves the session in awaiting_match for a clean retry.
	if _, err := a.snapshotSession().MatchSelected(req.Confirmed); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	merged := req.Params.Clone()
	prov := make(model.ProvenanceMap, len(merged))
	for k := range merged {
		prov[k] = model.SourceEmail
	}

	if req.Confirmed {
		item, err := a.monday.GetProjectByID(r.Context(), req.ProjectID)
		if err != nil {
			zap.L().Error("board fetch failed", zap.String("project_id", req.ProjectID), zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		merged, prov = reconcile.Merge(monday.BoardParameters(item, a.columns), req.Params)
	}

	if err := a.transition(func(s intake.Session) (intake.Session, error) {
		return s.MatchSelected(req.Confirmed)
	}); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s := a.snapshotSession()
	reconcile.ApplyBusinessRules(merged, prov, s.Classification, req.Confirmed)

	writeJSON(w, http.StatusOK, map[string]any{
		"session":    sessionView{Phase: s.Phase, Classification: s.Classification},
		"params":     merged,
		"provenance": prov,
		"validation": reconcile.Project(merged, s.Classification, a.columns),
	})
}

// handleValidate freezes the validator view for a ready session. The
// returned records are what the user confirms or edits before the board
// item is created; submitting moves the session into validation.
func (a *api) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params model.ParameterSet `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, "params is required")
		return
	}

	if err := a.transition(func(s intake.Session) (intake.Session, error) {
		return s.ValidatorSubmitted()
	}); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s := a.snapshotSession()

	writeJSON(w, http.StatusOK, map[string]any{
		"session":    sessionView{Phase: s.Phase, Classification: s.Classification},
		"validation": reconcile.Project(req.Params, s.Classification, a.columns),
	})
}
