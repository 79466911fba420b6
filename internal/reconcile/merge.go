package reconcile

import (
	"strings"

	"github.com/taperedplus/design-intake/internal/model"
)

// subjectKey gets special treatment in the merge: a non-missing overlay
// subject always wins, even when it matches the board value.
const subjectKey = "Email Subject"

// overridableKeys is the closed set of fields a freshly extracted document
// may override on top of board data. Identifying and administrative fields
// (drawing reference, revision, company, contact) are assigned via the
// board and never overridden by document content.
var overridableKeys = map[string]bool{
	"Email Subject":      true,
	"Date Received":      true,
	"Hour Received":      true,
	"Target U-Value":     true,
	"Target Min U-Value": true,
	"Fall of Tapered":    true,
	"Tapered Insulation": true,
	"Decking":            true,
}

// Merge combines a board-sourced base set with an overlay extracted from
// the uploaded documents. The result starts as a copy of base with every
// key tagged ExternalBoard. For each overridable key, the overlay value
// wins (tagged EmailContent) when it is the subject field and not missing,
// or when it is not missing and differs from the base value after
// lowercasing and trimming. The case-insensitive compare keeps formatting
// noise from producing spurious overrides. A nil overlay returns base
// unchanged, fully board-sourced.
func Merge(base, overlay model.ParameterSet) (model.ParameterSet, model.ProvenanceMap) {
	merged := base.Clone()
	prov := make(model.ProvenanceMap, len(merged))
	for k := range merged {
		prov[k] = model.SourceBoard
	}

	if overlay == nil {
		return merged, prov
	}

	// Iterate the canonical key order so behavior never depends on map
	// iteration order.
	for _, key := range model.ParameterKeys {
		if !overridableKeys[key] {
			continue
		}
		value, ok := overlay[key]
		if !ok {
			continue
		}
		if model.IsMissing(value) {
			continue
		}
		if key != subjectKey && canon(value) == canon(merged[key]) {
			continue
		}
		merged[key] = value
		prov[key] = model.SourceEmail
	}

	return merged, prov
}

// ApplyBusinessRules stamps the deterministic post-merge rules onto the
// merged set. Reason for Change always reflects the session classification.
// Without a board match, Drawing Reference and Revision are deferred for
// manual assignment by internal staff.
func ApplyBusinessRules(params model.ParameterSet, prov model.ProvenanceMap, classification model.Classification, hasBoardMatch bool) {
	params["Reason for Change"] = string(classification)
	prov["Reason for Change"] = model.SourceRule

	if !hasBoardMatch {
		params["Drawing Reference"] = model.Deferred
		prov["Drawing Reference"] = model.SourceRule
		params["Revision"] = model.Deferred
		prov["Revision"] = model.SourceRule
	}
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
