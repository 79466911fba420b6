package model

import "strings"

// Sentinel values used throughout the parameter vocabulary. Extraction
// produces NotFound/NotProvided when a document carries no value; Deferred
// marks a field intentionally left for manual assignment by internal staff.
const (
	NotFound    = "Not found"
	NotProvided = "Not provided"
	Deferred    = "To be assigned by TaperedPlus"
)

// ParameterKeys is the closed vocabulary of design parameters, in canonical
// order. Every ParameterSet is keyed by a subset of these names.
var ParameterKeys = []string{
	"Email Subject",
	"Post Code",
	"Drawing Reference",
	"Drawing Title",
	"Revision",
	"Date Received",
	"Hour Received",
	"Company",
	"Contact",
	"Reason for Change",
	"Surveyor",
	"Target U-Value",
	"Target Min U-Value",
	"Fall of Tapered",
	"Tapered Insulation",
	"Decking",
}

// ParameterSet maps parameter names to string values. Iteration order is
// never meaningful; callers that need stable output iterate ParameterKeys.
type ParameterSet map[string]string

// Clone returns a shallow copy of the set.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// IsMissing reports whether a value carries no usable content: one of the
// no-value sentinels (case-insensitive), or empty after trimming. Empty is
// deliberately treated the same as the sentinels: a blank field can never
// override board data or count as a provided value.
func IsMissing(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", strings.ToLower(NotFound), strings.ToLower(NotProvided), strings.ToLower(Deferred):
		return true
	}
	return false
}

// Provenance identifies which source supplied a field's final value.
type Provenance string

const (
	// SourceEmail marks values taken from freshly extracted document content.
	SourceEmail Provenance = "EmailContent"
	// SourceBoard marks values carried over from the Monday.com record.
	SourceBoard Provenance = "ExternalBoard"
	// SourceRule marks values forced by a fixed business rule.
	SourceRule Provenance = "BusinessRule"
)

// ProvenanceMap assigns exactly one Provenance tag to every key present in
// a merged ParameterSet.
type ProvenanceMap map[string]Provenance

// Classification says whether an enquiry opens a new project or amends an
// existing one. It is chosen once per session and only a full reset clears it.
type Classification string

const (
	NewEnquiry Classification = "New Enquiry"
	Amendment  Classification = "Amendment"
)

// ValidationRecord is one row of the validatable subset shown to the user
// before board-item creation. It is a view over the merged set; edits feed
// the outbound creation request only, never the canonical merged set.
type ValidationRecord struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Value       string `json:"value"`
	ColumnID    string `json:"column_id"`
	Editable    bool   `json:"editable"`
}
