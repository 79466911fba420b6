package reconcile

import (
	"strings"

	"github.com/taperedplus/design-intake/internal/model"
)

// Project narrows a merged parameter set down to the subset the user
// validates before board-item creation, renaming keys to the board's
// column identifiers. Output order is fixed: date, hour, post code,
// enquiry type, then the derived drawing reference when present. The
// subset is a view; edits made to it feed only the outbound creation
// request.
func Project(merged model.ParameterSet, classification model.Classification, cols *model.ColumnMap) []model.ValidationRecord {
	if cols == nil {
		cols = model.DefaultColumnMap()
	}

	records := []model.ValidationRecord{
		{
			Key:         "Date Received",
			DisplayName: "Date Received",
			Value:       ToStorageDate(Normalize(merged["Date Received"])),
			ColumnID:    cols.Create["Date Received"],
			Editable:    true,
		},
		{
			Key:         "Hour Received",
			DisplayName: "Hour Received",
			Value:       Normalize(merged["Hour Received"]),
			ColumnID:    cols.Create["Hour Received"],
			Editable:    true,
		},
		{
			Key:         "Post Code",
			DisplayName: "Post Code",
			Value:       Normalize(merged["Post Code"]),
			ColumnID:    cols.Create["Post Code"],
			Editable:    true,
		},
		{
			Key:         "Enquiry Type",
			DisplayName: "Enquiry Type",
			Value:       string(classification),
			ColumnID:    cols.Create["Reason for Change"],
			Editable:    false,
		},
	}

	if classification == model.Amendment {
		if ref := deriveDrawingReference(merged["Drawing Reference"]); ref != "" {
			records = append(records, model.ValidationRecord{
				Key:         "Drawing Reference",
				DisplayName: "Drawing Reference",
				Value:       ref,
				ColumnID:    cols.Create["Drawing Reference"],
				// Mechanically derived from the board record, never
				// hand-edited.
				Editable: false,
			})
		}
	}

	return records
}

// deriveDrawingReference normalizes the drawing reference and truncates it
// at the first underscore ("16903_25.01 - A" → "16903"). Returns "" when no
// usable reference exists.
func deriveDrawingReference(raw string) string {
	ref := Normalize(raw)
	if idx := strings.Index(ref, "_"); idx >= 0 {
		ref = ref[:idx]
	}
	ref = strings.TrimSpace(ref)
	if ref == "" || model.IsMissing(ref) {
		return ""
	}
	return ref
}
