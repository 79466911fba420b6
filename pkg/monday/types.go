package monday

// ColumnValue is a single column value on an item or subitem. Mirror
// columns surface their content in DisplayValue rather than Text.
type ColumnValue struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Type         string `json:"type,omitempty"`
	Typename     string `json:"__typename,omitempty"`
	DisplayValue string `json:"display_value,omitempty"`
}

// Value returns the usable content of the column: Text when present,
// otherwise the mirror display value.
func (c ColumnValue) Value() string {
	if c.Text != "" && c.Text != "None" {
		return c.Text
	}
	if c.Typename == "MirrorValue" && c.DisplayValue != "" {
		return c.DisplayValue
	}
	return ""
}

// Item is a board item, optionally with its subitems (revisions).
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	State        string        `json:"state,omitempty"`
	ColumnValues []ColumnValue `json:"column_values,omitempty"`
	Subitems     []Item        `json:"subitems,omitempty"`
}

// Match is one search candidate, ranked by similarity to the query.
type Match struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Similarity  float64 `json:"similarity"`
	State       string  `json:"state,omitempty"`
	CreatedDate string  `json:"created_date,omitempty"`
}

// SearchResult is the outcome of a project search. Zero or multiple
// candidates is a normal workflow branch; the user picks manually.
type SearchResult struct {
	Exists     bool    `json:"exists"`
	Type       string  `json:"type"` // "new" or "existing"
	Matches    []Match `json:"matches"`
	BestMatch  *Match  `json:"best_match,omitempty"`
	Similarity float64 `json:"similarity_score"`
}

// ItemRequest describes a board item to create.
type ItemRequest struct {
	BoardID      string            `json:"board_id"`
	GroupID      string            `json:"group_id"`
	Name         string            `json:"item_name"`
	ColumnValues map[string]string `json:"column_values"`
	// File, when set, is uploaded to FileColumnID after creation.
	File         []byte `json:"-"`
	FileName     string `json:"file_name,omitempty"`
	FileColumnID string `json:"file_column_id,omitempty"`
}

// CreateResult reports the created item and the file-upload outcome.
type CreateResult struct {
	ItemID       string `json:"item_id"`
	FileUploaded bool   `json:"file_uploaded"`
}
