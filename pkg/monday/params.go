package monday

import (
	"sort"
	"strings"
	"time"

	"github.com/taperedplus/design-intake/internal/model"
)

// BoardParameters flattens a fetched board item into the parameter set
// used as the merge base for an amendment. Revision detail lives on the
// latest subitem; item-level columns carry only the post code and the
// project name. Date Received is today: an amendment is a fresh request
// against an existing project, not a replay of the stored one.
func BoardParameters(item *Item, cols *model.ColumnMap) model.ParameterSet {
	if cols == nil {
		cols = model.DefaultColumnMap()
	}

	params := model.ParameterSet{
		"Post Code":          model.NotFound,
		"Drawing Reference":  model.NotFound,
		"Drawing Title":      model.NotFound,
		"Revision":           model.NotFound,
		"Date Received":      model.NotFound,
		"Company":            model.NotFound,
		"Contact":            model.NotFound,
		"Reason for Change":  string(model.Amendment),
		"Surveyor":           model.NotFound,
		"Target U-Value":     model.NotFound,
		"Target Min U-Value": model.NotFound,
		"Fall of Tapered":    model.NotFound,
		"Tapered Insulation": model.NotFound,
		"Decking":            model.NotFound,
	}
	if item == nil {
		return params
	}

	for _, col := range item.ColumnValues {
		switch col.ID {
		case cols.Item.PostCode:
			if v := col.Value(); v != "" {
				params["Post Code"] = v
			}
		case cols.Item.ProjectName:
			if v := col.Value(); v != "" {
				params["Drawing Title"] = v
			}
		}
	}

	params["Date Received"] = time.Now().Format("2006-01-02")

	if sub := latestSubitem(item.Subitems); sub != nil {
		// The subitem name is the full drawing reference, e.g.
		// "16903_25.01 - A". Names without the underscore are not
		// references and leave the default in place.
		if strings.Contains(sub.Name, "_") {
			params["Drawing Reference"] = sub.Name
		}
		for _, col := range sub.ColumnValues {
			name, ok := cols.Subitem[col.ID]
			if !ok {
				continue
			}
			if v := col.Value(); v != "" {
				params[name] = v
			}
		}
	}

	return params
}

// latestSubitem picks the newest revision. Monday item IDs are assigned
// in increasing order, so the highest ID wins.
func latestSubitem(subs []Item) *Item {
	if len(subs) == 0 {
		return nil
	}
	sorted := make([]Item, len(subs))
	copy(sorted, subs)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].ID, sorted[j].ID
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a > b
	})
	return &sorted[0]
}
