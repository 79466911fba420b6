package monday

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	houseNumberRe = regexp.MustCompile(`^\d+[A-Z]*$`)
	postcodeRe    = regexp.MustCompile(`^[A-Z]{1,2}\d{1,2}[A-Z]?$`)
)

// shortWordAllowlist keeps common short location words that would otherwise
// be dropped by the length filter.
var shortWordAllowlist = map[string]bool{"OF": true, "ST": true, "DR": true, "RD": true}

// filterMeaningfulWords drops house numbers, postcode fragments, and short
// noise tokens from a project name, keeping words that identify the
// location or building.
func filterMeaningfulWords(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		upper := strings.ToUpper(word)
		if houseNumberRe.MatchString(upper) {
			continue
		}
		if postcodeRe.MatchString(upper) {
			continue
		}
		if len(word) <= 2 && !shortWordAllowlist[upper] {
			continue
		}
		out = append(out, word)
	}
	return out
}

// SearchProjects implements Client. It first queries the board with
// word-by-word contains rules, retries with fewer words when nothing
// matches, and finally falls back to a full scan ranked locally by
// similarity.
func (c *apiClient) SearchProjects(ctx context.Context, projectName string) (*SearchResult, error) {
	result := &SearchResult{Type: "new", Matches: []Match{}}

	words := filterMeaningfulWords(projectName)
	if len(words) == 0 {
		return c.fallbackSimilaritySearch(ctx, projectName, result)
	}

	matches, err := c.searchWithWords(ctx, words, projectName)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 && len(words) > 2 {
		zap.L().Debug("no results with all words, retrying with leading words",
			zap.Strings("words", words[:3]))
		matches, err = c.searchWithWords(ctx, words[:3], projectName)
		if err != nil {
			return nil, err
		}
	}

	if len(matches) == 0 {
		return c.fallbackSimilaritySearch(ctx, projectName, result)
	}

	result.Matches = matches
	result.Exists = true
	result.Type = "existing"
	result.BestMatch = &matches[0]
	result.Similarity = matches[0].Similarity
	return result, nil
}

// itemsPageData is the shape of an items_page query response.
type itemsPageData struct {
	Boards []struct {
		ItemsPage struct {
			Cursor string `json:"cursor"`
			Items  []Item `json:"items"`
		} `json:"items_page"`
	} `json:"boards"`
}

// searchWithWords queries items_page with a contains-text rule per word
// plus the created-date floor, then ranks active items by similarity.
func (c *apiClient) searchWithWords(ctx context.Context, words []string, original string) ([]Match, error) {
	var rules []string
	for _, word := range words {
		value, _ := json.Marshal([]string{word})
		rules = append(rules, fmt.Sprintf(`{column_id: %q, compare_value: %s, operator: contains_text}`, c.titleColumnID(), value))
	}
	rules = append(rules, fmt.Sprintf(`{column_id: %q, compare_value: ["EXACT", %q], operator: greater_than_or_equals}`, c.dateColumnID(), c.cfg.StartDate))

	query := fmt.Sprintf(`
	query {
	  boards(ids: [%s]) {
	    items_page(
	      query_params: { rules: [%s], operator: and },
	      limit: 500
	    ) {
	      cursor
	      items {
	        id
	        name
	        state
	        column_values(ids: [%q, %q]) {
	          id
	          text
	          __typename
	          ... on MirrorValue { display_value }
	        }
	      }
	    }
	  }
	}`, c.cfg.BoardID, strings.Join(rules, ","), c.titleColumnID(), c.dateColumnID())

	var data itemsPageData
	if err := c.execute(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, nil
	}

	return c.rankItems(data.Boards[0].ItemsPage.Items, original), nil
}

// rankItems converts active items to matches sorted by similarity against
// both the item name and the project-title column.
func (c *apiClient) rankItems(items []Item, original string) []Match {
	var matches []Match
	for _, item := range items {
		if item.State != "active" {
			continue
		}

		title := item.Name
		var createdDate string
		for _, col := range item.ColumnValues {
			switch col.ID {
			case c.titleColumnID():
				if v := col.Value(); v != "" {
					title = v
				}
			case c.dateColumnID():
				createdDate = col.Text
			}
		}

		similarity := similarityRatio(original, item.Name)
		if title != "" {
			if ts := similarityRatio(original, title); ts > similarity {
				similarity = ts
			}
		}

		matches = append(matches, Match{
			ID:          item.ID,
			Name:        item.Name,
			Title:       title,
			Similarity:  similarity,
			State:       item.State,
			CreatedDate: createdDate,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// fallbackSimilaritySearch pages through every active project since the
// start date and ranks locally, keeping candidates above the threshold.
func (c *apiClient) fallbackSimilaritySearch(ctx context.Context, projectName string, result *SearchResult) (*SearchResult, error) {
	items, err := c.listProjects(ctx)
	if err != nil {
		return nil, err
	}

	var kept []Match
	for _, m := range c.rankItems(items, projectName) {
		if m.Similarity >= c.cfg.SimilarityThreshold {
			kept = append(kept, m)
		}
	}

	result.Matches = kept
	if len(kept) > 0 {
		result.Exists = true
		result.Type = "existing"
		result.BestMatch = &kept[0]
		result.Similarity = kept[0].Similarity
	}
	return result, nil
}

// listProjects fetches all items created on or after the start date,
// following items_page cursors. The first page takes query_params, later
// pages take only the cursor; sending both is an API error.
func (c *apiClient) listProjects(ctx context.Context) ([]Item, error) {
	var all []Item
	cursor := ""

	for {
		var params string
		if cursor == "" {
			params = fmt.Sprintf(`limit: 500, query_params: { rules: [{column_id: %q, compare_value: ["EXACT", %q], operator: greater_than_or_equals}] }`, c.dateColumnID(), c.cfg.StartDate)
		} else {
			params = fmt.Sprintf(`limit: 500, cursor: %q`, cursor)
		}

		query := fmt.Sprintf(`
		query {
		  boards(ids: [%s]) {
		    items_page(%s) {
		      cursor
		      items {
		        id
		        name
		        state
		        column_values(ids: [%q, %q]) {
		          id
		          text
		          __typename
		          ... on MirrorValue { display_value }
		        }
		      }
		    }
		  }
		}`, c.cfg.BoardID, params, c.titleColumnID(), c.dateColumnID())

		var data itemsPageData
		if err := c.execute(ctx, query, nil, &data); err != nil {
			return nil, err
		}
		if len(data.Boards) == 0 {
			break
		}

		page := data.Boards[0].ItemsPage
		all = append(all, page.Items...)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return all, nil
}

func (c *apiClient) titleColumnID() string { return "text3__1" }

func (c *apiClient) dateColumnID() string { return "date9__1" }
