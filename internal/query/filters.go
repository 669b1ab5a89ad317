package query

import (
	"time"

	"github.com/storyfeed/storyfeed/pkg/model"
)

// PageSize is the fixed number of hits per page.
const PageSize = 5

// FilterSpec is the caller's search request. Every field is optional.
type FilterSpec struct {
	Author string
	Tags   []string
	Title  string
	Month  string
	// Page is 1-based; 0 means the first page.
	Page int
}

// SearchResult is one page of matching items plus pagination metadata.
type SearchResult struct {
	Hits    []*model.Item `json:"hits"`
	NbHits  int64         `json:"nbHits"`
	Page    int           `json:"page"`
	NbPages int64         `json:"nbPages"`
}

// BuildFilters turns a FilterSpec into the predicate list shared by the count and
// the page fetch. now fixes the year and location used for month bounds.
//
// A month only sets a lower bound: items from that month onward match.
func BuildFilters(spec FilterSpec, now time.Time) (model.Filters, error) {
	var filters model.Filters

	if spec.Author != "" {
		filters = append(filters, model.Filter{Field: model.FieldAuthor, Op: model.OpEq, Value: spec.Author})
	}
	if len(spec.Tags) > 0 {
		tags := append([]string(nil), spec.Tags...)
		filters = append(filters, model.Filter{Field: model.FieldTags, Op: model.OpIn, Value: tags})
	}
	if spec.Title != "" {
		filters = append(filters, model.Filter{Field: model.FieldTitle, Op: model.OpMatch, Value: spec.Title})
	}
	if spec.Month != "" {
		idx, err := MonthIndex(spec.Month)
		if err != nil {
			return nil, err
		}
		filters = append(filters, model.Filter{
			Field: model.FieldCreatedAtI,
			Op:    model.OpGte,
			Value: monthStart(idx, now),
		})
	}

	return filters, nil
}

func totalPages(total int64) int64 {
	return (total + PageSize - 1) / PageSize
}
