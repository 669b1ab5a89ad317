// Package ingest pulls new items from the source into the store on a schedule.
//
// Progress is tracked by a watermark: the greatest created_at_i already in the
// store. Each cycle asks the source only for items strictly newer than it.
package ingest

import (
	"strconv"

	"github.com/storyfeed/storyfeed/pkg/model"
)

// AdmitFunc decides whether a fetched item is stored. A nil AdmitFunc admits
// everything.
type AdmitFunc func(*model.Item) bool

// LowerBound returns the source filter expression for a watermark, or "" when
// the store is empty.
func LowerBound(watermark *int64) string {
	if watermark == nil {
		return ""
	}
	return model.FieldCreatedAtI + ">" + strconv.FormatInt(*watermark, 10)
}

// Select returns the fetched items to insert.
//
// The source already applied the watermark bound, so items are not checked
// against it again, and items are not deduplicated by objectID: an item the
// source returns in two cycles is stored twice.
func Select(fetched []*model.Item, admit AdmitFunc) []*model.Item {
	out := make([]*model.Item, 0, len(fetched))
	for _, it := range fetched {
		if it == nil {
			continue
		}
		if admit != nil && !admit(it) {
			continue
		}
		out = append(out, it)
	}
	return out
}
