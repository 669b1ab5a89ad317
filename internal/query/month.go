package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/storyfeed/storyfeed/pkg/model"
)

var monthNames = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// MonthIndex resolves an English month name to its zero-based index.
// Matching is case-insensitive; anything else is ErrInvalidArgument.
func MonthIndex(name string) (int, error) {
	lower := strings.ToLower(name)
	for i, m := range monthNames {
		if m == lower {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown month %q", model.ErrInvalidArgument, name)
}

// monthStart returns the Unix seconds of the first day of the given month in
// the year of now, at midnight in now's location.
func monthStart(index int, now time.Time) int64 {
	return time.Date(now.Year(), time.Month(index+1), 1, 0, 0, 0, 0, now.Location()).Unix()
}
