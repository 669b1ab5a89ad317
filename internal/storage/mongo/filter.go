package mongo

import (
	"fmt"
	"regexp"

	"github.com/storyfeed/storyfeed/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
)

// makeFilterBSON compiles predicate descriptors into a single conjunctive
// filter document. Conditions on the same field share one operator document.
func makeFilterBSON(filters model.Filters) (bson.M, error) {
	bsonFilter := bson.M{}

	for _, f := range filters {
		if !f.Validate() {
			return nil, fmt.Errorf("%w: filter on %q with op %q", model.ErrInvalidArgument, f.Field, f.Op)
		}

		cond, ok := bsonFilter[f.Field].(bson.M)
		if !ok {
			cond = bson.M{}
			bsonFilter[f.Field] = cond
		}

		if f.Op == model.OpMatch {
			s, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: match on %q needs a string", model.ErrInvalidArgument, f.Field)
			}
			cond["$regex"] = regexp.QuoteMeta(s)
			cond["$options"] = "i"
			continue
		}

		cond[mapOp(f.Op)] = f.Value
	}

	return bsonFilter, nil
}

func mapOp(op model.FilterOp) string {
	switch op {
	case model.OpEq:
		return "$eq"
	case model.OpNe:
		return "$ne"
	case model.OpGt:
		return "$gt"
	case model.OpGte:
		return "$gte"
	case model.OpLt:
		return "$lt"
	case model.OpLte:
		return "$lte"
	case model.OpIn:
		return "$in"
	default:
		return ""
	}
}

// makeSortBSON returns the sort document for the given orderings. _id is
// appended as a final key so that pages are stable across equal sort keys.
func makeSortBSON(orders []model.Order) bson.D {
	sort := bson.D{}
	for _, o := range orders {
		dir := 1
		if o.Descending() {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}
