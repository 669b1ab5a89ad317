package model

// FilterOp defines the supported filter operators.
type FilterOp string

const (
	OpEq    FilterOp = "=="    // Equal
	OpNe    FilterOp = "!="    // Not equal
	OpGt    FilterOp = ">"     // Greater than
	OpGte   FilterOp = ">="    // Greater than or equal
	OpLt    FilterOp = "<"     // Less than
	OpLte   FilterOp = "<="    // Less than or equal
	OpIn    FilterOp = "in"    // Field (or any element of an array field) is one of the values
	OpMatch FilterOp = "match" // Case-insensitive substring match on a string field
)

// ValidOps returns all valid filter operators.
func ValidOps() []FilterOp {
	return []FilterOp{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpMatch}
}

// IsValid checks if the operator is valid.
func (op FilterOp) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpMatch:
		return true
	}
	return false
}

// Item field names usable in filters and orderings.
const (
	FieldObjectID   = "objectID"
	FieldAuthor     = "author"
	FieldTags       = "_tags"
	FieldTitle      = "title"
	FieldCreatedAtI = "created_at_i"
	FieldPoints     = "points"
)

// Filters is a slice of Filter. All filters must hold (logical AND).
type Filters []Filter

// Filter represents a single predicate on an item field.
type Filter struct {
	Field string      `json:"field"`
	Op    FilterOp    `json:"op"`
	Value interface{} `json:"value"`
}

// Validate checks if the filter is valid.
func (f Filter) Validate() bool {
	if f.Field == "" {
		return false
	}
	return f.Op.IsValid()
}

// Validate checks every filter in the set.
func (fs Filters) Validate() bool {
	for _, f := range fs {
		if !f.Validate() {
			return false
		}
	}
	return true
}

// Order describes a sort key.
type Order struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Descending reports whether the order sorts from high to low.
func (o Order) Descending() bool {
	return o.Direction == "desc"
}

// Query is a compiled, read-only description of a page fetch.
type Query struct {
	Filters Filters `json:"filters"`
	OrderBy []Order `json:"orderBy"`
	Skip    int     `json:"skip"`
	Limit   int     `json:"limit"`
}
