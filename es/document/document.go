// Package document defines the mutable current-state documents maintained by
// projections and by direct CRUD use, together with the predicate model used
// to query them.
package document

import "time"

// Document is a stored current-state value addressed by type + id.
//
// Data is an opaque serialized payload; the store never inspects it beyond
// the indexed-field predicates of a Query. VersionToken is opaque to
// callers and changes on every successful write; presenting a stale token
// to Put fails the write.
type Document struct {
	Type         string
	ID           string
	Data         []byte
	VersionToken string
	UpdatedAt    time.Time
}

// NoToken disables the version-token check on Put (last-write-wins).
const NoToken = ""

// Op is a comparison operator usable in a Predicate.
type Op int

const (
	// OpEq matches documents whose field equals the value.
	OpEq Op = iota
	// OpLt matches documents whose field is less than the value.
	OpLt
	// OpLe matches documents whose field is less than or equal to the value.
	OpLe
	// OpGt matches documents whose field is greater than the value.
	OpGt
	// OpGe matches documents whose field is greater than or equal to the value.
	OpGe
)

// String returns the SQL operator for the Op.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "="
	}
}

// Predicate compares a declared indexed field of the document payload
// against a value. Field names refer to top-level payload fields.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

// Eq builds an equality predicate.
func Eq(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Lt builds a less-than predicate.
func Lt(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpLt, Value: value}
}

// Le builds a less-than-or-equal predicate.
func Le(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpLe, Value: value}
}

// Gt builds a greater-than predicate.
func Gt(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpGt, Value: value}
}

// Ge builds a greater-than-or-equal predicate.
func Ge(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpGe, Value: value}
}

// Query selects documents of one type. All predicates are ANDed.
// Ordering is stable: results are sorted by OrderBy (when set) with
// (type, id) as tiebreak, so paging with Limit/Offset never skips or
// repeats documents between calls against unchanged data.
type Query struct {
	Where   []Predicate
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}
