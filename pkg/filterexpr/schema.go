// Package filterexpr binds the filter and order_by strings of list
// requests to typed query parameters.
//
// Filters are a conjunctive subset of CEL: comparisons (==, >=, <=),
// startsWith and in over schema-whitelisted fields, joined with &&.
// Each predicate lands on the params struct field its schema entry
// names, so repositories consume plain typed values and never see the
// expression text. order_by accepts up to two whitelisted keys with
// optional asc or desc directions; the validated outcome lands on the
// params struct's OrderKeys.
package filterexpr

import "reflect"

// Msg is the request shape Bind accepts. List query structs satisfy
// it by exposing their raw filter and order_by inputs.
type Msg interface {
	GetFilter() string
	GetOrderBy() string
}

// ValueKind names the literal type a filter field accepts.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindTimestamp ValueKind = "timestamp"
)

// Op is a comparison operation a filter field may allow.
type Op string

const (
	OpEQ  Op = "=="
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpSW  Op = "startsWith"
	OpIN  Op = "in"
)

// SetterFunc overrides the default assignment of a literal to a
// params struct field, for destination types the binder does not
// know, such as driver-specific nullable wrappers.
type SetterFunc func(field reflect.Value, value any) error

// FilterField whitelists one filter field: the literal kind it takes
// and, per allowed operation, the params struct field that receives
// the literal.
type FilterField struct {
	Kind   ValueKind
	Ops    map[Op]string
	Setter SetterFunc
}

// OrderField maps an order key to its SQL column expression. Nulls
// may be "first" or "last" to pin rows with missing values.
type OrderField struct {
	Expr  string
	Nulls string
}

// OrderSchema whitelists order keys and fixes the defaults: the
// primary applied when order_by is empty, and the fallback appended
// as a tiebreaker when the request names a single key.
type OrderSchema struct {
	DefaultPrimary     string
	DefaultPrimaryDesc bool
	FallbackKey        string
	FallbackDesc       bool
	Fields             map[string]OrderField
}

// ResourceSchema aggregates the filter and order rules of one
// listable resource.
type ResourceSchema struct {
	Filter map[string]FilterField
	Order  OrderSchema
}
