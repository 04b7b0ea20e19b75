package astra

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Op tags a filter node with its operator.
type Op string

const (
	OpAnd Op = "$and"
	OpOr  Op = "$or"
	OpEq  Op = "$eq"
	OpIn  Op = "$in"
)

// Filter is an explicit expression tree over stored document fields. It
// marshals to the Data API filter JSON ($and/$or arrays, implicit equality,
// $in membership). Keeping the tree explicit makes filters structurally
// comparable in tests without a live store.
type Filter struct {
	Op      Op
	Field   string    // OpEq, OpIn
	Value   string    // OpEq
	Values  []string  // OpIn
	Filters []*Filter // OpAnd, OpOr
}

// And combines sub-filters conjunctively.
func And(filters ...*Filter) *Filter {
	return &Filter{Op: OpAnd, Filters: filters}
}

// Or combines sub-filters disjunctively.
func Or(filters ...*Filter) *Filter {
	return &Filter{Op: OpOr, Filters: filters}
}

// Eq matches documents whose field equals value. On array fields the Data API
// treats this as membership.
func Eq(field, value string) *Filter {
	return &Filter{Op: OpEq, Field: field, Value: value}
}

// In matches documents whose field value (or any array element) is one of
// values.
func In(field string, values ...string) *Filter {
	return &Filter{Op: OpIn, Field: field, Values: values}
}

// Validate checks the tree for clauses the Data API would reject. Branch nodes
// need at least one sub-filter and leaf nodes need a field; an In clause needs
// at least one value.
func (f *Filter) Validate() error {
	switch f.Op {
	case OpAnd, OpOr:
		if len(f.Filters) == 0 {
			return fmt.Errorf("%w: empty %s clause", ErrInvalidFilter, f.Op)
		}
		for _, sub := range f.Filters {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	case OpEq:
		if f.Field == "" {
			return fmt.Errorf("%w: equality clause without field", ErrInvalidFilter)
		}
		return nil
	case OpIn:
		if f.Field == "" {
			return fmt.Errorf("%w: membership clause without field", ErrInvalidFilter)
		}
		if len(f.Values) == 0 {
			return fmt.Errorf("%w: empty $in values for field %q", ErrInvalidFilter, f.Field)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
	}
}

// Equal reports structural equality of two filter trees.
func (f *Filter) Equal(other *Filter) bool {
	return reflect.DeepEqual(f, other)
}

// MarshalJSON implements json.Marshaler, producing Data API filter syntax.
func (f *Filter) MarshalJSON() ([]byte, error) {
	switch f.Op {
	case OpAnd, OpOr:
		return json.Marshal(map[string][]*Filter{string(f.Op): f.Filters})
	case OpEq:
		return json.Marshal(map[string]string{f.Field: f.Value})
	case OpIn:
		return json.Marshal(map[string]map[string][]string{
			f.Field: {string(OpIn): f.Values},
		})
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
	}
}
