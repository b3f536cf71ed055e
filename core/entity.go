package core

import "slices"

// ValueKind discriminates the parameter forms of a STEP entity instance.
type ValueKind int

const (
	// KindNull is an unset attribute ($).
	KindNull ValueKind = iota
	// KindDerived is an attribute recomputed from others (*).
	KindDerived
	// KindString is a quoted string literal.
	KindString
	// KindInteger is an integer literal.
	KindInteger
	// KindReal is a real literal.
	KindReal
	// KindEnum is an enumeration literal such as .T. or .ELEMENT.
	KindEnum
	// KindBinary is a binary literal, kept in its hexadecimal form.
	KindBinary
	// KindRef is a reference to another entity instance (#n).
	KindRef
	// KindList is an aggregate of values.
	KindList
	// KindTyped is a value wrapped in a defined type, e.g. IFCLABEL('x').
	KindTyped
)

// Value is a single attribute value of an entity instance.
// Only the fields relevant to Kind are populated.
type Value struct {
	Kind ValueKind
	Str  string  // string, enum, binary text or type name for KindTyped
	Int  int64   // KindInteger
	Real float64 // KindReal
	Ref  uint64  // KindRef
	List []Value // KindList items, or the single wrapped value for KindTyped
}

// Null returns the unset value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Integer returns an integer value.
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// Real returns a real value.
func Real(f float64) Value { return Value{Kind: KindReal, Real: f} }

// Enum returns an enumeration value. The name is given without the surrounding dots.
func Enum(name string) Value { return Value{Kind: KindEnum, Str: name} }

// Ref returns a reference to the entity with the given label.
func Ref(label uint64) Value { return Value{Kind: KindRef, Ref: label} }

// List returns an aggregate value.
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Typed wraps v in the defined type typeName.
func Typed(typeName string, v Value) Value {
	return Value{Kind: KindTyped, Str: typeName, List: []Value{v}}
}

// Unwrap returns the innermost value of a typed value, or v itself.
func (v Value) Unwrap() Value {
	for v.Kind == KindTyped && len(v.List) == 1 {
		v = v.List[0]
	}
	return v
}

// Refs appends every entity label referenced by v, depth first.
func (v Value) Refs(dst []uint64) []uint64 {
	switch v.Kind {
	case KindRef:
		return append(dst, v.Ref)
	case KindList, KindTyped:
		for _, item := range v.List {
			dst = item.Refs(dst)
		}
	}
	return dst
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.List != nil {
		items := make([]Value, len(v.List))
		for i, item := range v.List {
			items[i] = item.Clone()
		}
		v.List = items
	}
	return v
}

// Equal reports whether two values are structurally identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Str != o.Str || v.Int != o.Int || v.Real != o.Real || v.Ref != o.Ref {
		return false
	}
	return slices.EqualFunc(v.List, o.List, Value.Equal)
}

// Entity is one instance of the DATA section of a model.
// Type is the upper-case entity class name, e.g. IFCWALL.
type Entity struct {
	Label      uint64
	Type       string
	Attributes []Value
}

// Attribute returns the attribute at index i, or the null value when out of range.
func (e *Entity) Attribute(i int) Value {
	if i < 0 || i >= len(e.Attributes) {
		return Null()
	}
	return e.Attributes[i]
}

// References returns the labels of every entity referenced by e, in attribute order.
func (e *Entity) References() []uint64 {
	var refs []uint64
	for _, attr := range e.Attributes {
		refs = attr.Refs(refs)
	}
	return refs
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	attrs := make([]Value, len(e.Attributes))
	for i, attr := range e.Attributes {
		attrs[i] = attr.Clone()
	}
	return &Entity{
		Label:      e.Label,
		Type:       e.Type,
		Attributes: attrs,
	}
}
