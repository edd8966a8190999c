package report

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindFloat
	KindInt
	KindString
	KindBool
	KindEnum
)

// Value is one scalar of a record. Enums carry both their symbolic name and their label; each
// sink picks the projection it needs.
type Value struct {
	kind  Kind
	f     float64
	i     int64
	s     string
	label string
	b     bool
}

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Enum holds an enumerated value: name is the symbolic constant, label its wire representation.
func Enum(name, label string) Value { return Value{kind: KindEnum, s: name, label: label} }

// Null is the empty value used for missing cells.
func Null() Value { return Value{} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is empty.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Label projects the value to a plain scalar; enums reduce to their label.
func (v Value) Label() any {
	if v.kind == KindEnum {
		return v.label
	}

	return v.scalar()
}

// Name projects the value to a plain scalar; enums reduce to their symbolic name.
func (v Value) Name() any {
	if v.kind == KindEnum {
		return v.s
	}

	return v.scalar()
}

func (v Value) scalar() any {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Float64 returns the numeric value and whether the variant is numeric.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// String renders the label projection.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindEnum:
		return v.label
	default:
		return fmt.Sprint(v.scalar())
	}
}

// Of wraps a plain Go scalar. Unsupported types are rendered with fmt.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case fmt.Stringer:
		return String(x.String())
	default:
		return String(fmt.Sprint(x))
	}
}
