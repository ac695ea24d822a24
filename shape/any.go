package shape

import (
	"fmt"
	"strconv"
)

// AnyKind is the tag of a dynamic JSON value produced for the Any shape,
// or thrown away while discarding an unknown object field.
type AnyKind int

const (
	AnyNull AnyKind = iota
	AnyBool
	AnyInteger
	AnyNumber
	AnyString
	AnyArray
	AnyObject
	numAnyKinds
)

var anyKindStrings = [numAnyKinds]string{
	"<null>",
	"<boolean>",
	"<integer>",
	"<number>",
	"<string>",
	"<array>",
	"<object>",
}

func (k AnyKind) String() string {
	if k < 0 || k >= numAnyKinds {
		return "<unknown>"
	}
	return anyKindStrings[k]
}

// Any is a heterogeneous JSON value: the materialization of the Any shape,
// and also what an unknown object field is parsed into before being discarded.
type Any struct {
	kind    AnyKind
	integer int64
	number  float64
	str     string
	boolean bool
	array   []*Any
	object  []anyPair
}

type anyPair struct {
	key string
	val *Any
}

// Kind reports the dynamic type currently held.
func (a *Any) Kind() AnyKind {
	if a == nil {
		return AnyNull
	}
	return a.kind
}

func NewAnyNull() *Any           { return &Any{kind: AnyNull} }
func NewAnyBool(b bool) *Any     { return &Any{kind: AnyBool, boolean: b} }
func NewAnyInteger(i int64) *Any { return &Any{kind: AnyInteger, integer: i} }
func NewAnyNumber(f float64) *Any {
	return &Any{kind: AnyNumber, number: f}
}
func NewAnyString(s string) *Any { return &Any{kind: AnyString, str: s} }
func NewAnyArray(vs []*Any) *Any { return &Any{kind: AnyArray, array: vs} }
func NewAnyObject(pairs []struct {
	Key string
	Val *Any
}) *Any {
	v := &Any{kind: AnyObject}
	for _, p := range pairs {
		v.object = append(v.object, anyPair{key: p.Key, val: p.Val})
	}
	return v
}

// AppendArray grows an array value by one element.
func (a *Any) AppendArray(v *Any) {
	a.array = append(a.array, v)
}

// SetField is used by the decode driver to grow an in-progress object value
// one key/value pair at a time. Duplicate keys overwrite the prior value,
// matching last-write-wins semantics.
func (a *Any) SetField(key string, v *Any) {
	for i := range a.object {
		if a.object[i].key == key {
			a.object[i].val = v
			return
		}
	}
	a.object = append(a.object, anyPair{key: key, val: v})
}

// HasField reports whether key has already been written, for duplicate-key detection.
func (a *Any) HasField(key string) bool {
	for i := range a.object {
		if a.object[i].key == key {
			return true
		}
	}
	return false
}

// AsNull extracts a null value. Returns ErrType if the value is not null.
func (a *Any) AsNull() error {
	if a.kind == AnyNull {
		return nil
	}
	return fmt.Errorf("%w: value not null: %v", ErrType, a)
}

// AsNumber extracts a float64. Integers widen to float64; use AsInteger for exact precision.
func (a *Any) AsNumber() (float64, error) {
	switch a.kind {
	case AnyInteger:
		return float64(a.integer), nil
	case AnyNumber:
		return a.number, nil
	}
	return 0, fmt.Errorf("%w: value not a valid number: %v", ErrType, a)
}

// AsInteger extracts an int64. Does not convert a fractional number.
func (a *Any) AsInteger() (int64, error) {
	if a.kind == AnyInteger {
		return a.integer, nil
	}
	return 0, fmt.Errorf("%w: value not a valid integer: %v", ErrType, a)
}

// AsString extracts a string value.
func (a *Any) AsString() (string, error) {
	if a.kind == AnyString {
		return a.str, nil
	}
	return "", fmt.Errorf("%w: value not a valid string: %v", ErrType, a)
}

// AsBoolean extracts a boolean value.
func (a *Any) AsBoolean() (bool, error) {
	if a.kind == AnyBool {
		return a.boolean, nil
	}
	return false, fmt.Errorf("%w: value not a valid boolean: %v", ErrType, a)
}

// AsArray extracts the element slice of an array value.
func (a *Any) AsArray() ([]*Any, error) {
	if a.kind == AnyArray {
		return a.array, nil
	}
	return nil, fmt.Errorf("%w: value not a valid array: %v", ErrType, a)
}

// AsObject extracts the fields of an object value as a map.
func (a *Any) AsObject() (map[string]*Any, error) {
	if a.kind == AnyObject {
		m := make(map[string]*Any, len(a.object))
		for _, p := range a.object {
			m[p.key] = p.val
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: value not a valid object: %v", ErrType, a)
}

// Index is a fluent accessor for array members. Returns a null value instead of erroring
// on an out-of-range index or a non-array receiver.
func (a *Any) Index(i int) *Any {
	if a == nil || a.kind != AnyArray || i < 0 || i >= len(a.array) {
		return &Any{}
	}
	return a.array[i]
}

// Key is a fluent accessor for object members. Returns a null value instead of erroring
// on a missing key or a non-object receiver.
func (a *Any) Key(k string) *Any {
	if a == nil || a.kind != AnyObject {
		return &Any{}
	}
	for _, p := range a.object {
		if p.key == k {
			return p.val
		}
	}
	return &Any{}
}

// String renders a debug representation. This is NOT valid JSON output — use the
// writer engine (package encode) to produce wire-format JSON.
func (a *Any) String() string {
	if a == nil {
		return "null"
	}
	switch a.kind {
	case AnyNull:
		return "null"
	case AnyInteger:
		return strconv.FormatInt(a.integer, 10)
	case AnyNumber:
		return strconv.FormatFloat(a.number, 'f', -1, 64)
	case AnyString:
		return strconv.Quote(a.str)
	case AnyBool:
		if a.boolean {
			return "true"
		}
		return "false"
	case AnyArray:
		s := "["
		for i, v := range a.array {
			if i > 0 {
				s += ", "
			}
			s += v.String()
		}
		return s + "]"
	case AnyObject:
		s := "{"
		for i, p := range a.object {
			if i > 0 {
				s += ", "
			}
			s += strconv.Quote(p.key) + ": " + p.val.String()
		}
		return s + "}"
	}
	return "<unknown>"
}
