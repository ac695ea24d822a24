package decode

import (
	"reflect"
	"testing"

	"github.com/kevin0x90/qson/shape"
)

type person struct {
	Name string
	Age  int
}

func newPersonState() State {
	fields := []ObjectField{
		{Name: "name", State: NewScalarState(shape.String, reflect.TypeOf(""))},
		{Name: "age", State: NewScalarState(shape.I64, reflect.TypeOf(0))},
	}
	nameIdx, ageIdx := 0, 1
	fields[0].Set = func(target, value reflect.Value) { target.FieldByIndex([]int{nameIdx}).Set(value) }
	fields[1].Set = func(target, value reflect.Value) { target.FieldByIndex([]int{ageIdx}).Set(value) }
	return NewObjectState(fields, reflect.TypeOf(person{}))
}

func parseOneShot(t *testing.T, root State, input string) reflect.Value {
	t.Helper()
	ctx := NewContext(root, NewOptions())
	if err := ctx.Feed([]byte(input)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	v, err := ctx.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return v
}

func TestObjectRoundTrip(t *testing.T) {
	v := parseOneShot(t, newPersonState(), `{"name": "Ada", "age": 36}`)
	p := v.Interface().(person)
	if p.Name != "Ada" || p.Age != 36 {
		t.Errorf("expected {Ada 36} got %+v", p)
	}
}

func TestObjectUnknownFieldDiscarded(t *testing.T) {
	v := parseOneShot(t, newPersonState(), `{"name": "Ada", "extra": [1,2,3], "age": 36}`)
	p := v.Interface().(person)
	if p.Name != "Ada" || p.Age != 36 {
		t.Errorf("expected unknown field to be discarded, got %+v", p)
	}
}

func TestObjectRejectUnknownField(t *testing.T) {
	ctx := NewContext(newPersonState(), Options{MaxDepth: DefaultMaxDepth, RejectUnknownFields: true})
	err := ctx.Feed([]byte(`{"name": "Ada", "extra": 1, "age": 36}`))
	if err == nil {
		t.Fatalf("expected an UnknownField error")
	}
	if perr, ok := err.(*Error); !ok || perr.Kind != UnknownField {
		t.Errorf("expected UnknownField, got %v", err)
	}
}

func TestObjectDuplicateFieldPolicy(t *testing.T) {
	// default: last write wins
	v := parseOneShot(t, newPersonState(), `{"name": "Ada", "name": "Grace", "age": 1}`)
	if got := v.Interface().(person).Name; got != "Grace" {
		t.Errorf("expected last-write-wins, got %v", got)
	}

	// strict: duplicate fields error
	ctx := NewContext(newPersonState(), Options{MaxDepth: DefaultMaxDepth, StrictDuplicateFields: true})
	err := ctx.Feed([]byte(`{"name": "Ada", "name": "Grace", "age": 1}`))
	if err == nil {
		t.Fatalf("expected DuplicateField error")
	}
	if perr, ok := err.(*Error); !ok || perr.Kind != DuplicateField {
		t.Errorf("expected DuplicateField, got %v", err)
	}
}

func TestListRoundTrip(t *testing.T) {
	st := NewListState(NewScalarState(shape.I64, reflect.TypeOf(0)), reflect.TypeOf([]int{}))
	v := parseOneShot(t, st, `[1, 2, 3]`)
	if got := v.Interface().([]int); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3] got %v", got)
	}
}

func TestListEmpty(t *testing.T) {
	st := NewListState(NewScalarState(shape.I64, reflect.TypeOf(0)), reflect.TypeOf([]int{}))
	v := parseOneShot(t, st, `[]`)
	if got := v.Interface().([]int); len(got) != 0 {
		t.Errorf("expected empty slice got %v", got)
	}
}

func TestListTrailingCommaRejected(t *testing.T) {
	st := NewListState(NewScalarState(shape.I64, reflect.TypeOf(0)), reflect.TypeOf([]int{}))
	ctx := NewContext(st, NewOptions())
	if err := ctx.Feed([]byte(`[1, 2, ]`)); err == nil {
		t.Fatalf("expected trailing comma to be rejected")
	}
}

func TestListNullElement(t *testing.T) {
	st := NewListState(NewScalarState(shape.String, reflect.TypeOf("")), reflect.TypeOf([]string{}))
	v := parseOneShot(t, st, `["a", null, "c"]`)
	got := v.Interface().([]string)
	if !reflect.DeepEqual(got, []string{"a", "", "c"}) {
		t.Errorf("expected null element to become the zero value, got %v", got)
	}
}

func TestListPointerElementRoundTrip(t *testing.T) {
	// The canonical recursive-tree shape (e.g. `Children []*Node`) reflects
	// its element shape off the dereferenced struct, but the slice's own
	// GoType still holds the pointer; ListState must re-wrap each decoded
	// element in a fresh pointer rather than handing reflect.Append a bare
	// struct value.
	st := NewListState(newPersonState(), reflect.TypeOf([]*person{}))
	v := parseOneShot(t, st, `[{"name": "Ada", "age": 36}, {"name": "Grace", "age": 34}]`)
	got := v.Interface().([]*person)
	if len(got) != 2 || got[0] == nil || got[1] == nil {
		t.Fatalf("expected two non-nil elements, got %+v", got)
	}
	if got[0].Name != "Ada" || got[1].Name != "Grace" {
		t.Errorf("unexpected pointer-element slice: %+v %+v", got[0], got[1])
	}
}

func TestListPointerElementNull(t *testing.T) {
	st := NewListState(newPersonState(), reflect.TypeOf([]*person{}))
	v := parseOneShot(t, st, `[null, {"name": "Ada", "age": 36}]`)
	got := v.Interface().([]*person)
	if got[0] != nil {
		t.Errorf("expected nil for a null element, got %+v", got[0])
	}
	if got[1] == nil || got[1].Name != "Ada" {
		t.Errorf("unexpected second element: %+v", got[1])
	}
}

func TestMapPointerElementRoundTrip(t *testing.T) {
	st := NewMapState(newPersonState(), shape.String, reflect.TypeOf(""), reflect.TypeOf(map[string]*person{}))
	v := parseOneShot(t, st, `{"a": {"name": "Ada", "age": 36}}`)
	got := v.Interface().(map[string]*person)
	if got["a"] == nil || got["a"].Name != "Ada" {
		t.Errorf("unexpected pointer-element map: %+v", got)
	}
}

func TestNumberOutOfRangeOffsetPointsToLiteralStart(t *testing.T) {
	ctx := NewContext(NewScalarState(shape.I8, reflect.TypeOf(int8(0))), NewOptions())
	err := ctx.Feed([]byte("  999"))
	if err == nil {
		// A number at the end of a chunk may continue in the next one; it
		// only terminates (and is range-checked) once Finish signals EOF.
		_, err = ctx.Finish()
	}
	if err == nil {
		t.Fatalf("expected an error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != NumberOutOfRange {
		t.Fatalf("expected NumberOutOfRange, got %v", err)
	}
	if perr.Offset != 2 {
		t.Errorf("expected offset 2 (start of the literal, not past it), got %d", perr.Offset)
	}
}

func TestMapRoundTrip(t *testing.T) {
	st := NewMapState(
		NewScalarState(shape.I64, reflect.TypeOf(0)),
		shape.String, reflect.TypeOf(""),
		reflect.TypeOf(map[string]int{}),
	)
	v := parseOneShot(t, st, `{"a": 1, "b": 2}`)
	got := v.Interface().(map[string]int)
	if got["a"] != 1 || got["b"] != 2 || len(got) != 2 {
		t.Errorf("unexpected map: %v", got)
	}
}

func TestMapDuplicateKeyLastWriteWins(t *testing.T) {
	st := NewMapState(
		NewScalarState(shape.I64, reflect.TypeOf(0)),
		shape.String, reflect.TypeOf(""),
		reflect.TypeOf(map[string]int{}),
	)
	v := parseOneShot(t, st, `{"a": 1, "a": 2}`)
	got := v.Interface().(map[string]int)
	if got["a"] != 2 {
		t.Errorf("expected last-write-wins value 2, got %v", got["a"])
	}
}

func TestAnyValueDispatch(t *testing.T) {
	v := parseOneShot(t, AnyState(), `{"a": [1, 2.5, "s", true, null]}`)
	a := v.Interface().(*shape.Any)
	arr, err := a.Key("a").AsArray()
	if err != nil {
		t.Fatalf("expected array: %v", err)
	}
	if i, _ := arr[0].AsInteger(); i != 1 {
		t.Errorf("expected integer 1 got %v", arr[0])
	}
	if n, _ := arr[1].AsNumber(); n != 2.5 {
		t.Errorf("expected 2.5 got %v", arr[1])
	}
	if s, _ := arr[2].AsString(); s != "s" {
		t.Errorf("expected 's' got %v", arr[2])
	}
	if b, _ := arr[3].AsBoolean(); !b {
		t.Errorf("expected true got %v", arr[3])
	}
	if arr[4].Kind() != shape.AnyNull {
		t.Errorf("expected null got %v", arr[4])
	}
}

func TestScalarBoundaries(t *testing.T) {
	for _, test := range []struct {
		name    string
		kind    shape.ScalarKind
		goType  reflect.Type
		input   string
		wantErr Kind
		wantOK  bool
	}{
		{"i8 max ok", shape.I8, reflect.TypeOf(int8(0)), "127", 0, true},
		{"i8 overflow", shape.I8, reflect.TypeOf(int8(0)), "128", NumberOutOfRange, false},
		{"u8 max ok", shape.U8, reflect.TypeOf(uint8(0)), "255", 0, true},
		{"u8 overflow", shape.U8, reflect.TypeOf(uint8(0)), "256", NumberOutOfRange, false},
		{"fraction rejected for integer kind", shape.I32, reflect.TypeOf(int32(0)), "1.5", TypeMismatch, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx := NewContext(NewScalarState(test.kind, test.goType), NewOptions())
			err := ctx.Feed([]byte(test.input))
			if err == nil {
				_, err = ctx.Finish()
			}
			if test.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error")
			}
			if perr, ok := err.(*Error); !ok || perr.Kind != test.wantErr {
				t.Errorf("expected %v got %v", test.wantErr, err)
			}
		})
	}
}

func TestStringEscapes(t *testing.T) {
	st := NewScalarState(shape.String, reflect.TypeOf(""))
	v := parseOneShot(t, st, `"a\tb\nc\"\\/A"`)
	if got := v.String(); got != "a\tb\nc\"\\/A" {
		t.Errorf("unexpected decoded string: %q", got)
	}
}

func TestSurrogatePair(t *testing.T) {
	st := NewScalarState(shape.String, reflect.TypeOf(""))
	v := parseOneShot(t, st, "\"\\uD83D\\uDE00\"")
	if got := []rune(v.String()); len(got) != 1 || got[0] != 0x1F600 {
		t.Errorf("expected single rune U+1F600, got %v", got)
	}
}

func TestSuspensionClosureAcrossChunks(t *testing.T) {
	st := NewListState(NewScalarState(shape.String, reflect.TypeOf("")), reflect.TypeOf([]string{}))
	whole := `["foo","bar"]`
	for split := 0; split <= len(whole); split++ {
		t.Run(whole[:split]+"|"+whole[split:], func(t *testing.T) {
			ctx := NewContext(st, NewOptions())
			if err := ctx.Feed([]byte(whole[:split])); err != nil {
				t.Fatalf("first chunk: %v", err)
			}
			if !ctx.Done() {
				if err := ctx.Feed([]byte(whole[split:])); err != nil {
					t.Fatalf("second chunk: %v", err)
				}
			}
			v, err := ctx.Finish()
			if err != nil {
				t.Fatalf("Finish: %v", err)
			}
			got := v.Interface().([]string)
			if !reflect.DeepEqual(got, []string{"foo", "bar"}) {
				t.Errorf("expected [foo bar] got %v", got)
			}
		})
	}
}

func TestMaxNestingDepth(t *testing.T) {
	inner := NewScalarState(shape.I64, reflect.TypeOf(0))
	var st State = inner
	// Build a deeply nested single-element list-of-list-of-...-of-int by
	// reusing one ListState per level (each level's element is the prior
	// level's state), matching how the plan builder composes trees.
	for i := 0; i < 3; i++ {
		st = NewListState(st, reflect.SliceOf(reflect.TypeOf(0)))
	}
	ctx := NewContext(st, Options{MaxDepth: 2})
	input := "[[[1]]]"
	if err := ctx.Feed([]byte(input)); err == nil {
		t.Fatalf("expected UnexpectedToken for exceeding max nesting depth")
	} else if perr, ok := err.(*Error); !ok || perr.Kind != UnexpectedToken {
		t.Errorf("expected UnexpectedToken got %v", err)
	}
}
