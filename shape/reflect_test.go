package shape

import (
	"reflect"
	"testing"
)

type reflectInner struct {
	Name string `json:"name"`
	Age  *int   `json:"age,omitempty"`
}

type reflectOuter struct {
	Inner   reflectInner   `json:"inner"`
	Tags    []string       `json:"tags"`
	Lookup  map[string]int `json:"lookup"`
	Hidden  string         `json:"-"`
	private string
	Dynamic any `json:"dynamic"`
}

type treeNode struct {
	Value    int         `json:"value"`
	Children []*treeNode `json:"children"`
}

func TestReflectStruct(t *testing.T) {
	s, err := Reflect(reflect.TypeOf(reflectOuter{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindObject {
		t.Fatalf("expected object kind got %v", s.Kind)
	}

	if _, ok := s.FieldByName("-"); ok {
		t.Errorf("json:\"-\" field must be dropped")
	}
	if _, ok := s.FieldByName("Hidden"); ok {
		t.Errorf("Hidden is tagged json:\"-\" and must not be reachable by its Go name")
	}

	inner, ok := s.FieldByName("inner")
	if !ok {
		t.Fatalf("expected field 'inner'")
	}
	if inner.Shape.Kind != KindObject {
		t.Errorf("expected nested object shape for inner")
	}

	age, ok := inner.Shape.FieldByName("age")
	if !ok {
		t.Fatalf("expected field 'age' on inner")
	}
	if !age.Optional {
		t.Errorf("pointer field must be Optional")
	}
	if age.Shape.Kind != KindScalar || age.Shape.Scalar != I64 {
		t.Errorf("expected *int to reflect to scalar i64, got %+v", age.Shape)
	}

	tags, ok := s.FieldByName("tags")
	if !ok || tags.Shape.Kind != KindList {
		t.Fatalf("expected list field 'tags'")
	}

	lookup, ok := s.FieldByName("lookup")
	if !ok || lookup.Shape.Kind != KindMap {
		t.Fatalf("expected map field 'lookup'")
	}

	dyn, ok := s.FieldByName("dynamic")
	if !ok || dyn.Shape.Kind != KindAny {
		t.Fatalf("expected any field 'dynamic'")
	}
}

func TestReflectSettersAndGetters(t *testing.T) {
	s, err := Reflect(reflect.TypeOf(reflectInner{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, _ := s.FieldByName("name")
	age, _ := s.FieldByName("age")

	target := reflect.New(reflect.TypeOf(reflectInner{})).Elem()
	name.Set(target, reflect.ValueOf("hi"))
	if got := name.Get(target).String(); got != "hi" {
		t.Errorf("expected hi got %v", got)
	}

	if v := age.Get(target); v.IsValid() {
		t.Errorf("expected invalid (absent) value for unset pointer field, got %v", v)
	}
	age.Set(target, reflect.ValueOf(int64(42)).Convert(reflect.TypeOf(int(0))))
	got := age.Get(target)
	if !got.IsValid() || got.Int() != 42 {
		t.Errorf("expected 42 got %v", got)
	}
}

func TestReflectCyclicStruct(t *testing.T) {
	s, err := Reflect(reflect.TypeOf(treeNode{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	children, ok := s.FieldByName("children")
	if !ok {
		t.Fatalf("expected field 'children'")
	}
	if children.Shape.Kind != KindList {
		t.Fatalf("expected list shape for children")
	}
	if children.Shape.Elem != s {
		t.Errorf("self-referential shape must resolve to the same *Shape pointer, got a distinct one")
	}
}

func TestReflectMemoReusesPointer(t *testing.T) {
	t1, _ := Reflect(reflect.TypeOf(reflectInner{}))
	t2, _ := Reflect(reflect.TypeOf(reflectInner{}))
	if t1 != t2 {
		t.Errorf("Reflect should memoize and return the same *Shape for the same reflect.Type")
	}
}

func TestReflectUnsupportedType(t *testing.T) {
	if _, err := Reflect(reflect.TypeOf(make(chan int))); err == nil {
		t.Errorf("expected error for unsupported type chan int")
	}
}
