package model

import (
	"errors"
	"slices"
	"testing"
)

// expectPanic fails the test if fn does not panic
func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected a panic", name)
		}
	}()
	fn()
}

func fieldNames(specs []FieldSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name()
	}
	return names
}

func TestInheritance(t *testing.T) {
	reg := NewRegistry()
	base := reg.Define("base")
	baseA := Declare(base, "a", WithDefault(1))
	Declare(base, "b", WithDefault("b"))
	Declare[bool](base, "c")

	derived := reg.Define("derived", Extends(base))
	derivedB := Declare(derived, "b", WithDefault("override"), WithScope[string](Session))
	Declare[float64](derived, "d")

	if got := fieldNames(derived.Fields()); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Expected fields [a b c d], got %v", got)
	}
	if got := fieldNames(base.Fields()); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected the parent to keep [a b c], got %v", got)
	}

	spec, ok := derived.Field("b")
	if !ok || spec != FieldSpec(derivedB) || spec.Scope() != Session || spec.Owner() != derived {
		t.Errorf("Expected the override of b, got %v", spec)
	}
	if spec, _ := base.Field("b"); spec.Scope() != Durable {
		t.Error("Expected the parent field b to keep its configuration")
	}

	s := newTestStorage(t)
	m := New(derived, s, "test")

	// an inherited field is reachable through the config of the parent
	if got, err := baseA.In(m).Get(); err != nil || got != 1 {
		t.Errorf("Expected inherited default 1, got %d err=%v", got, err)
	}
	if got, err := derivedB.In(m).Get(); err != nil || got != "override" {
		t.Errorf("Expected override default, got %s err=%v", got, err)
	}
	if err := derivedB.In(m).Set("x"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Session().Get("test/b"); !found {
		t.Error("Expected the overridden field in the session store")
	}

	if !derived.IsA(base) || base.IsA(derived) || derived.Parent() != base {
		t.Error("Unexpected type hierarchy")
	}
}

func TestOverrideChangingType(t *testing.T) {
	reg := NewRegistry()
	base := reg.Define("base")
	baseField := Declare[int](base, "field")
	derived := reg.Define("derived", Extends(base))
	Declare[string](derived, "field")

	m := New(derived, newTestStorage(t), "test")

	if _, err := FieldOf[int](m, "field"); !errors.Is(err, ErrFieldType) {
		t.Errorf("Expected ErrFieldType, got %v", err)
	}
	if _, err := FieldOf[string](m, "field"); err != nil {
		t.Errorf("Expected the string field, got %v", err)
	}
	expectPanic(t, "In with the replaced type", func() { baseField.In(m) })
}

func TestFieldLookupErrors(t *testing.T) {
	reg := NewRegistry()
	a := reg.Define("a")
	fieldA := Declare[int](a, "x")
	b := reg.Define("b")

	m := New(b, newTestStorage(t), "test")
	if _, err := FieldOf[int](m, "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
	expectPanic(t, "In on a foreign type", func() { fieldA.In(m) })

	if got := New(a, newTestStorage(t), "test").Fields(); len(got) != 1 || got[0].Name() != "x" {
		t.Errorf("Expected the bound field x, got %v", fieldNames(got))
	}
}

func TestTypeSealing(t *testing.T) {
	reg := NewRegistry()
	typ := reg.Define("sealed")
	Declare[int](typ, "x")

	expectPanic(t, "duplicate field", func() { Declare[int](typ, "x") })

	_ = New(typ, newTestStorage(t), "test")
	expectPanic(t, "declare after use", func() { Declare[int](typ, "y") })

	// resolving a child seals the parent too
	parent := reg.Define("parent")
	child := reg.Define("child", Extends(parent))
	_ = child.Fields()
	expectPanic(t, "declare on a resolved parent", func() { Declare[int](parent, "z") })
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	typ := reg.Define("one")
	reg.Define("two")

	expectPanic(t, "duplicate type", func() { reg.Define("one") })

	if got, ok := reg.Lookup("one"); !ok || got != typ || got.Name() != "one" {
		t.Errorf("Expected to find type one, got %v", got)
	}
	if _, ok := reg.Lookup("three"); ok {
		t.Error("Expected type three to be unknown")
	}
	if got := reg.Names(); !slices.Equal(got, []string{"one", "two"}) {
		t.Errorf("Expected [one two], got %v", got)
	}

	// registries are independent
	other := NewRegistry()
	other.Define("one")
}

func TestFieldDefaults(t *testing.T) {
	reg := NewRegistry()
	typ := reg.Define("defaults")
	field := Declare[int](typ, "field")

	if field.Key() != "field" || field.Scope() != Durable || !field.Cached() || field.Default().Present {
		t.Errorf("Unexpected defaults key=%s scope=%s cached=%v default=%v",
			field.Key(), field.Scope(), field.Cached(), field.Default())
	}
	if _, ok := field.Codec().(envelope[int]); !ok {
		t.Errorf("Expected the envelope codec, got %T", field.Codec())
	}
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"durable": Durable, "Session": Session, "local": Durable} {
		if got, err := ParseScope(in); err != nil || got != want {
			t.Errorf("ParseScope(%q): expected %s, got %s err=%v", in, want, got, err)
		}
	}
	if _, err := ParseScope("cloud"); err == nil {
		t.Error("Expected an error for an unknown scope")
	}
	if Scope(7).String() != "Scope(7)" {
		t.Errorf("Unexpected String for an unknown scope: %s", Scope(7))
	}
}
