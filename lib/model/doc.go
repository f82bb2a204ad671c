// Package model binds typed fields to entries of two key-value stores,
// a durable one and a session scoped one.
//
// A model type is defined once, with its fields, in package level variables:
//
//	var (
//		Settings = model.Define("settings")
//		Theme    = model.Declare[string](Settings, "theme", model.WithDefault[string]("light"))
//		Draft    = model.Declare[string](Settings, "draft", model.WithScope[string](model.Session))
//	)
//
// A model instance is a type at a path. Each field is stored under path/key:
//
//	s := model.New(Settings, storage, "app/settings")
//	err := Theme.In(s).Set("dark")         // app/settings/theme = {"val":"dark"}
//	theme, err := Theme.In(s).Get()        // "dark"
//
// Nested models live at derived paths and share the flat key space of their parent:
//
//	item := s.ChildAt(Item, "items", 0)    // app/settings/items/0
//	err = s.Clear()                        // removes every key below app/settings/ in both stores
//
// # Stored values
//
// By default a value is stored in a JSON envelope, {"val":<value>}. An explicitly
// absent value (Field.Unset) is stored as {}. This keeps three cases apart:
//
//   - no key stored: the read yields the configured default
//   - {} stored: the read yields an absent value, the default does not apply
//   - {"val":...} stored: the read yields that value, including 0, "", false and null
//
// A field may replace either direction with WithSerializer or WithDeserializer,
// which then work on the raw stored string.
//
// # Caching
//
// Each field of each model instance has a cache slot. With caching enabled (the default)
// a field is read from the store at most once, later reads return the slot.
// Writes through the field always go to the store and then fill the slot. Writes
// through another instance or directly to the store are not observed until the
// slot is refilled, Field.Delete and Model.Clear empty it.
//
// # Types and inheritance
//
// A type may extend another with Extends. It inherits all fields of its parent;
// declaring a field with an inherited name replaces the inherited configuration.
// The field list of a type is resolved when the first model of that type is created,
// declaring fields after that panics.
package model
