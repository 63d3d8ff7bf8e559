package registry

import (
	"path"
	"reflect"
	"strings"
)

// TypeName returns the registry key for v's type: the package-qualified type
// name (last import path element plus type name) with pointers removed and
// generic type arguments stripped. Two instantiations of one generic type
// share a key. A string argument is taken as an already-formed key.
//
//	TypeName(&mTestModule{})   // "test.mTestModule"
//	TypeName(&Buffer[int]{})   // "registry.Buffer"
func TypeName(v any) string {
	if s, ok := v.(string); ok {
		return StripTypeArguments(s)
	}
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return name
	}
	return path.Base(t.PkgPath()) + "." + StripTypeArguments(name)
}

// StripTypeArguments removes a generic ("Foo[int]") or template ("Foo<int>")
// argument list.
func StripTypeArguments(name string) string {
	if i := strings.IndexAny(name, "[<"); i >= 0 {
		return name[:i]
	}
	return name
}
