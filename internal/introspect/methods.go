package introspect

import "reflect"

// Method looks up an exported method on the pointer type of t.
func Method(t reflect.Type, name string) (reflect.Method, bool) {
	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}
	return t.MethodByName(name)
}

// Inputs returns the parameter types of m, without the receiver.
func Inputs(m reflect.Method) []reflect.Type {
	mt := m.Type
	in := make([]reflect.Type, 0, mt.NumIn())
	for i := 1; i < mt.NumIn(); i++ {
		in = append(in, mt.In(i))
	}
	return in
}

// ReturnsNothing reports whether m has no results.
func ReturnsNothing(m reflect.Method) bool {
	return m.Type.NumOut() == 0
}

// ReturnsOnlyError reports whether m returns exactly one error.
func ReturnsOnlyError(m reflect.Method) bool {
	return m.Type.NumOut() == 1 && m.Type.Out(0) == errorType
}

// InputsMatch reports whether m's parameters equal want, in order.
func InputsMatch(m reflect.Method, want []reflect.Type) bool {
	in := Inputs(m)
	if len(in) != len(want) {
		return false
	}

	for i := range in {
		if in[i] != want[i] {
			return false
		}
	}

	return true
}
