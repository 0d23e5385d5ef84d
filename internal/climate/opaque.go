package climate

// Opaque holds a nested JSON object whose shape this package does not
// interpret (time windows, operational data, gateway details, ...).
//
// Values are the ones encoding/json produces: map[string]any, []any,
// string, bool, float64 or json.Number, and nil.
type Opaque map[string]any

// Clone returns an independent deep copy.
func (o Opaque) Clone() Opaque {
	if o == nil {
		return Opaque{}
	}
	return Opaque(deepCopyMap(o))
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyList copies a slice and everything nested in it.
func deepCopyList(l []any) []any {
	if l == nil {
		return []any{}
	}
	cpy := make([]any, len(l))
	for i, elem := range l {
		cpy[i] = deepCopyValue(elem)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Opaque:
		return deepCopyMap(val)
	case []any:
		return deepCopyList(val)
	default:
		return v
	}
}

func cloneObjects(in []Opaque) []Opaque {
	out := make([]Opaque, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

// asObject accepts both the decoder's map type and Opaque.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Opaque:
		return m, true
	default:
		return nil, false
	}
}
