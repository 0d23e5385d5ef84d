package climate

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Expected-type names used in FieldError messages.
const (
	typeString    = "string"
	typeInteger   = "integer"
	typeNumber    = "number"
	typeBool      = "bool"
	typeObject    = "object"
	typeList      = "list"
	typeTimestamp = "timestamp"
)

// timestampLayouts are tried in order. The zone-less layout is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// record reads typed fields out of one raw mapping. The prefix is
// prepended to key names in errors so nested failures point at the full path.
type record struct {
	prefix string
	m      map[string]any
}

func newRecord(prefix string, m map[string]any) record {
	return record{prefix: prefix, m: m}
}

func (r record) path(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + "." + key
}

func (r record) missing(key, expected string) error {
	return &FieldError{Path: r.path(key), Expected: expected, Err: ErrMissingField}
}

func (r record) mismatch(key, expected string, got any) error {
	return &FieldError{
		Path:     r.path(key),
		Expected: fmt.Sprintf("%s, got %T", expected, got),
		Err:      ErrTypeMismatch,
	}
}

// lookup treats JSON null the same as an absent key.
func (r record) lookup(key string) (any, bool) {
	v, ok := r.m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r record) str(key string) (string, error) {
	v, ok := r.lookup(key)
	if !ok {
		return "", r.missing(key, typeString)
	}
	s, ok := v.(string)
	if !ok {
		return "", r.mismatch(key, typeString, v)
	}
	return s, nil
}

// optStr returns def when the key is absent.
func (r record) optStr(key, def string) (string, error) {
	if _, ok := r.lookup(key); !ok {
		return def, nil
	}
	return r.str(key)
}

// nullableStr returns nil when the key is absent.
func (r record) nullableStr(key string) (*string, error) {
	if _, ok := r.lookup(key); !ok {
		return nil, nil
	}
	s, err := r.str(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r record) integer(key string) (int, error) {
	v, ok := r.lookup(key)
	if !ok {
		return 0, r.missing(key, typeInteger)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, r.mismatch(key, typeInteger, v)
	}
	return n, nil
}

func (r record) float(key string) (float64, error) {
	v, ok := r.lookup(key)
	if !ok {
		return 0, r.missing(key, typeNumber)
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, r.mismatch(key, typeNumber, v)
	}
	return f, nil
}

func (r record) boolean(key string) (bool, error) {
	v, ok := r.lookup(key)
	if !ok {
		return false, r.missing(key, typeBool)
	}
	b, ok := v.(bool)
	if !ok {
		return false, r.mismatch(key, typeBool, v)
	}
	return b, nil
}

// object returns a deep copy of a required nested object.
func (r record) object(key string) (Opaque, error) {
	v, ok := r.lookup(key)
	if !ok {
		return nil, r.missing(key, typeObject)
	}
	m, ok := asObject(v)
	if !ok {
		return nil, r.mismatch(key, typeObject, v)
	}
	return Opaque(deepCopyMap(m)), nil
}

// optObject returns an empty object when the key is absent.
func (r record) optObject(key string) (Opaque, error) {
	if _, ok := r.lookup(key); !ok {
		return Opaque{}, nil
	}
	return r.object(key)
}

func (r record) list(key string) ([]any, error) {
	v, ok := r.lookup(key)
	if !ok {
		return nil, r.missing(key, typeList)
	}
	l, ok := v.([]any)
	if !ok {
		return nil, r.mismatch(key, typeList, v)
	}
	return deepCopyList(l), nil
}

// optList returns an empty list when the key is absent.
func (r record) optList(key string) ([]any, error) {
	if _, ok := r.lookup(key); !ok {
		return []any{}, nil
	}
	return r.list(key)
}

// objects reads a required list whose elements must all be objects.
// The elements are not copied; callers decode them into typed values.
func (r record) objects(key string) ([]map[string]any, error) {
	v, ok := r.lookup(key)
	if !ok {
		return nil, r.missing(key, typeList)
	}
	return r.asObjects(key, v)
}

func (r record) optObjects(key string) ([]map[string]any, error) {
	v, ok := r.lookup(key)
	if !ok {
		return nil, nil
	}
	return r.asObjects(key, v)
}

func (r record) asObjects(key string, v any) ([]map[string]any, error) {
	l, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]map[string]any); ok {
			return typed, nil
		}
		return nil, r.mismatch(key, "list of objects", v)
	}
	out := make([]map[string]any, len(l))
	for i, elem := range l {
		m, ok := asObject(elem)
		if !ok {
			return nil, r.mismatch(fmt.Sprintf("%s[%d]", key, i), typeObject, elem)
		}
		out[i] = m
	}
	return out, nil
}

func (r record) boolMap(key string) (map[string]bool, error) {
	obj, err := r.object(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(obj))
	for k, v := range obj {
		b, ok := v.(bool)
		if !ok {
			return nil, r.mismatch(key+"."+k, typeBool, v)
		}
		out[k] = b
	}
	return out, nil
}

func (r record) timestamp(key string) (time.Time, error) {
	v, ok := r.lookup(key)
	if !ok {
		return time.Time{}, r.missing(key, typeTimestamp)
	}
	t, ok := asTime(v)
	if !ok {
		return time.Time{}, r.mismatch(key, typeTimestamp, v)
	}
	return t, nil
}

func (r record) nullableTimestamp(key string) (*time.Time, error) {
	if _, ok := r.lookup(key); !ok {
		return nil, nil
	}
	t, err := r.timestamp(key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// child returns a record over a required nested object, failing with
// ErrMissingStructure rather than ErrMissingField when it is absent.
func (r record) child(key string) (record, error) {
	v, ok := r.lookup(key)
	if !ok {
		return record{}, &FieldError{Path: r.path(key), Expected: typeObject, Err: ErrMissingStructure}
	}
	m, ok := asObject(v)
	if !ok {
		return record{}, r.mismatch(key, typeObject, v)
	}
	return newRecord(r.path(key), m), nil
}

// requireStructure checks that key is present without reading it.
func (r record) requireStructure(key, expected string) error {
	if _, ok := r.lookup(key); !ok {
		return &FieldError{Path: r.path(key), Expected: expected, Err: ErrMissingStructure}
	}
	return nil
}

// rejectKey fails if the raw record carries a key the parent injects.
func (r record) rejectKey(key string) error {
	if _, ok := r.m[key]; ok {
		return &FieldError{Path: r.path(key), Err: ErrConflictingField}
	}
	return nil
}

// onlyKeys fails with ErrUnknownField for any key not in allowed.
// Keys are checked in sorted order so the reported key is deterministic.
func (r record) onlyKeys(allowed []string) error {
	set := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		set[k] = struct{}{}
	}
	var unknown []string
	for k := range r.m {
		if _, ok := set[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &FieldError{
		Path:     r.path(unknown[0]),
		Expected: "one of " + strings.Join(allowed, ", "),
		Err:      ErrUnknownField,
	}
}

// asFloat accepts any JSON or Go numeric representation.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// maxExactInt is the largest magnitude a float64 holds exactly. Every
// decode path is bounded by it, so a payload decoded with UseNumber and
// the same payload decoded into float64 accept the same integers.
const maxExactInt = 1 << 53

// asInt accepts integer types and numbers with an integral value.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return bounded(int64(n))
	case int32:
		return int(n), true
	case int64:
		return bounded(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return bounded(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	default:
		f, ok := asFloat(v)
		if !ok {
			return 0, false
		}
		return integral(f)
	}
}

func bounded(i int64) (int, bool) {
	if i > maxExactInt || i < -maxExactInt {
		return 0, false
	}
	return int(i), true
}

func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, false
	}
	if f > maxExactInt || f < -maxExactInt {
		return 0, false
	}
	return int(f), true
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
