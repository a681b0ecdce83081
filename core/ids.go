package core

import (
	"fmt"
	"reflect"
	"strconv"
)

// maxIDDepth bounds how many `_id` wrappers NormalizeID unwraps.
const maxIDDepth = 8

type (
	// Identifiable is implemented by documents exposing their `_id`.
	Identifiable interface {
		Identifier() interface{}
	}

	hexer interface {
		Hex() string
	}
)

// NormalizeID returns the canonical string form of an identifier, whatever its representation:
// a plain string, a document exposing `_id` (Identifiable or a decoded JSON object),
// a value with a Hex() method (e.g. object ids), or any fmt.Stringer.
// It returns "" when no identifier can be derived.
func NormalizeID(v interface{}) string {
	return normalizeID(v, 0)
}

func normalizeID(v interface{}, depth int) string {
	if v == nil || depth > maxIDDepth || isNilPtr(v) {
		return ""
	}

	switch id := v.(type) {
	case string:
		return id
	case *string:
		return *id
	case Identifiable:
		return normalizeID(id.Identifier(), depth+1)
	case map[string]interface{}:
		if raw, ok := id["_id"]; ok {
			return normalizeID(raw, depth+1)
		}
		return ""
	case hexer:
		return id.Hex()
	case fmt.Stringer:
		// zero values (e.g. uuid.Nil) do not identify anything
		if reflect.ValueOf(id).IsZero() {
			return ""
		}
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64: // JSON numbers
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func isNilPtr(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// SameID reports whether a and b normalize to the same non-empty identifier.
func SameID(a, b interface{}) bool {
	idA := NormalizeID(a)
	return idA != "" && idA == NormalizeID(b)
}
