package catalog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FormatResult renders a tool outcome as the text the model reads back.
// Booleans become Success/Failed, scalars are stringified, sequences become
// a bracketed list of compact JSON records, records become compact JSON.
func FormatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return "No result"
	case bool:
		if r {
			return "Success"
		}
		return "Failed"
	case string:
		return r
	case int:
		return strconv.Itoa(r)
	case int64:
		return strconv.FormatInt(r, 10)
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return "Empty list"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = compactJSON(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return compactJSON(v)
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
