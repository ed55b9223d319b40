package chartspec

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
)

// Integers at or beyond 2^53 lose precision as float64.
const maxExactInt = 1 << 53

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// normalize converts a caller supplied partial into the shape produced by
// decoding JSON: []string becomes []any, ints become float64 and so on.
// The result never aliases the input.
func normalize(field string, partial Object) (Object, error) {
	if partial == nil {
		return Object{}, nil
	}
	data, err := json.Marshal(partial)
	if err != nil {
		return nil, invalid(field, "must be JSON encodable")
	}
	out, err := decodeObject(data)
	if err != nil {
		return nil, invalid(field, "must be a JSON object")
	}
	if out == nil {
		out = Object{}
	}
	return out, nil
}

// mergeInto shallow-merges patch into dst. A nil value removes the key.
func mergeInto(dst, patch Object) {
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

func isDataType(tag string) bool {
	switch tag {
	case FieldNominal, FieldQuantitative, FieldTemporal, FieldOrdinal:
		return true
	}
	return false
}

// decodeObject decodes a JSON object. Numbers become float64 unless that would
// change an integer, in which case the literal is kept as json.Number.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	for k, v := range out {
		out[k] = exactNumbers(v)
	}
	return out, nil
}

func exactNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = exactNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = exactNumbers(val)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			if i > -maxExactInt && i < maxExactInt {
				return float64(i)
			}
			return t
		}
		if !strings.ContainsAny(string(t), ".eE") {
			return t
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}

// decodePartial decodes an optional object; null or absent yields nil.
func decodePartial(field string, data json.RawMessage) (Object, error) {
	if len(data) == 0 || isNull(data) {
		return nil, nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, invalid(field, "must be an object")
	}
	return obj, nil
}

// dedupeParams keeps the last declaration of each name at its position.
func dedupeParams(params []Param) []Param {
	last := make(map[string]int, len(params))
	for i, p := range params {
		last[p.Name] = i
	}
	if len(last) == len(params) {
		return params
	}
	out := make([]Param, 0, len(last))
	for i, p := range params {
		if last[p.Name] == i {
			out = append(out, p)
		}
	}
	return out
}
