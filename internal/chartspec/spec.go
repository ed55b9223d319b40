// Package chartspec models a Vega-Lite style chart specification and the
// structured partial updates the editor applies to it.
//
// A Spec keeps the four fields the editor understands (mark, encoding,
// config, params) in typed form and carries every other top-level field
// verbatim, so a document survives save/load without losing anything.
package chartspec

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Object is a decoded JSON object. It is an alias so nested values built by
// the mutators compare equal to the same values decoded from storage.
type Object = map[string]any

// 数据类型标签
const (
	FieldNominal      = "nominal"
	FieldQuantitative = "quantitative"
	FieldTemporal     = "temporal"
	FieldOrdinal      = "ordinal"
)

// DefaultMarkType is used when a document has no mark or a mark without a type.
const DefaultMarkType = "bar"

const SchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// Spec 图表规格文档
type Spec struct {
	Mark     *Mark
	Encoding Object
	Config   Object
	Params   []Param

	// Extra holds every other top-level field ($schema, data, title ...).
	Extra map[string]json.RawMessage
}

// Parse decodes a chart document. The mark is normalized to object form.
func Parse(data []byte) (*Spec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, invalid("", "chart spec must be a JSON object")
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns the template a new chart starts from.
func Default() *Spec {
	return &Spec{
		Mark: &Mark{Type: DefaultMarkType, Attrs: Object{"tooltip": true}},
		Encoding: Object{
			"x": map[string]any{"field": "category", "type": FieldNominal, "axis": map[string]any{"title": "Category"}},
			"y": map[string]any{"field": "value", "type": FieldQuantitative, "axis": map[string]any{"title": "Value"}},
		},
		Config: Object{
			"background": "#121826",
			"view":       map[string]any{"stroke": nil},
		},
		Extra: map[string]json.RawMessage{
			"$schema": json.RawMessage(`"` + SchemaURL + `"`),
			"data":    json.RawMessage(`{"name":"dataset"}`),
		},
	}
}

// MarkType returns the base mark type. It is the single place mark form is
// resolved; every mutation goes through it.
func (s *Spec) MarkType() string {
	if s == nil || s.Mark == nil || s.Mark.Type == "" {
		return DefaultMarkType
	}
	return s.Mark.Type
}

// mark returns the canonical mark object, creating it when absent.
func (s *Spec) mark() *Mark {
	if s.Mark == nil {
		s.Mark = &Mark{}
	}
	if s.Mark.Type == "" {
		s.Mark.Type = DefaultMarkType
	}
	if s.Mark.Attrs == nil {
		s.Mark.Attrs = Object{}
	}
	return s.Mark
}

// Channel returns the binding object of an encoding channel, or nil.
func (s *Spec) Channel(name string) Object {
	if s == nil || s.Encoding == nil {
		return nil
	}
	ch, _ := s.Encoding[name].(map[string]any)
	return ch
}

// ParamNames lists declared parameter names in order.
func (s *Spec) ParamNames() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	out := &Spec{}
	if s.Mark != nil {
		m := s.Mark.clone()
		out.Mark = &m
	}
	if s.Encoding != nil {
		out.Encoding = deepCopy(s.Encoding).(map[string]any)
	}
	if s.Config != nil {
		out.Config = deepCopy(s.Config).(map[string]any)
	}
	if s.Params != nil {
		out.Params = make([]Param, len(s.Params))
		for i, p := range s.Params {
			out.Params[i] = p.clone()
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func (s Spec) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		doc[k] = v
	}
	if s.Mark != nil {
		doc["mark"] = s.Mark
	}
	if s.Encoding != nil {
		doc["encoding"] = s.Encoding
	}
	if s.Config != nil {
		doc["config"] = s.Config
	}
	if s.Params != nil {
		doc["params"] = s.Params
	}
	return json.Marshal(doc)
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalid("", "chart spec must be a JSON object")
	}

	*s = Spec{}
	for key, value := range raw {
		switch key {
		case "mark":
			if isNull(value) {
				continue
			}
			var m Mark
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			s.Mark = &m
		case "encoding":
			if isNull(value) {
				continue
			}
			obj, err := decodeObject(value)
			if err != nil {
				return invalid("encoding", "must be an object")
			}
			s.Encoding = obj
		case "config":
			if isNull(value) {
				continue
			}
			obj, err := decodeObject(value)
			if err != nil {
				return invalid("config", "must be an object")
			}
			s.Config = obj
		case "params":
			if isNull(value) {
				continue
			}
			var params []Param
			if err := json.Unmarshal(value, &params); err != nil {
				return err
			}
			if params == nil {
				params = []Param{}
			}
			s.Params = dedupeParams(params)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			var buf bytes.Buffer
			if err := json.Compact(&buf, value); err != nil {
				return err
			}
			s.Extra[key] = buf.Bytes()
		}
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
