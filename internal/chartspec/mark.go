package chartspec

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Mark is the canonical form of the mark field. On the wire a mark is either
// a bare type tag ("bar") or an object with a type and style attributes;
// both decode into this struct and it always encodes as an object.
type Mark struct {
	Type  string
	Attrs Object
}

// Attr returns a style attribute, or nil.
func (m *Mark) Attr(name string) any {
	if m == nil || m.Attrs == nil {
		return nil
	}
	return m.Attrs[name]
}

func (m Mark) clone() Mark {
	out := Mark{Type: m.Type}
	if m.Attrs != nil {
		out.Attrs = deepCopy(m.Attrs).(map[string]any)
	}
	return out
}

func (m Mark) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(m.Attrs)+1)
	for k, v := range m.Attrs {
		doc[k] = v
	}
	typ := m.Type
	if typ == "" {
		typ = DefaultMarkType
	}
	doc["type"] = typ
	return json.Marshal(doc)
}

func (m *Mark) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return invalid("mark", "invalid mark type")
		}
		*m = Mark{Type: tag}
		return nil
	}

	obj, err := decodeObject(data)
	if err != nil {
		return invalid("mark", "must be a type name or an object")
	}

	out := Mark{}
	if raw, ok := obj["type"]; ok {
		tag, ok := raw.(string)
		if !ok {
			return invalid("mark.type", "must be a string")
		}
		out.Type = tag
		delete(obj, "type")
	}
	if len(obj) > 0 {
		out.Attrs = obj
	}
	*m = out
	return nil
}
