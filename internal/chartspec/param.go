package chartspec

import (
	json "github.com/goccy/go-json"
)

// Param is a named parameter / selection declaration. Body holds every field
// besides the name (select, value, bind ...).
type Param struct {
	Name string
	Body Object
}

func (p Param) clone() Param {
	out := Param{Name: p.Name}
	if p.Body != nil {
		out.Body = deepCopy(p.Body).(map[string]any)
	}
	return out
}

func (p Param) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(p.Body)+1)
	for k, v := range p.Body {
		doc[k] = v
	}
	doc["name"] = p.Name
	return json.Marshal(doc)
}

func (p *Param) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return invalid("params", "each param must be an object")
	}
	name, _ := obj["name"].(string)
	if name == "" {
		return invalid("params.name", "is required")
	}
	delete(obj, "name")

	*p = Param{Name: name}
	if len(obj) > 0 {
		p.Body = obj
	}
	return nil
}
