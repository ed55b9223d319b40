package chartspec

import (
	"fmt"
	"sort"
)

// 颜色规则默认值
const (
	DefaultCategoryField   = "category"
	DefaultValueField      = "value"
	DefaultFallbackColor   = "#95a5a6"
	DefaultSelectionName   = "cross_filter_selection"
	DefaultUnselectedColor = "#bdc3c7"
)

// ColorRule is one of Gradient, Conditional or Selection.
type ColorRule interface {
	apply(s *Spec) (*Spec, error)
}

// ApplyColorRule replaces the color treatment of s according to rule.
func ApplyColorRule(s *Spec, rule ColorRule) (*Spec, error) {
	if rule == nil {
		return nil, invalid("color_rule", "is required")
	}
	return rule.apply(s)
}

// Stop is a gradient color stop at Position in [0,1].
type Stop struct {
	Position float64 `json:"position"`
	Color    string  `json:"color"`
}

// Gradient binds color to a data field with a scale range built from stops.
type Gradient struct {
	Stops []Stop
	// Interpolation is "linear" (default) or "radial"; radial maps to a sqrt scale.
	Interpolation string
	CategoryField string
	ValueField    string
}

func (g Gradient) apply(s *Spec) (*Spec, error) {
	if len(g.Stops) < 2 {
		return nil, invalid("color_rule.stops", "a gradient needs at least 2 stops")
	}
	stops := make([]Stop, len(g.Stops))
	copy(stops, g.Stops)
	for i, st := range stops {
		if st.Position < 0 || st.Position > 1 {
			return nil, invalid(fmt.Sprintf("color_rule.stops[%d].position", i), "must be within [0,1]")
		}
		if st.Color == "" {
			return nil, invalid(fmt.Sprintf("color_rule.stops[%d].color", i), "is required")
		}
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position })

	scaleType := "linear"
	switch g.Interpolation {
	case "", "linear":
	case "radial":
		scaleType = "sqrt"
	default:
		return nil, invalid("color_rule.interpolation", "must be linear or radial")
	}

	colors := make([]any, len(stops))
	for i, st := range stops {
		colors[i] = st.Color
	}

	var binding Object
	if isCategorical(s.MarkType()) {
		binding = Object{
			"field": orDefault(g.CategoryField, DefaultCategoryField),
			"type":  FieldNominal,
			"scale": map[string]any{"range": colors},
		}
	} else {
		binding = Object{
			"field": orDefault(g.ValueField, DefaultValueField),
			"type":  FieldQuantitative,
			"scale": map[string]any{"type": scaleType, "range": colors},
		}
	}

	out := cloneOrEmpty(s)
	setChannel(out, "color", binding)
	return out, nil
}

// ColorTest is one (expression, color) pair of a Conditional rule.
type ColorTest struct {
	Test  string `json:"test"`
	Color string `json:"color"`
}

// Conditional colors marks by the first test that matches, else Fallback.
type Conditional struct {
	Tests    []ColorTest
	Fallback string
}

func (c Conditional) apply(s *Spec) (*Spec, error) {
	if len(c.Tests) == 0 {
		return nil, invalid("color_rule.tests", "at least one test is required")
	}
	conds := make([]any, len(c.Tests))
	for i, t := range c.Tests {
		if t.Test == "" || t.Color == "" {
			return nil, invalid(fmt.Sprintf("color_rule.tests[%d]", i), "test and color are required")
		}
		conds[i] = map[string]any{"test": t.Test, "value": t.Color}
	}

	out := cloneOrEmpty(s)
	setChannel(out, "color", Object{
		"condition": conds,
		"value":     orDefault(c.Fallback, DefaultFallbackColor),
	})
	return out, nil
}

// Selection links color and opacity to an interactive selection param.
type Selection struct {
	Name string
	// Type is "point" (default) or "interval".
	Type            string
	Fields          []string
	UnselectedColor string
	// nil means 1 for selected and 0.3 for unselected marks.
	SelectedOpacity   *float64
	UnselectedOpacity *float64
}

func (sel Selection) apply(s *Spec) (*Spec, error) {
	name := orDefault(sel.Name, DefaultSelectionName)
	typ := orDefault(sel.Type, "point")
	if typ != "point" && typ != "interval" {
		return nil, invalid("color_rule.type", "must be point or interval")
	}
	if len(sel.Fields) == 0 || sel.Fields[0] == "" {
		return nil, invalid("color_rule.fields", "at least one field is required")
	}
	selected, unselected := 1.0, 0.3
	if sel.SelectedOpacity != nil {
		selected = *sel.SelectedOpacity
	}
	if sel.UnselectedOpacity != nil {
		unselected = *sel.UnselectedOpacity
	}
	if selected == unselected {
		return nil, invalid("color_rule.opacity", "selected and unselected opacity must differ")
	}

	fields := make([]any, len(sel.Fields))
	for i, f := range sel.Fields {
		fields[i] = f
	}
	body := Object{"type": typ, "fields": fields}
	if typ == "point" {
		body["toggle"] = true
		body["clear"] = "dblclick"
	}

	out, err := UpsertParam(s, Param{Name: name, Body: Object{"select": body}})
	if err != nil {
		return nil, err
	}
	out, err = MergeMark(out, Object{"cursor": "pointer", "tooltip": true})
	if err != nil {
		return nil, err
	}
	setChannel(out, "color", Object{
		"condition": map[string]any{"param": name, "field": sel.Fields[0], "type": FieldNominal},
		"value":     orDefault(sel.UnselectedColor, DefaultUnselectedColor),
	})
	setChannel(out, "opacity", Object{
		"condition": map[string]any{"param": name, "value": selected},
		"value":     unselected,
	})
	return out, nil
}

// ColorRuleSpec is the wire form of a ColorRule, discriminated by Kind.
type ColorRuleSpec struct {
	Kind string `json:"kind" binding:"required,oneof=gradient conditional selection"`

	Stops         []Stop `json:"stops,omitempty"`
	Interpolation string `json:"interpolation,omitempty"`
	CategoryField string `json:"category_field,omitempty"`
	ValueField    string `json:"value_field,omitempty"`

	Tests    []ColorTest `json:"tests,omitempty"`
	Fallback string      `json:"fallback,omitempty"`

	Name              string   `json:"name,omitempty"`
	SelectionType     string   `json:"selection_type,omitempty"`
	Fields            []string `json:"fields,omitempty"`
	UnselectedColor   string   `json:"unselected_color,omitempty"`
	SelectedOpacity   *float64 `json:"selected_opacity,omitempty"`
	UnselectedOpacity *float64 `json:"unselected_opacity,omitempty"`
}

// Rule converts the wire form into a ColorRule.
func (c *ColorRuleSpec) Rule() (ColorRule, error) {
	switch c.Kind {
	case "gradient":
		return Gradient{
			Stops:         c.Stops,
			Interpolation: c.Interpolation,
			CategoryField: c.CategoryField,
			ValueField:    c.ValueField,
		}, nil
	case "conditional":
		return Conditional{Tests: c.Tests, Fallback: c.Fallback}, nil
	case "selection":
		return Selection{
			Name:              c.Name,
			Type:              c.SelectionType,
			Fields:            c.Fields,
			UnselectedColor:   c.UnselectedColor,
			SelectedOpacity:   c.SelectedOpacity,
			UnselectedOpacity: c.UnselectedOpacity,
		}, nil
	}
	return nil, invalid("color_rule.kind", fmt.Sprintf("unknown kind %q", c.Kind))
}

func isCategorical(markType string) bool {
	return markType == "arc" || markType == "pie"
}

// setChannel replaces a channel wholesale; out must already be a private copy.
func setChannel(out *Spec, channel string, binding Object) {
	if out.Encoding == nil {
		out.Encoding = Object{}
	}
	out.Encoding[channel] = binding
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
