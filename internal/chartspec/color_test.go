package chartspec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoStops = []Stop{{Position: 1, Color: "#8B5CF6"}, {Position: 0, Color: "#3B82F6"}}

func TestGradient_ArcBindsCategory(t *testing.T) {
	s := mustParse(t, `{"mark":{"type":"arc","innerRadius":50},"encoding":{"theta":{"field":"value","type":"quantitative"}}}`)

	out, err := ApplyColorRule(s, Gradient{Stops: twoStops})
	require.NoError(t, err)

	color := out.Channel("color")
	assert.Equal(t, DefaultCategoryField, color["field"])
	assert.Equal(t, FieldNominal, color["type"])
	assert.Equal(t, map[string]any{"range": []any{"#3B82F6", "#8B5CF6"}}, color["scale"])
	assert.NotNil(t, out.Channel("theta"))
}

func TestGradient_StringArcMark(t *testing.T) {
	out, err := ApplyColorRule(mustParse(t, `{"mark":"arc"}`), Gradient{Stops: twoStops, CategoryField: "segment"})
	require.NoError(t, err)
	assert.Equal(t, "segment", out.Channel("color")["field"])
}

func TestGradient_BarBindsValue(t *testing.T) {
	out, err := ApplyColorRule(Default(), Gradient{Stops: twoStops, Interpolation: "radial"})
	require.NoError(t, err)

	color := out.Channel("color")
	assert.Equal(t, DefaultValueField, color["field"])
	assert.Equal(t, FieldQuantitative, color["type"])
	assert.Equal(t, map[string]any{"type": "sqrt", "range": []any{"#3B82F6", "#8B5CF6"}}, color["scale"])
}

func TestGradient_StableSort(t *testing.T) {
	stops := []Stop{{0.5, "b"}, {0, "a"}, {0.5, "c"}, {1, "d"}}
	out, err := ApplyColorRule(Default(), Gradient{Stops: stops})
	require.NoError(t, err)

	scale := out.Channel("color")["scale"].(map[string]any)
	assert.Equal(t, []any{"a", "b", "c", "d"}, scale["range"])
	assert.Equal(t, "b", stops[0].Color)
}

func TestGradient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		rule Gradient
	}{
		{"one stop", Gradient{Stops: []Stop{{0, "a"}}}},
		{"out of range", Gradient{Stops: []Stop{{0, "a"}, {1.5, "b"}}}},
		{"empty color", Gradient{Stops: []Stop{{0, "a"}, {1, ""}}}},
		{"interpolation", Gradient{Stops: twoStops, Interpolation: "cubic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyColorRule(Default(), tt.rule)
			assert.True(t, errors.Is(err, ErrInvalidSpec))
		})
	}
}

func TestConditional_OrderPreserved(t *testing.T) {
	rule := Conditional{Tests: []ColorTest{
		{Test: "datum.value > 100", Color: "#10B981"},
		{Test: "datum.value > 50", Color: "#F59E0B"},
	}}

	out, err := ApplyColorRule(Default(), rule)
	require.NoError(t, err)

	assert.Equal(t, Object{
		"condition": []any{
			map[string]any{"test": "datum.value > 100", "value": "#10B981"},
			map[string]any{"test": "datum.value > 50", "value": "#F59E0B"},
		},
		"value": DefaultFallbackColor,
	}, out.Channel("color"))
}

func TestConditional_RequiresTest(t *testing.T) {
	_, err := ApplyColorRule(Default(), Conditional{})
	assert.True(t, errors.Is(err, ErrInvalidSpec))

	_, err = ApplyColorRule(Default(), Conditional{Tests: []ColorTest{{Test: "", Color: "red"}}})
	assert.True(t, errors.Is(err, ErrInvalidSpec))
}

func TestSelection_LinksColorAndOpacity(t *testing.T) {
	s := mustParse(t, `{"mark":"bar","params":[{"name":"cross_filter_selection","value":0},{"name":"zoom","bind":"scales"}]}`)

	out, err := ApplyColorRule(s, Selection{Fields: []string{"category"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"zoom", DefaultSelectionName}, out.ParamNames())
	sel := out.Params[1].Body["select"].(map[string]any)
	assert.Equal(t, "point", sel["type"])
	assert.Equal(t, true, sel["toggle"])
	assert.Equal(t, "dblclick", sel["clear"])

	assert.Equal(t, "bar", out.MarkType())
	assert.Equal(t, "pointer", out.Mark.Attr("cursor"))
	assert.Equal(t, true, out.Mark.Attr("tooltip"))

	assert.Equal(t, Object{
		"condition": map[string]any{"param": DefaultSelectionName, "field": "category", "type": FieldNominal},
		"value":     DefaultUnselectedColor,
	}, out.Channel("color"))
	assert.Equal(t, Object{
		"condition": map[string]any{"param": DefaultSelectionName, "value": 1.0},
		"value":     0.3,
	}, out.Channel("opacity"))
}

func TestSelection_Interval(t *testing.T) {
	out, err := ApplyColorRule(Default(), Selection{Name: "brush", Type: "interval", Fields: []string{"value"}})
	require.NoError(t, err)

	sel := out.Params[0].Body["select"].(map[string]any)
	assert.Equal(t, "interval", sel["type"])
	assert.NotContains(t, sel, "toggle")
}

func TestSelection_Invalid(t *testing.T) {
	same := 0.5
	tests := []struct {
		name string
		rule Selection
	}{
		{"no fields", Selection{}},
		{"bad type", Selection{Type: "multi", Fields: []string{"a"}}},
		{"same opacity", Selection{Fields: []string{"a"}, SelectedOpacity: &same, UnselectedOpacity: &same}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyColorRule(Default(), tt.rule)
			assert.True(t, errors.Is(err, ErrInvalidSpec))
		})
	}
}

func TestColorRuleSpec_Rule(t *testing.T) {
	rule, err := (&ColorRuleSpec{Kind: "selection", SelectionType: "interval", Fields: []string{"a"}}).Rule()
	require.NoError(t, err)
	assert.Equal(t, Selection{Type: "interval", Fields: []string{"a"}}, rule)

	_, err = (&ColorRuleSpec{Kind: "rainbow"}).Rule()
	assert.True(t, errors.Is(err, ErrInvalidSpec))

	_, err = ApplyColorRule(Default(), nil)
	assert.True(t, errors.Is(err, ErrInvalidSpec))
}
