package chartspec

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_FullDelta(t *testing.T) {
	var d Delta
	require.NoError(t, json.Unmarshal([]byte(`{
		"mark": {"type": "arc", "innerRadius": 40},
		"encoding": {"theta": {"field": "value", "type": "quantitative"}, "x": {"field": null}},
		"config": {"background": "#000000"},
		"params": [{"name": "hover", "select": {"type": "point", "on": "pointerover"}}],
		"color_rule": {"kind": "gradient", "stops": [{"position": 0, "color": "#111"}, {"position": 1, "color": "#eee"}]}
	}`), &d))
	assert.False(t, d.Empty())

	out, err := Apply(Default(), &d)
	require.NoError(t, err)

	assert.Equal(t, "arc", out.MarkType())
	assert.Equal(t, true, out.Mark.Attr("tooltip"))
	assert.Equal(t, "value", out.Channel("theta")["field"])
	assert.NotContains(t, out.Channel("x"), "field")
	assert.Equal(t, "#000000", out.Config["background"])
	assert.Equal(t, []string{"hover"}, out.ParamNames())
	assert.Equal(t, FieldNominal, out.Channel("color")["type"])
}

func TestApply_ErrorLeavesInputUntouched(t *testing.T) {
	s := Default()
	d := &Delta{
		Mark:     Object{"color": "red"},
		Encoding: map[string]Object{"y": {"type": "bogus"}},
	}

	out, err := Apply(s, d)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrInvalidSpec))
	assert.Nil(t, s.Mark.Attr("color"))
}

func TestApply_NilDelta(t *testing.T) {
	s := Default()
	out, err := Apply(s, nil)
	require.NoError(t, err)
	assert.NotSame(t, s, out)

	var d *Delta
	assert.True(t, d.Empty())
	assert.True(t, (&Delta{}).Empty())
}

func TestApply_NullChannelRemoved(t *testing.T) {
	tests := []struct {
		name  string
		delta func(t *testing.T) *Delta
	}{
		{
			name: "decoded",
			delta: func(t *testing.T) *Delta {
				var d Delta
				require.NoError(t, json.Unmarshal([]byte(`{"encoding":{"y":null}}`), &d))
				return &d
			},
		},
		{
			name: "literal",
			delta: func(t *testing.T) *Delta {
				return &Delta{Encoding: map[string]Object{"y": nil}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			d := tt.delta(t)
			assert.False(t, d.Empty())

			out, err := Apply(s, d)
			require.NoError(t, err)
			assert.NotContains(t, out.Encoding, "y")
			assert.Equal(t, "category", out.Channel("x")["field"])
			assert.Contains(t, s.Encoding, "y")
		})
	}
}

func TestDelta_UnmarshalLargeIntegers(t *testing.T) {
	var d Delta
	require.NoError(t, json.Unmarshal([]byte(
		`{"encoding":{"y":{"scale":{"domainMax":9007199254740993}}},"config":{"padding":4}}`), &d))

	out, err := Apply(Default(), &d)
	require.NoError(t, err)
	assert.Equal(t, float64(4), out.Config["padding"])

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"domainMax":9007199254740993`)
}

func TestDelta_UnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"mark array", `{"mark":[1]}`},
		{"config string", `{"config":"dark"}`},
		{"channel number", `{"encoding":{"x":3}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Delta
			err := json.Unmarshal([]byte(tt.doc), &d)
			require.Error(t, err)
		})
	}
}
