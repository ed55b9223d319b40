package chartspec

import (
	"sort"

	json "github.com/goccy/go-json"
)

// Delta is a batch of partial updates sent by the editor.
type Delta struct {
	Mark      Object            `json:"mark,omitempty"`
	Encoding  map[string]Object `json:"encoding,omitempty"`
	Config    Object            `json:"config,omitempty"`
	Params    []Param           `json:"params,omitempty"`
	ColorRule *ColorRuleSpec    `json:"color_rule,omitempty"`
}

// UnmarshalJSON keeps large integer literals exact, the same way Spec does.
// A null channel under encoding is kept as a nil entry and removes the channel.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mark      json.RawMessage            `json:"mark"`
		Encoding  map[string]json.RawMessage `json:"encoding"`
		Config    json.RawMessage            `json:"config"`
		Params    []Param                    `json:"params"`
		ColorRule *ColorRuleSpec             `json:"color_rule"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Delta{Params: raw.Params, ColorRule: raw.ColorRule}
	var err error
	if out.Mark, err = decodePartial("mark", raw.Mark); err != nil {
		return err
	}
	if out.Config, err = decodePartial("config", raw.Config); err != nil {
		return err
	}
	if raw.Encoding != nil {
		out.Encoding = make(map[string]Object, len(raw.Encoding))
		for ch, value := range raw.Encoding {
			if out.Encoding[ch], err = decodePartial("encoding."+ch, value); err != nil {
				return err
			}
		}
	}
	*d = out
	return nil
}

// Empty reports whether the delta carries no update.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.Mark) == 0 && len(d.Encoding) == 0 && len(d.Config) == 0 &&
		len(d.Params) == 0 && d.ColorRule == nil)
}

// Apply runs every update of d against s in a fixed order: mark, encoding
// channels by name, config, params, color rule. A nil channel entry removes
// that channel. The input is never modified;
// on error no partial result is returned.
func Apply(s *Spec, d *Delta) (*Spec, error) {
	out := cloneOrEmpty(s)
	if d == nil {
		return out, nil
	}

	var err error
	if len(d.Mark) > 0 {
		if out, err = MergeMark(out, d.Mark); err != nil {
			return nil, err
		}
	}

	channels := make([]string, 0, len(d.Encoding))
	for ch := range d.Encoding {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		if d.Encoding[ch] == nil {
			out = RemoveChannel(out, ch)
			continue
		}
		if out, err = MergeEncoding(out, ch, d.Encoding[ch]); err != nil {
			return nil, err
		}
	}

	if len(d.Config) > 0 {
		if out, err = MergeConfig(out, d.Config); err != nil {
			return nil, err
		}
	}

	for _, p := range d.Params {
		if out, err = UpsertParam(out, p); err != nil {
			return nil, err
		}
	}

	if d.ColorRule != nil {
		rule, err := d.ColorRule.Rule()
		if err != nil {
			return nil, err
		}
		if out, err = ApplyColorRule(out, rule); err != nil {
			return nil, err
		}
	}
	return out, nil
}
