package chartspec

import "fmt"

// MergeMark 合并 mark 样式属性
//
// A bare string mark is first normalized to {type: tag}; partial is then
// shallow-merged on top. "type" replaces the base type, a null value removes
// an attribute, and every attribute not named is kept.
func MergeMark(s *Spec, partial Object) (*Spec, error) {
	patch, err := normalize("mark", partial)
	if err != nil {
		return nil, err
	}

	out := cloneOrEmpty(s)
	m := out.mark()
	if raw, ok := patch["type"]; ok {
		tag, ok := raw.(string)
		if !ok || tag == "" {
			return nil, invalid("mark.type", "must be a non-empty string")
		}
		m.Type = tag
		delete(patch, "type")
	}
	mergeInto(m.Attrs, patch)
	return out, nil
}

// MergeEncoding 合并单个通道的编码
//
// Only the named channel changes. Nested objects such as scale and axis are
// replaced wholesale by the partial, never deep-merged.
func MergeEncoding(s *Spec, channel string, partial Object) (*Spec, error) {
	if channel == "" {
		return nil, invalid("encoding", "channel name is required")
	}
	field := "encoding." + channel
	patch, err := normalize(field, partial)
	if err != nil {
		return nil, err
	}
	if raw, ok := patch["type"]; ok && raw != nil {
		tag, _ := raw.(string)
		if !isDataType(tag) {
			return nil, invalid(field+".type", fmt.Sprintf("unknown data type %v", raw))
		}
	}

	out := cloneOrEmpty(s)
	if out.Encoding == nil {
		out.Encoding = Object{}
	}
	ch, ok := out.Encoding[channel].(map[string]any)
	if !ok {
		ch = Object{}
	}
	mergeInto(ch, patch)
	out.Encoding[channel] = ch
	return out, nil
}

// RemoveChannel 删除单个通道，通道不存在时原样返回副本
func RemoveChannel(s *Spec, channel string) *Spec {
	out := cloneOrEmpty(s)
	delete(out.Encoding, channel)
	return out
}

// MergeConfig shallow-merges global rendering options.
func MergeConfig(s *Spec, partial Object) (*Spec, error) {
	patch, err := normalize("config", partial)
	if err != nil {
		return nil, err
	}
	out := cloneOrEmpty(s)
	if out.Config == nil {
		out.Config = Object{}
	}
	mergeInto(out.Config, patch)
	return out, nil
}

// UpsertParam removes every param named like p and appends p at the end.
// The remaining params keep their relative order.
func UpsertParam(s *Spec, p Param) (*Spec, error) {
	if p.Name == "" {
		return nil, invalid("params.name", "is required")
	}
	body, err := normalize("params."+p.Name, p.Body)
	if err != nil {
		return nil, err
	}
	delete(body, "name")

	out := cloneOrEmpty(s)
	params := make([]Param, 0, len(out.Params)+1)
	for _, existing := range out.Params {
		if existing.Name != p.Name {
			params = append(params, existing)
		}
	}
	entry := Param{Name: p.Name}
	if len(body) > 0 {
		entry.Body = body
	}
	out.Params = append(params, entry)
	return out, nil
}

func cloneOrEmpty(s *Spec) *Spec {
	if s == nil {
		return &Spec{}
	}
	return s.Clone()
}
