package api

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON accepts a single condition object or an array of them.
func (w *WaitList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one WaitOptions
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*w = WaitList{one}
		return nil
	}
	var many []WaitOptions
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*w = many
	return nil
}

// UnmarshalYAML accepts a single condition mapping or a sequence of them.
func (w *WaitList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var one WaitOptions
		if err := value.Decode(&one); err != nil {
			return err
		}
		*w = WaitList{one}
		return nil
	}
	var many []WaitOptions
	if err := value.Decode(&many); err != nil {
		return err
	}
	*w = many
	return nil
}

// UnmarshalJSON accepts a single group (array of matchers) or an array of
// groups.
func (g *UserPropertyGroups) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) > 0 && len(bytes.TrimSpace(raw[0])) > 0 && bytes.TrimSpace(raw[0])[0] == '{' {
		var one UserPropertyGroup
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*g = UserPropertyGroups{one}
		return nil
	}
	var many []UserPropertyGroup
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*g = many
	return nil
}

// UnmarshalYAML accepts a single group or a sequence of groups.
func (g *UserPropertyGroups) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode && len(value.Content) > 0 && value.Content[0].Kind == yaml.MappingNode {
		var one UserPropertyGroup
		if err := value.Decode(&one); err != nil {
			return err
		}
		*g = UserPropertyGroups{one}
		return nil
	}
	var many []UserPropertyGroup
	if err := value.Decode(&many); err != nil {
		return err
	}
	*g = many
	return nil
}
