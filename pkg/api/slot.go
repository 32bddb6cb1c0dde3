package api

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes a step slot as the step object and a fork as an array
// of branch arrays.
func (s Slot) MarshalJSON() ([]byte, error) {
	if s.Step != nil {
		return json.Marshal(s.Step)
	}
	branches := s.Fork
	if branches == nil {
		branches = []Branch{}
	}
	return json.Marshal(branches)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case map[string]any:
		var step Step
		if err := json.Unmarshal(data, &step); err != nil {
			return err
		}
		_, title := v["title"]
		_, body := v["body"]
		step.hasContent = title || body
		*s = Slot{Step: &step}
		return nil
	case []any:
		var branches []Branch
		if err := json.Unmarshal(data, &branches); err != nil {
			return err
		}
		*s = Slot{Fork: branches}
		return nil
	default:
		return fmt.Errorf("step slot must be an object or an array of branches")
	}
}

// MarshalYAML mirrors MarshalJSON.
func (s Slot) MarshalYAML() (any, error) {
	if s.Step != nil {
		return s.Step, nil
	}
	return s.Fork, nil
}

// UnmarshalYAML decodes a mapping into a step and a sequence into a fork.
func (s *Slot) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var step Step
		if err := value.Decode(&step); err != nil {
			return err
		}
		for k := 0; k+1 < len(value.Content); k += 2 {
			if key := value.Content[k].Value; key == "title" || key == "body" {
				step.hasContent = true
			}
		}
		*s = Slot{Step: &step}
		return nil
	case yaml.SequenceNode:
		branches := make([]Branch, 0, len(value.Content))
		for _, bn := range value.Content {
			if bn.Kind != yaml.SequenceNode {
				return fmt.Errorf("line %d: fork branch must be a sequence of steps", bn.Line)
			}
			var b Branch
			if err := bn.Decode(&b); err != nil {
				return err
			}
			branches = append(branches, b)
		}
		*s = Slot{Fork: branches}
		return nil
	default:
		return fmt.Errorf("line %d: step slot must be a mapping or a sequence of branches", value.Line)
	}
}
