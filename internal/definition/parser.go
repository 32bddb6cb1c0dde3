// Package definition parses flow definition files.
//
// A file holds either a single flow mapping or a sequence of flows. JSON is
// accepted as well since it is valid YAML. Within steps, a mapping is a step
// and a sequence of sequences is a fork.
package definition

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile parses a flow definition file.
func ParseFile(path string) ([]*api.Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses and validates flow definitions.
func Parse(data []byte, sourcePath string) ([]*api.Flow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: err.Error(), Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty flow file"}
	}

	root := doc.Content[0]
	var nodes []*yaml.Node
	switch root.Kind {
	case yaml.MappingNode:
		nodes = []*yaml.Node{root}
	case yaml.SequenceNode:
		nodes = root.Content
	default:
		return nil, &ParseError{Path: sourcePath, Line: root.Line, Message: "expected a flow or a list of flows"}
	}

	flows := make([]*api.Flow, 0, len(nodes))
	seen := make(map[string]int)
	for _, n := range nodes {
		flow, err := parseFlow(n, sourcePath)
		if err != nil {
			return nil, err
		}
		if line, dup := seen[flow.ID]; dup {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    n.Line,
				Message: fmt.Sprintf("duplicate flow id %q (first defined on line %d)", flow.ID, line),
			}
		}
		seen[flow.ID] = n.Line
		flows = append(flows, flow)
	}
	return flows, nil
}

func parseFlow(n *yaml.Node, path string) (*api.Flow, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Line: n.Line, Message: "flow must be a mapping"}
	}
	var flow api.Flow
	if err := n.Decode(&flow); err != nil {
		return nil, &ParseError{Path: path, Line: n.Line, Message: err.Error(), Err: err}
	}
	if err := validate(&flow, n, path); err != nil {
		return nil, err
	}
	return &flow, nil
}

func validate(flow *api.Flow, n *yaml.Node, path string) error {
	fail := func(line int, err error, format string, args ...any) error {
		return &ParseError{Path: path, Line: line, Message: fmt.Sprintf(format, args...), Err: err}
	}

	if flow.ID == "" {
		return fail(n.Line, nil, "flow id is required")
	}
	if len(flow.Steps) == 0 {
		return fail(n.Line, nil, "flow %q has no steps", flow.ID)
	}
	switch flow.Frequency {
	case "", api.FrequencyOnce, api.FrequencyEverySession, api.FrequencyEveryTime:
	default:
		return fail(valueLine(n, "frequency"), nil, "flow %q: unknown frequency %q", flow.ID, flow.Frequency)
	}

	var nesting *api.NestingError
	if err := api.ValidateNesting(flow); errors.As(err, &nesting) {
		return fail(lineOf(n, nesting.At), err, "%s", err.Error())
	}

	for _, w := range flow.Start {
		if err := trigger.Validate(w); err != nil {
			return fail(valueLine(n, "start"), err, "flow %q: start: %v", flow.ID, err)
		}
	}

	for pos, slot := range flow.Steps {
		if slot.IsFork() {
			if len(slot.Fork) == 0 {
				return fail(lineOf(n, api.Scalar(pos)), nil, "flow %q: fork at %d has no branches", flow.ID, pos)
			}
			for b, branch := range slot.Fork {
				for p, inner := range branch {
					if err := validateStep(inner.Step); err != nil {
						idx := api.Path(pos, b, p)
						return fail(lineOf(n, idx), err, "flow %q: step %s: %v", flow.ID, idx, err)
					}
				}
			}
			continue
		}
		if err := validateStep(slot.Step); err != nil {
			return fail(lineOf(n, api.Scalar(pos)), err, "flow %q: step %d: %v", flow.ID, pos, err)
		}
	}
	return nil
}

func validateStep(step *api.Step) error {
	for _, w := range step.Wait {
		if err := trigger.Validate(w); err != nil {
			return err
		}
	}
	switch step.BannerPosition {
	case "", "top-left", "top-right", "bottom-left", "bottom-right":
	default:
		return fmt.Errorf("unknown banner position %q", step.BannerPosition)
	}
	return nil
}

// valueLine returns the line of the value for key in a mapping node.
func valueLine(n *yaml.Node, key string) int {
	if v := mappingValue(n, key); v != nil {
		return v.Line
	}
	return n.Line
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// lineOf walks the steps node along idx and returns the line of the
// addressed slot, or the closest ancestor found.
func lineOf(flowNode *yaml.Node, idx api.StepIndex) int {
	node := mappingValue(flowNode, "steps")
	if node == nil {
		return flowNode.Line
	}
	line := node.Line
	for _, c := range idx.Components() {
		if node.Kind != yaml.SequenceNode || c >= len(node.Content) {
			break
		}
		node = node.Content[c]
		line = node.Line
	}
	return line
}
