package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/petrijr/waypoint/pkg/api"
)

// EncodeHistory serializes a step history as a JSON array whose elements are
// numbers (scalar indices) or arrays (path indices).
func EncodeHistory(h api.History) ([]byte, error) {
	if h == nil {
		h = api.History{}
	}
	return json.Marshal(h)
}

// DecodeHistory is the inverse of EncodeHistory. An empty payload decodes
// to an empty history.
func DecodeHistory(data []byte) (api.History, error) {
	if len(data) == 0 {
		return api.History{}, nil
	}
	var h api.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode step history: %w", err)
	}
	return h, nil
}

// EncodeStepIndex serializes a single index.
func EncodeStepIndex(idx api.StepIndex) (string, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeStepIndex is the inverse of EncodeStepIndex.
func DecodeStepIndex(s string) (api.StepIndex, error) {
	var idx api.StepIndex
	if s == "" {
		return idx, nil
	}
	if err := json.Unmarshal([]byte(s), &idx); err != nil {
		return api.StepIndex{}, fmt.Errorf("decode step index: %w", err)
	}
	return idx, nil
}
