package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/petrijr/waypoint/pkg/api"
)

// contentHash returns the hex SHA-256 digest of the JSON encoding of v, or
// an empty string when v cannot be encoded.
func contentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func stepHash(step *api.Step) string {
	if step == nil {
		return ""
	}
	return contentHash(step)
}
