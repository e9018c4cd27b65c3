package filterexpr

import (
	"encoding/json"
	"testing"
)

// decodeJSON decodes a JSON literal the way the filter document loader
// does (into interface{} with float64 numbers), for use as Compile input
// in tests.
func decodeJSON(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", raw, err)
	}
	return v
}
