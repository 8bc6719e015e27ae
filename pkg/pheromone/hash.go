package pheromone

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// CanonicalHash produces a stable identity digest for a payload: mapping
// keys are sorted recursively, array order is preserved, and whole-valued
// floats are serialized without a decimal point so that re-decoded JSON
// numbers canonicalize the same way regardless of their original text form.
//
// This is used to find the merge slot for emit(): two payloads hash equal
// iff they are structurally identical under this canonicalization. It is
// not collision-resistant against an adversarial payload author — payloads
// are assumed to come from cooperating agents, not untrusted input.
func CanonicalHash(payload map[string]any) string {
	var buf bytes.Buffer
	writeCanonical(&buf, payload)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])[:16]
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	case string:
		b, _ := json.Marshal(val)
		buf.Write(b)
	case float64:
		if !math.IsInf(val, 0) && !math.IsNaN(val) && val == math.Trunc(val) &&
			val >= -1e15 && val <= 1e15 {
			buf.WriteString(strconv.FormatInt(int64(val), 10))
		} else {
			buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		}
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		// Unexpected Go type (not produced by encoding/json decode into
		// map[string]any); fall back to its default JSON encoding.
		b, _ := json.Marshal(val)
		buf.Write(b)
	}
}
