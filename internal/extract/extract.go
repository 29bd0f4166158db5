package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"unifimon/internal/model"
)

// Document is a decoded aggregated-dashboard response. Its shape varies with
// firmware and gateway state, so it is only ever read through Lookup.
type Document map[string]any

// DecodeError reports a response body that is not a JSON object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode dashboard: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses body and requires a JSON object at the top level.
func Decode(body []byte) (Document, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &DecodeError{Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &DecodeError{Err: fmt.Errorf("top-level value is %s, want object", kindOf(v))}
	}
	return Document(obj), nil
}

// Parse decodes body and extracts the sample for WAN record wanIndex.
func Parse(body []byte, wanIndex int) (model.Sample, error) {
	doc, err := Decode(body)
	if err != nil {
		return model.Sample{}, err
	}
	return SampleOf(doc, wanIndex), nil
}

// SampleOf pulls the monitored counters out of doc. Anything that cannot be
// resolved is zero.
func SampleOf(doc Document, wanIndex int) model.Sample {
	root := map[string]any(doc)
	wan, _ := Lookup(root, "wan", "wan_details", wanIndex)

	return model.Sample{
		SystemUptimeSeconds: Number(root, "system_status", "system_uptime"),
		RxRate:              Number(wan, "stats", "activity", "rx_bytes-r"),
		TxRate:              Number(wan, "stats", "activity", "tx_bytes-r"),
		MaxRxRate:           Number(wan, "stats", "activity", "max_rx_bytes-r"),
		MaxTxRate:           Number(wan, "stats", "activity", "max_tx_bytes-r"),
		MonthlyBytes:        Number(wan, "stats", "monthly_bytes"),
	}
}

// WANCount returns the number of WAN records in doc, or 0 when the list is
// missing.
func WANCount(doc Document) int {
	v, ok := Lookup(map[string]any(doc), "wan", "wan_details")
	if !ok {
		return 0
	}
	list, _ := v.([]any)
	return len(list)
}

// Lookup walks node along path. String segments select object members and int
// segments select list elements. It reports false as soon as a step is
// missing, null, out of range or of the wrong type.
func Lookup(node any, path ...any) (any, bool) {
	cur := node
	for _, seg := range path {
		if cur == nil {
			return nil, false
		}
		switch key := seg.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = obj[key]
			if !ok {
				return nil, false
			}
		case int:
			list, ok := cur.([]any)
			if !ok || key < 0 || key >= len(list) {
				return nil, false
			}
			cur = list[key]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Number resolves path under node and coerces the result to a number.
// Unresolvable paths and non-numeric values yield 0.
func Number(node any, path ...any) float32 {
	v, ok := Lookup(node, path...)
	if !ok {
		return 0
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	// NaN and values outside float32 range are not usable counters.
	if math.IsNaN(f) || math.Abs(f) > math.MaxFloat32 {
		return 0
	}
	return float32(f)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
