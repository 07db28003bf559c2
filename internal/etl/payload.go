package etl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// fields provides validated access to an untyped event payload. Numbers are
// kept as json.Number so unsigned 64-bit amounts survive intact instead of
// being rounded through float64.
type fields struct {
	root map[string]any
}

func parsePayload(raw json.RawMessage) (fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return fields{}, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return fields{root: root}, nil
}

// lookup walks a nested path of object keys. It reports false when any step
// is absent or not an object.
func (f fields) lookup(path ...string) (any, bool) {
	var current any = f.root
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// str returns a required string field.
func (f fields) str(path ...string) (string, error) {
	val, ok := f.lookup(path...)
	if !ok {
		return "", fmt.Errorf("missing field %q", dotted(path))
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string", dotted(path))
	}
	return s, nil
}

// amount returns a required unsigned 64-bit field as a signed 64-bit value.
// The store uses int8 columns, so values above the signed range are rejected
// rather than silently wrapped.
func (f fields) amount(path ...string) (int64, error) {
	val, ok := f.lookup(path...)
	if !ok {
		return 0, fmt.Errorf("missing field %q", dotted(path))
	}
	num, ok := val.(json.Number)
	if !ok {
		return 0, fmt.Errorf("field %q: expected unsigned integer", dotted(path))
	}
	parsed, err := parseUnsigned(num)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", dotted(path), err)
	}
	return parsed, nil
}

func parseUnsigned(num json.Number) (int64, error) {
	raw := num.String()
	if strings.ContainsAny(raw, ".eE-") {
		return 0, fmt.Errorf("expected unsigned integer, got %q", raw)
	}
	parsed, err := json.Number(raw).Int64()
	if err != nil {
		// Int64 overflows for values in (MaxInt64, MaxUint64]; those are
		// legal on the wire but not representable in the store.
		return 0, fmt.Errorf("unsigned value %q exceeds signed 64-bit range", raw)
	}
	return parsed, nil
}

func dotted(path []string) string {
	return strings.Join(path, ".")
}

// timestampFromMicros converts a gateway timestamp (microseconds since epoch)
// to a UTC calendar time. Legitimate gateway timestamps never exceed the
// signed range, so an overflow here aborts the run.
func timestampFromMicros(micros uint64) (time.Time, error) {
	if micros > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("timestamp %d exceeds representable range", micros)
	}
	return time.UnixMicro(int64(micros)).UTC(), nil
}
