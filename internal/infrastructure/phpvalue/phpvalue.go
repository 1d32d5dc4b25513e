// Package phpvalue converts between Go values and the PHP-serialized and
// JSON blobs WordPress stores in options.
package phpvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elliotchance/phpserialize"
)

var ErrUndecodable = errors.New("value is neither json nor php-serialized")

// Normalize converts decoded JSON or PHP values to one shape: string-keyed
// maps, integral numbers as int64, other numbers as float64.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return Normalize(f)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	default:
		return v
	}
}

// ToPHP converts string-keyed maps into the map shape the serializer expects.
func ToPHP(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[any]any, len(t))
		for k, val := range t {
			out[k] = ToPHP(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ToPHP(val)
		}
		return out
	default:
		return v
	}
}

func Marshal(v any) (string, error) {
	raw, err := phpserialize.Marshal(ToPHP(v), nil)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type Entry struct {
	Key   any
	Value any
}

// EncodeArray serializes entries as a PHP array in the given order.
func EncodeArray(entries []Entry) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(entries))
	for _, e := range entries {
		k, err := phpserialize.Marshal(e.Key, nil)
		if err != nil {
			return "", err
		}
		v, err := phpserialize.Marshal(ToPHP(e.Value), nil)
		if err != nil {
			return "", err
		}
		b.Write(k)
		b.Write(v)
	}
	b.WriteString("}")
	return b.String(), nil
}

// DecodeArray reads a PHP-serialized array into a normalized map.
func DecodeArray(raw string) (map[string]any, error) {
	decoded, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return nil, err
	}
	out, _ := Normalize(decoded).(map[string]any)
	return out, nil
}

// Decode reads a JSON document, falling back to a PHP-serialized array.
func Decode(raw []byte) (any, error) {
	raw = bytes.TrimSpace(raw)
	if json.Valid(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		return Normalize(v), nil
	}
	if !bytes.HasPrefix(raw, []byte("a:")) {
		return nil, ErrUndecodable
	}
	m, err := DecodeArray(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return m, nil
}

// Int reads an integer the way PHP would coerce it.
func Int(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
