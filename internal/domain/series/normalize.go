package series

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrEmptyBody         = errors.New("empty response body")
	ErrEmptyPayload      = errors.New("response payload is empty")
	ErrMalformedJSON     = errors.New("malformed json")
	ErrUnrecognizedShape = errors.New("response matches no known series shape")
)

// Normalize converts a raw metrics response into a Series. Two layouts are
// understood:
//
//	{"data": [{"datapoints": [[ts, value], ...]}]}   values may be null
//	[{"dps": {"<ts>": value, ...}}]                    keys are unordered
//
// Normalize never returns an error; failures are reported through Result.
func Normalize(raw []byte) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return NoData(ErrEmptyBody)
	}

	doc, err := Decode(trimmed)
	if err != nil {
		return Failed(fmt.Errorf("%w: %v", ErrMalformedJSON, err))
	}
	if !Truthy(doc) {
		return NoData(ErrEmptyPayload)
	}

	if obj, ok := doc.(map[string]any); ok {
		if _, has := obj["data"]; has {
			return fromDatapoints(obj["data"])
		}
	}
	if first, ok := FirstElement(doc); ok {
		if dps, ok := first["dps"].(map[string]any); ok && len(dps) > 0 {
			return fromDPS(dps)
		}
	}

	return NoData(ErrUnrecognizedShape)
}

// Decode parses JSON keeping numbers as json.Number.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after json value")
	}
	return doc, nil
}

// FirstElement returns the first element of a JSON array when it is an object.
func FirstElement(doc any) (map[string]any, bool) {
	arr, ok := doc.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	first, ok := arr[0].(map[string]any)
	return first, ok
}

// Truthy follows the usual JSON truthiness: null, false, zero, "" and empty
// containers are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func fromDatapoints(data any) Result {
	entries, ok := data.([]any)
	if !ok || len(entries) == 0 {
		return Failed(fmt.Errorf("%w: data is not a non-empty array", ErrUnrecognizedShape))
	}
	first, ok := entries[0].(map[string]any)
	if !ok {
		return Failed(fmt.Errorf("%w: data[0] is not an object", ErrUnrecognizedShape))
	}
	raw, ok := first["datapoints"].([]any)
	if !ok {
		return Failed(fmt.Errorf("%w: data[0].datapoints is not an array", ErrUnrecognizedShape))
	}

	points := make(Series, 0, len(raw))
	var skipped []error
	for i, item := range raw {
		pair, ok := item.([]any)
		if !ok || len(pair) == 0 {
			skipped = append(skipped, fmt.Errorf("datapoint %d is not a [timestamp, value] pair", i))
			continue
		}
		if len(pair) < 2 || pair[1] == nil {
			continue
		}
		p, err := datapoint(pair[0], pair[1])
		if err != nil {
			skipped = append(skipped, fmt.Errorf("datapoint %d: %w", i, err))
			continue
		}
		points = append(points, p)
	}

	return withSkipped(points, skipped)
}

func fromDPS(dps map[string]any) Result {
	points := make(Series, 0, len(dps))
	var skipped []error
	for key, raw := range dps {
		if raw == nil {
			continue
		}
		ts, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("dps key %q is not an integer timestamp", key))
			continue
		}
		num, ok := raw.(json.Number)
		if !ok {
			skipped = append(skipped, fmt.Errorf("dps value at %q is not numeric", key))
			continue
		}
		v, err := num.Float64()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("dps value at %q: %w", key, err))
			continue
		}
		points = append(points, Point{Timestamp: ts, Value: v})
	}
	points.SortByTime()

	return withSkipped(points, skipped)
}

func datapoint(rawTS, rawValue any) (Point, error) {
	tsNum, ok := rawTS.(json.Number)
	if !ok {
		return Point{}, errors.New("non-numeric timestamp")
	}
	valNum, ok := rawValue.(json.Number)
	if !ok {
		return Point{}, errors.New("non-numeric value")
	}
	ts, err := numberToTimestamp(tsNum)
	if err != nil {
		return Point{}, err
	}
	v, err := valNum.Float64()
	if err != nil {
		return Point{}, err
	}
	return Point{Timestamp: ts, Value: v}, nil
}

// withSkipped keeps the usable points of a partly malformed series. A series
// whose every point was malformed is a failure.
func withSkipped(points Series, skipped []error) Result {
	if len(skipped) == 0 {
		return OK(points)
	}
	if len(points) == 0 {
		return Failed(errors.Join(skipped...))
	}
	res := OK(points)
	res.Skipped = len(skipped)
	res.Err = errors.Join(skipped...)
	return res
}

func numberToTimestamp(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", n.String())
	}
	return int64(math.Trunc(f)), nil
}
