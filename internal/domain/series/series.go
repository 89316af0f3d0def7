// Package series holds the canonical (timestamp, value) time-series shape
// shared by every dashboard chart.
package series

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Point is one sample. It encodes as a two-element JSON array.
type Point struct {
	Timestamp int64
	Value     float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Timestamp, p.Value})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []json.Number
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("series point must have 2 elements, got %d", len(pair))
	}
	ts, err := numberToTimestamp(pair[0])
	if err != nil {
		return err
	}
	v, err := pair[1].Float64()
	if err != nil {
		return err
	}
	p.Timestamp, p.Value = ts, v
	return nil
}

// Series is an ordered list of points. A nil Series encodes as [].
type Series []Point

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Point(s))
}

// SortByTime orders points ascending by timestamp, keeping the relative
// order of equal timestamps.
func (s Series) SortByTime() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp < s[j].Timestamp
	})
}

// Scale returns a copy with every value multiplied by factor.
func (s Series) Scale(factor float64) Series {
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Timestamp: p.Timestamp, Value: p.Value * factor}
	}
	return out
}

// Status tells a usable series apart from the two ways of having none.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
	StatusFailed Status = "failed"
)

// Result is the outcome of normalizing one metric source. Anything other
// than StatusOK encodes as the scalar 0 the dashboard treats as "no data".
// An OK result may still carry Err when Skipped malformed points were
// dropped.
type Result struct {
	Points  Series
	Status  Status
	Err     error
	Skipped int
}

func OK(points Series) Result {
	if points == nil {
		points = Series{}
	}
	return Result{Points: points, Status: StatusOK}
}

func NoData(err error) Result {
	return Result{Status: StatusNoData, Err: err}
}

func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Usable reports whether the result carries a series.
func (r Result) Usable() bool {
	return r.Status == StatusOK
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Status != StatusOK {
		return []byte("0"), nil
	}
	return r.Points.MarshalJSON()
}
