package forecast

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/kjstillabower/weather-report-service/internal/client"
)

// Value is one scalar exactly as the forecast service sent it.
type Value struct {
	res gjson.Result
}

// IsNull reports whether the upstream value was JSON null.
func (v Value) IsNull() bool {
	return v.res.Type == gjson.Null
}

// Text renders the value as received: numbers and booleans keep their JSON
// spelling, strings are unquoted.
func (v Value) Text() string {
	if v.res.Type == gjson.String {
		return v.res.Str
	}
	return v.res.Raw
}

// Code returns the value as an integral code. ok is false for non-numbers and
// numbers with a fractional part.
func (v Value) Code() (code int, ok bool) {
	if v.res.Type != gjson.Number || v.res.Num != math.Trunc(v.res.Num) {
		return 0, false
	}
	return int(v.res.Num), true
}

// Field is one entry of the current block paired with its unit.
type Field struct {
	Name  string
	Unit  string
	Value Value
}

// Series is one entry of the daily block: a per-day array paired with its unit.
type Series struct {
	Name   string
	Unit   string
	Values []Value
}

// At returns the value for day index i.
func (s Series) At(i int) (Value, error) {
	if i < 0 || i >= len(s.Values) {
		return Value{}, client.Parsef(Service, "daily.%s has %d values, need index %d", s.Name, len(s.Values), i)
	}
	return s.Values[i], nil
}

// Snapshot is a parsed forecast. Current and Daily keep the upstream key order.
type Snapshot struct {
	Time                 string
	TimezoneAbbreviation string
	Current              []Field
	Daily                []Series
}

// DailyTimes returns the daily "time" series.
func (s *Snapshot) DailyTimes() (Series, error) {
	for _, series := range s.Daily {
		if series.Name == "time" {
			return series, nil
		}
	}
	return Series{}, client.Parsef(Service, "daily.time missing")
}

// Parse decodes a forecast body. Every current and daily key must have a unit,
// and every daily entry must be an array.
func Parse(body []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, client.Parsef(Service, "invalid JSON")
	}
	doc := gjson.ParseBytes(body)

	current, err := object(doc, "current")
	if err != nil {
		return nil, err
	}
	currentUnits, err := object(doc, "current_units")
	if err != nil {
		return nil, err
	}
	daily, err := object(doc, "daily")
	if err != nil {
		return nil, err
	}
	dailyUnits, err := object(doc, "daily_units")
	if err != nil {
		return nil, err
	}
	tz := doc.Get("timezone_abbreviation")
	if tz.Type != gjson.String {
		return nil, client.Parsef(Service, "timezone_abbreviation missing")
	}
	ts := current.Get("time")
	if ts.Type != gjson.String {
		return nil, client.Parsef(Service, "current.time missing")
	}

	snap := &Snapshot{Time: ts.Str, TimezoneAbbreviation: tz.Str}

	current.ForEach(func(key, value gjson.Result) bool {
		unit, uerr := unitFor(currentUnits, "current_units", key.Str)
		if uerr != nil {
			err = uerr
			return false
		}
		snap.Current = append(snap.Current, Field{Name: key.Str, Unit: unit, Value: Value{res: value}})
		return true
	})
	if err != nil {
		return nil, err
	}

	daily.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			err = client.Parsef(Service, "daily.%s is not an array", key.Str)
			return false
		}
		unit, uerr := unitFor(dailyUnits, "daily_units", key.Str)
		if uerr != nil {
			err = uerr
			return false
		}
		series := Series{Name: key.Str, Unit: unit}
		for _, v := range value.Array() {
			series.Values = append(series.Values, Value{res: v})
		}
		snap.Daily = append(snap.Daily, series)
		return true
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func object(doc gjson.Result, key string) (gjson.Result, error) {
	r := doc.Get(gjson.Escape(key))
	if !r.IsObject() {
		return gjson.Result{}, client.Parsef(Service, "%s missing or not an object", key)
	}
	return r, nil
}

func unitFor(units gjson.Result, block, key string) (string, error) {
	u := units.Get(gjson.Escape(key))
	if !u.Exists() {
		return "", client.Parsef(Service, "%s.%s missing", block, key)
	}
	return u.String(), nil
}
