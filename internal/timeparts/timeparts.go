// Package timeparts splits epoch-millisecond timestamps into calendar
// components. Every function is pure; callers pick the location the
// components are computed in.
package timeparts

import (
	"fmt"
	"math"
	"sync"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database
)

// Component computes one calendar field of an instant.
type Component struct {
	// Name is the SQL function name the component is registered under.
	Name string
	Of   func(t time.Time) int64
}

// Components lists the calendar fields derived for the time dimension, in
// the column order of that table.
var Components = []Component{
	{Name: "get_hour", Of: Hour},
	{Name: "get_day", Of: Day},
	{Name: "get_week", Of: Week},
	{Name: "get_month", Of: Month},
	{Name: "get_year", Of: Year},
	{Name: "get_weekday", Of: Weekday},
}

// TimestampFunc is the name of the truncate-to-integer function.
const TimestampFunc = "get_timestamp"

// FromMillis converts milliseconds since the Unix epoch to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// FromFloatMillis is FromMillis for fractional millisecond values.
func FromFloatMillis(ms float64, loc *time.Location) time.Time {
	return time.Unix(0, int64(math.Round(ms*1e3))*1e3).In(loc)
}

// Truncate drops the fractional part of v, rounding toward zero.
func Truncate(v float64) int64 { return int64(v) }

func Hour(t time.Time) int64  { return int64(t.Hour()) }
func Day(t time.Time) int64   { return int64(t.Day()) }
func Month(t time.Time) int64 { return int64(t.Month()) }
func Year(t time.Time) int64  { return int64(t.Year()) }

// Week is the ISO 8601 week number.
func Week(t time.Time) int64 {
	_, w := t.ISOWeek()
	return int64(w)
}

// Weekday numbers days from Monday = 0 to Sunday = 6.
func Weekday(t time.Time) int64 {
	return int64((t.Weekday() + 6) % 7)
}

var locations sync.Map // name -> *time.Location

// Location loads and caches a time zone by IANA name. "Local" and "" mean the
// process local zone; "UTC" is UTC.
func Location(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	if v, ok := locations.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeparts: load location %q: %w", name, err)
	}
	locations.Store(name, loc)
	return loc, nil
}
