package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"

	"musiclake/internal/plan"
	"musiclake/internal/timeparts"
)

// function is a scalar function exposed to plans. Zoned functions take the
// session zone name as a hidden trailing SQL argument, so one process-wide
// registration serves sessions in different zones.
type function struct {
	plan.Func
	zoned bool
}

var functions = func() map[string]function {
	m := map[string]function{
		timeparts.TimestampFunc: {Func: plan.Func{Name: timeparts.TimestampFunc, Args: 1, Returns: plan.TypeInt64}},
	}
	for _, c := range timeparts.Components {
		m[c.Name] = function{Func: plan.Func{Name: c.Name, Args: 1, Returns: plan.TypeInt64}, zoned: true}
	}
	return m
}()

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs the time functions into the driver. It must run
// before the first connection is opened.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = msqlite.RegisterDeterministicScalarFunction(timeparts.TimestampFunc, 1,
			func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				if n, ok := args[0].(int64); ok {
					return n, nil
				}
				ms, ok := millis(args[0])
				if !ok {
					return nil, nil
				}
				return timeparts.Truncate(ms), nil
			})
		if registerErr != nil {
			return
		}
		for _, c := range timeparts.Components {
			of := c.Of
			err := msqlite.RegisterDeterministicScalarFunction(c.Name, 2,
				func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
					ms, ok := millis(args[0])
					if !ok {
						return nil, nil
					}
					loc, err := zone(args[1])
					if err != nil {
						return nil, err
					}
					return of(timeparts.FromFloatMillis(ms, loc)), nil
				})
			if err != nil {
				registerErr = fmt.Errorf("register %s: %w", c.Name, err)
				return
			}
		}
	})
	return registerErr
}

// millis reads an epoch-millisecond argument. Text that does not parse and
// NULL yield ok=false, which the functions turn into NULL.
func millis(v driver.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	}
	return 0, false
}

func zone(v driver.Value) (*time.Location, error) {
	var name string
	switch x := v.(type) {
	case string:
		name = x
	case []byte:
		name = string(x)
	case nil:
	default:
		return nil, fmt.Errorf("time zone argument has type %T", v)
	}
	return timeparts.Location(name)
}
