package log

import (
	"fmt"
	"reflect"
	"time"

	"github.com/toon-format/toon-go"
)

func panicIf(cond bool, msg string) {
	if cond {
		panic(msg)
	}
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent formats an event as:
//
//	<name> <unix ms> <body length>
//	<toon-encoded key/value pairs>
//
// vals are key/value pairs, keys must be simple types
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	panicIf(n%2 != 0, "odd number of vals")
	var body []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			m[simpleTypeToStr(vals[i])] = vals[i+1]
		}
		var err error
		body, err = toon.Marshal(m)
		if err != nil {
			return nil, err
		}
	}
	res := fmt.Appendf(nil, "%s %d %d\n", name, t.UTC().UnixMilli(), len(body))
	res = append(res, body...)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		res = append(res, '\n')
	}
	return res, nil
}

// Event logs an event to events log. It's a no-op without Init
func Event(name string, vals ...any) {
	if eventsFile == nil {
		return
	}
	d, err := MarshalEvent(name, time.Now(), vals...)
	if err != nil {
		Errorf("log.Event('%s') failed with '%s'\n", name, err)
		return
	}
	eventsFile.Write(d)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
