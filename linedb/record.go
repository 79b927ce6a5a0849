package linedb

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/pretty"
)

// deletePrefix marks a log line that removes a record.
// Saves have no prefix so that a log without deletions is a plain
// value-per-line file.
const deletePrefix = "delete|"

// Record is an immutable value stored in a Store.
// It's either raw text (a single line) or a structured JSON object or array.
// Records are safe to copy and share: accessors return copies.
type Record struct {
	// serialized form, written to the log as-is.
	// dedup and ByValue compare this text
	text string
	raw  bool
	// Object or []any for structured records
	value any
	// normalized id, see idKey()
	id    any
	hasID bool
}

// Raw creates a record holding a line of text
func Raw(s string) Record {
	return Record{text: s, raw: true}
}

// FromJSON creates a structured record from JSON object or array.
// Key order is preserved, insignificant whitespace is removed.
func FromJSON(d []byte) (Record, error) {
	if !json.Valid(d) {
		return Record{}, invalidRecordf("not valid JSON")
	}
	compact := pretty.Ugly(d)
	if len(compact) == 0 || (compact[0] != '{' && compact[0] != '[') {
		return Record{}, invalidRecordf("structured record must be a JSON object or array")
	}
	v, err := decodeOrdered(compact)
	if err != nil {
		return Record{}, invalidRecordf("%s", err)
	}
	r := Record{
		text:  string(compact),
		value: v,
	}
	if obj, ok := v.(Object); ok {
		if id, ok := obj.Get("id"); ok {
			r.id, r.hasID = idKey(id)
		}
	}
	return r, nil
}

// FromValue creates a structured record by JSON-encoding v.
// Struct fields keep their declaration order, map keys are sorted.
func FromValue(v any) (Record, error) {
	if r, ok := v.(Record); ok {
		return r, nil
	}
	d, err := marshalJSON(v)
	if err != nil {
		return Record{}, invalidRecordf("%s", err)
	}
	return FromJSON(d)
}

// NewObject creates a structured record from key/value pairs:
// NewObject("id", 1, "name", "juan").
// It panics on odd number of arguments, non-string keys or values
// that can't be JSON-encoded.
func NewObject(kv ...any) Record {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("linedb.NewObject: odd number of arguments (%d)", len(kv)))
	}
	obj := make(Object, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("linedb.NewObject: key %v is %T, not string", kv[i], kv[i]))
		}
		obj = append(obj, Field{Key: key, Value: kv[i+1]})
	}
	r, err := FromValue(obj)
	if err != nil {
		panic(err)
	}
	return r
}

// parseLine converts a log line into a record. Lines that start with
// '{' or '[' must be valid JSON
func parseLine(line string) (Record, error) {
	if isBracketed(line) {
		r, err := FromJSON([]byte(line))
		if err != nil {
			return Record{}, err
		}
		return r, nil
	}
	return Raw(line), nil
}

func isBracketed(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// validate checks that a record survives a write and replay unchanged
func (r *Record) validate() error {
	if !r.raw {
		if r.text == "" {
			return invalidRecordf("zero Record")
		}
		return nil
	}
	s := r.text
	switch {
	case s == "":
		return invalidRecordf("raw record is empty")
	case strings.ContainsAny(s, "\r\n"):
		return invalidRecordf("raw record can't contain newlines")
	case isBracketed(s):
		return invalidRecordf("raw record can't start with '{' or '[', use FromJSON")
	case strings.HasPrefix(s, deletePrefix):
		return invalidRecordf("raw record can't start with %q", deletePrefix)
	}
	return nil
}

// IsZero returns true for Record{}
func (r Record) IsZero() bool {
	return r.text == "" && !r.raw
}

// IsRaw returns true for records created with Raw
func (r Record) IsRaw() bool {
	return r.raw
}

// Text returns the serialized form of the record as written to the log
func (r Record) Text() string {
	return r.text
}

func (r Record) String() string {
	return r.text
}

// ID returns the value of top-level "id" field.
// Numbers are returned as json.Number.
// Raw records, arrays and objects without scalar id return false.
func (r Record) ID() (any, bool) {
	if !r.hasID {
		return nil, false
	}
	obj := r.value.(Object)
	id, _ := obj.Get("id")
	return id, true
}

// Get returns a copy of the top-level field
func (r Record) Get(key string) (any, bool) {
	obj, ok := r.value.(Object)
	if !ok {
		return nil, false
	}
	v, ok := obj.Get(key)
	return cloneValue(v), ok
}

// Keys returns top-level field names of an object record
func (r Record) Keys() []string {
	obj, ok := r.value.(Object)
	if !ok {
		return nil
	}
	return obj.Keys()
}

// Value returns a copy of the record's value: Object or []any for
// structured records, string for raw records
func (r Record) Value() any {
	if r.raw {
		return r.text
	}
	return cloneValue(r.value)
}

// Decode unmarshals the record into v, like json.Unmarshal.
// Raw records decode as JSON strings.
func (r Record) Decode(v any) error {
	if r.raw {
		d, err := marshalJSON(r.text)
		if err != nil {
			return err
		}
		return json.Unmarshal(d, v)
	}
	return json.Unmarshal([]byte(r.text), v)
}

// idKey normalizes a scalar id so that ids can be compared with ==.
// Numbers compare numerically: 1, 1.0 and json.Number("1") are equal.
// null and non-scalars are not ids.
func idKey(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return x, true
	case bool:
		return x, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return string(x), true
		}
		return f, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	}
	return nil, false
}
