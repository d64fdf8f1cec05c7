package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Cached hash fields are flat strings. Every field has one declared type and is
// written and read through the matching encoder below:
//
//	string     stored verbatim
//	integer    base-10
//	timestamp  RFC 3339 with nanoseconds, UTC
//	record     JSON (counter maps, settings, lists)

// DecodeError reports a cached field that does not parse as its declared type
type DecodeError struct {
	Key   string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s field %q: %v", e.Key, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func encodeInt(v int) string {
	return strconv.Itoa(v)
}

func decodeInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func encodeRecord(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeRecord(s string, v interface{}) error {
	return json.Unmarshal([]byte(s), v)
}

// fieldWriter collects the flattened fields of one hash
type fieldWriter struct {
	values map[string]interface{}
	err    error
}

func newFieldWriter() *fieldWriter {
	return &fieldWriter{values: make(map[string]interface{})}
}

func (w *fieldWriter) String(name, v string) {
	w.values[name] = v
}

func (w *fieldWriter) Int(name string, v int) {
	w.values[name] = encodeInt(v)
}

func (w *fieldWriter) Time(name string, v time.Time) {
	w.values[name] = encodeTime(v)
}

func (w *fieldWriter) Record(name string, v interface{}) {
	if w.err != nil {
		return
	}
	s, err := encodeRecord(v)
	if err != nil {
		w.err = fmt.Errorf("encode field %q: %w", name, err)
		return
	}
	w.values[name] = s
}

// Fields returns the HSET argument map
func (w *fieldWriter) Fields() (map[string]interface{}, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.values, nil
}

// fieldReader parses the fields of one hash. Missing fields decode to the zero
// value; the first malformed field is kept in Err.
type fieldReader struct {
	key    string
	values map[string]string
	err    error
}

func newFieldReader(key string, values map[string]string) *fieldReader {
	return &fieldReader{key: key, values: values}
}

func (r *fieldReader) fail(name string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Key: r.key, Field: name, Err: err}
	}
}

func (r *fieldReader) String(name string) string {
	return r.values[name]
}

func (r *fieldReader) Int(name string) int {
	s, ok := r.values[name]
	if !ok || s == "" {
		return 0
	}
	v, err := decodeInt(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *fieldReader) Time(name string) time.Time {
	s, ok := r.values[name]
	if !ok || s == "" {
		return time.Time{}
	}
	v, err := decodeTime(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *fieldReader) Record(name string, v interface{}) {
	s, ok := r.values[name]
	if !ok || s == "" {
		return
	}
	if err := decodeRecord(s, v); err != nil {
		r.fail(name, err)
	}
}

func (r *fieldReader) Err() error {
	return r.err
}
