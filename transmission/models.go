package transmission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
)

// RPC method names used by the client.
const (
	MethodTorrentGet         = "torrent-get"
	MethodTorrentSetLocation = "torrent-set-location"
	MethodTorrentAdd         = "torrent-add"
	MethodTorrentRemove      = "torrent-remove"
)

// ResultSuccess is the envelope result value for a successful call.
const ResultSuccess = "success"

// DefaultFields is the torrent field list requested when none is configured.
var DefaultFields = []string{
	"id",
	"name",
	"totalSize",
	"addedDate",
	"isFinished",
	"rateDownload",
	"rateUpload",
	"percentDone",
	"files",
}

// Arguments maps RPC argument names to values.
type Arguments map[string]any

// Request is a single RPC call.
type Request struct {
	Method    string    `json:"method"`
	Arguments Arguments `json:"arguments"`
}

// Response is the raw HTTP answer to a Request.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the HTTP status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Envelope is the outer structure shared by every RPC response.
type Envelope struct {
	Result    string                     `json:"result"`
	Arguments map[string]json.RawMessage `json:"arguments"`
}

// Succeeded reports whether the daemon accepted the call.
func (e *Envelope) Succeeded() bool {
	return e.Result == ResultSuccess
}

// Decode unmarshals the named argument into v. A missing key leaves v untouched.
func (e *Envelope) Decode(key string, v any) error {
	raw, ok := e.Arguments[key]
	if !ok {
		return nil
	}
	return decodeJSON(raw, v)
}

// Torrent is a torrent record. Its keys are the requested fields; the client
// does not model the values beyond field selection.
type Torrent map[string]any

// ID returns the numeric torrent id, if the record carries one.
func (t Torrent) ID() (int64, bool) {
	return t.Int("id")
}

// Name returns the torrent name, or "" if the field was not requested.
func (t Torrent) Name() string {
	s, _ := t["name"].(string)
	return s
}

// Int returns an integer field.
func (t Torrent) Int(field string) (int64, bool) {
	switch v := t[field].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// Float returns a numeric field as float64.
func (t Torrent) Float(field string) (float64, bool) {
	switch v := t[field].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a boolean field.
func (t Torrent) Bool(field string) (bool, bool) {
	b, ok := t[field].(bool)
	return b, ok
}

// Plain returns a copy of the record with json.Number values converted to
// int64 or float64, suitable for expression evaluation and YAML output.
func (t Torrent) Plain() map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	default:
		return value
	}
}

// decodeJSON decodes numbers as json.Number so torrent payloads round-trip unchanged.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// normalizeIDs turns a single id or any slice or array of ids into the list
// form the daemon expects. Numeric ids and hash strings are accepted.
func normalizeIDs(ids any) ([]any, error) {
	rv := reflect.ValueOf(ids)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return normalizeEach(rv)
	}

	n, err := normalizeID(ids)
	if err != nil {
		return nil, err
	}
	return []any{n}, nil
}

func normalizeEach(ids reflect.Value) ([]any, error) {
	out := make([]any, 0, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		n, err := normalizeID(ids.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// normalizeID validates a single id. Numeric ids are widened to int64 so that
// a bare id and a one-element slice build identical arguments.
func normalizeID(id any) (any, error) {
	switch v := id.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidID, v)
		}
		return n, nil
	case string:
		if v == "" {
			return nil, fmt.Errorf("%w: empty string", ErrInvalidID)
		}
		return v, nil
	}

	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrInvalidID, rv.Uint())
		}
		return int64(rv.Uint()), nil
	default:
		return nil, fmt.Errorf("%w: %v (%T)", ErrInvalidID, id, id)
	}
}

// ParseID converts a command line argument into a torrent id: numeric strings
// become int64, anything else is treated as a hash string.
func ParseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
