// Package phpserial reads and writes values in PHP's serialize() format.
// Arrays keep their key order so values survive a decode/encode cycle unchanged.
package phpserial

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("phpserial: invalid serialized data")

var serializedPrefix = regexp.MustCompile(`^(?:[aOCsibd]:|N;)`)

// Array is an ordered PHP array. Keys are int64 or string.
type Array struct {
	Keys   []any
	Values []any
}

func NewArray() *Array {
	return &Array{}
}

// NewList builds an indexed array from strings.
func NewList(values ...string) *Array {
	a := NewArray()
	for _, v := range values {
		a.Append(v)
	}
	return a
}

func (a *Array) Len() int {
	return len(a.Keys)
}

func (a *Array) Append(value any) {
	var next int64
	for _, k := range a.Keys {
		if n, ok := k.(int64); ok && n >= next {
			next = n + 1
		}
	}
	a.Keys = append(a.Keys, next)
	a.Values = append(a.Values, value)
}

func (a *Array) Set(key, value any) {
	key = normalizeKey(key)
	for i, k := range a.Keys {
		if k == key {
			a.Values[i] = value
			return
		}
	}
	a.Keys = append(a.Keys, key)
	a.Values = append(a.Values, value)
}

func (a *Array) Get(key any) (any, bool) {
	key = normalizeKey(key)
	for i, k := range a.Keys {
		if k == key {
			return a.Values[i], true
		}
	}
	return nil, false
}

// IsList reports whether keys are exactly 0..n-1 in order.
func (a *Array) IsList() bool {
	for i, k := range a.Keys {
		if n, ok := k.(int64); !ok || n != int64(i) {
			return false
		}
	}
	return true
}

// Strings returns the scalar values as strings, skipping nested arrays.
func (a *Array) Strings() []string {
	out := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		switch val := v.(type) {
		case *Array, nil:
			continue
		case string:
			out = append(out, val)
		default:
			out = append(out, fmt.Sprint(val))
		}
	}
	return out
}

func normalizeKey(key any) any {
	switch k := key.(type) {
	case int:
		return int64(k)
	case int32:
		return int64(k)
	case string:
		if n, err := strconv.ParseInt(k, 10, 64); err == nil && strconv.FormatInt(n, 10) == k {
			return n
		}
		return k
	}
	return key
}

// IsSerialized reports whether s holds a complete serialized value.
func IsSerialized(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	if s == "N;" {
		return true
	}
	if s[1] != ':' || !strings.ContainsRune("asbid", rune(s[0])) {
		return false
	}
	_, err := Unserialize(s)
	return err == nil
}

// looksSerialized reports whether s starts like a serialized value of any type.
func looksSerialized(s string) bool {
	return serializedPrefix.MatchString(strings.TrimSpace(s))
}

// Unserialize decodes a serialized value. Objects are not supported.
func Unserialize(s string) (any, error) {
	d := &decoder{data: strings.TrimSpace(s)}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrSyntax, d.pos)
	}
	return v, nil
}

// Serialize encodes v. Supported inputs are nil, bool, integers, floats, strings,
// *Array, []string, []any and map[string]any (keys sorted).
func Serialize(v any) string {
	var b strings.Builder
	encode(&b, v)
	return b.String()
}

// MapStrings applies fn to every string inside v, keys excluded.
func MapStrings(v any, fn func(string) string) any {
	switch val := v.(type) {
	case string:
		return fn(val)
	case *Array:
		out := &Array{Keys: append([]any(nil), val.Keys...), Values: make([]any, len(val.Values))}
		for i, item := range val.Values {
			out.Values[i] = MapStrings(item, fn)
		}
		return out
	default:
		return v
	}
}

// ReplaceInSerialized applies fn to every string in a serialized value and
// re-encodes it so string lengths stay correct. Plain input gets fn directly.
// Serialized input that cannot be decoded, such as objects, is returned unchanged.
func ReplaceInSerialized(s string, fn func(string) string) string {
	if !IsSerialized(s) {
		if looksSerialized(s) {
			return s
		}
		return fn(s)
	}
	v, err := Unserialize(s)
	if err != nil {
		return s
	}
	return Serialize(MapStrings(v, fn))
}

// ToNative converts decoded values into plain Go values: lists become []any,
// other arrays map[string]any.
func ToNative(v any) any {
	a, ok := v.(*Array)
	if !ok {
		return v
	}
	if a.IsList() {
		out := make([]any, len(a.Values))
		for i, item := range a.Values {
			out[i] = ToNative(item)
		}
		return out
	}
	out := make(map[string]any, len(a.Keys))
	for i, k := range a.Keys {
		out[fmt.Sprint(k)] = ToNative(a.Values[i])
	}
	return out
}

// FromNative is the inverse of ToNative. Map keys are sorted.
func FromNative(v any) any {
	switch val := v.(type) {
	case []any:
		a := NewArray()
		for _, item := range val {
			a.Append(FromNative(item))
		}
		return a
	case []string:
		return NewList(val...)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		a := NewArray()
		for _, k := range keys {
			a.Set(k, FromNative(val[k]))
		}
		return a
	case int:
		return int64(val)
	default:
		return v
	}
}

type decoder struct {
	data string
	pos  int
}

func (d *decoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("%w: unexpected end of data", ErrSyntax)
	}

	kind := d.data[d.pos]
	if kind == 'N' {
		if err := d.expect("N;"); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := d.expect(string(kind) + ":"); err != nil {
		return nil, err
	}

	switch kind {
	case 'b':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		return raw == "1", nil
	case 'i':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer %q", ErrSyntax, raw)
		}
		return n, nil
	case 'd':
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		switch raw {
		case "INF":
			return math.Inf(1), nil
		case "-INF":
			return math.Inf(-1), nil
		case "NAN":
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad float %q", ErrSyntax, raw)
		}
		return f, nil
	case 's':
		return d.str()
	case 'a':
		return d.array()
	}

	return nil, fmt.Errorf("%w: unsupported type %q", ErrSyntax, kind)
}

func (d *decoder) str() (string, error) {
	raw, err := d.until(':')
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: bad string length %q", ErrSyntax, raw)
	}
	if err := d.expect(`"`); err != nil {
		return "", err
	}
	if d.pos+n > len(d.data) {
		return "", fmt.Errorf("%w: string overruns data", ErrSyntax)
	}
	s := d.data[d.pos : d.pos+n]
	d.pos += n
	if err := d.expect(`";`); err != nil {
		return "", err
	}
	return s, nil
}

func (d *decoder) array() (*Array, error) {
	raw, err := d.until(':')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: bad array length %q", ErrSyntax, raw)
	}
	if err := d.expect("{"); err != nil {
		return nil, err
	}

	a := &Array{Keys: make([]any, 0, n), Values: make([]any, 0, n)}
	for i := 0; i < n; i++ {
		key, err := d.value()
		if err != nil {
			return nil, err
		}
		switch key.(type) {
		case int64, string:
		default:
			return nil, fmt.Errorf("%w: invalid array key", ErrSyntax)
		}
		val, err := d.value()
		if err != nil {
			return nil, err
		}
		a.Keys = append(a.Keys, key)
		a.Values = append(a.Values, val)
	}

	if err := d.expect("}"); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *decoder) expect(token string) error {
	if !strings.HasPrefix(d.data[d.pos:], token) {
		return fmt.Errorf("%w: expected %q at offset %d", ErrSyntax, token, d.pos)
	}
	d.pos += len(token)
	return nil
}

func (d *decoder) until(delim byte) (string, error) {
	idx := strings.IndexByte(d.data[d.pos:], delim)
	if idx < 0 {
		return "", fmt.Errorf("%w: missing %q", ErrSyntax, delim)
	}
	raw := d.data[d.pos : d.pos+idx]
	d.pos += idx + 1
	return raw, nil
}

func encode(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("N;")
	case bool:
		if val {
			b.WriteString("b:1;")
		} else {
			b.WriteString("b:0;")
		}
	case int:
		b.WriteString("i:" + strconv.Itoa(val) + ";")
	case int64:
		b.WriteString("i:" + strconv.FormatInt(val, 10) + ";")
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) && math.Abs(val) < 1e15 {
			b.WriteString("d:" + strconv.FormatFloat(val, 'f', -1, 64) + ";")
		} else {
			b.WriteString("d:" + strconv.FormatFloat(val, 'g', -1, 64) + ";")
		}
	case string:
		b.WriteString("s:" + strconv.Itoa(len(val)) + `:"` + val + `";`)
	case *Array:
		b.WriteString("a:" + strconv.Itoa(val.Len()) + ":{")
		for i, k := range val.Keys {
			encode(b, k)
			encode(b, val.Values[i])
		}
		b.WriteString("}")
	case []string, []any, map[string]any:
		encode(b, FromNative(val))
	default:
		encode(b, fmt.Sprint(val))
	}
}
