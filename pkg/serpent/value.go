package serpent

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Kind tags a decoded Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

// Value is one decoded reply value. The zero Value is Absent.
// Mappings remember key order as parsed, so re-encoding is stable.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	seq  []Value
	keys []string
	rec  map[string]Value
}

// Boolean returns a Value holding b.
func Boolean(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a Value holding f.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Str returns a Value holding s. Barewords decode to this kind too.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Seq returns a sequence Value over items.
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// Field is one key/value pair for constructing a record.
type Field struct {
	Key string
	Val Value
}

// Record returns a mapping Value preserving the given field order.
// A repeated key keeps its first position and takes the last value.
func Record(fields ...Field) Value {
	v := Value{kind: KindMapping, keys: []string{}, rec: map[string]Value{}}
	for _, f := range fields {
		v.put(f.Key, f.Val)
	}
	return v
}

func (v *Value) put(key string, val Value) {
	if _, seen := v.rec[key]; !seen {
		v.keys = append(v.keys, key)
	}
	v.rec[key] = val
}

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v decodes a nil or missing value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Bool returns the boolean payload, false for any other kind.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Float returns the numeric payload, 0 for any other kind.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Int returns the numeric payload truncated to int.
func (v Value) Int() int { return int(v.Float()) }

// Int64 returns the numeric payload truncated to int64. Resource totals can
// exceed 32-bit range on large maps.
func (v Value) Int64() int64 { return int64(v.Float()) }

// Str returns the string payload, "" for any other kind.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// Len returns the element count of a sequence or the field count of a
// mapping, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.keys)
	default:
		return 0
	}
}

// Index returns the i-th element of a sequence, Absent when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Value{}
	}
	return v.seq[i]
}

// Items returns the sequence elements, nil for any other kind.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Keys returns mapping keys in parse order, nil for any other kind.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	return v.keys
}

// Field returns the named field of a mapping, Absent when missing or when
// v is not a mapping.
func (v Value) Field(name string) Value {
	if v.kind != KindMapping {
		return Value{}
	}
	return v.rec[name]
}

// FieldStr returns the named string field, or def when missing.
func (v Value) FieldStr(name, def string) string {
	f := v.Field(name)
	if f.kind != KindString {
		return def
	}
	return f.str
}

// FieldFloat returns the named numeric field, or def when missing.
func (v Value) FieldFloat(name string, def float64) float64 {
	f := v.Field(name)
	if f.kind != KindNumber {
		return def
	}
	return f.num
}

// FieldInt returns the named numeric field truncated to int, or def.
func (v Value) FieldInt(name string, def int) int {
	f := v.Field(name)
	if f.kind != KindNumber {
		return def
	}
	return int(f.num)
}

// FieldInt64 returns the named numeric field truncated to int64, or def.
func (v Value) FieldInt64(name string, def int64) int64 {
	f := v.Field(name)
	if f.kind != KindNumber {
		return def
	}
	return int64(f.num)
}

// FieldBool returns the named boolean field, or def when missing.
func (v Value) FieldBool(name string, def bool) bool {
	f := v.Field(name)
	if f.kind != KindBool {
		return def
	}
	return f.b
}

// MarshalJSON renders v as compact JSON. Absent becomes null; mappings keep
// their parsed field order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return json.Marshal(strconv.FormatFloat(v.num, 'g', -1, 64))
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindSequence:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMapping:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.rec[key].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}
