package luabins

import (
	"fmt"
	"math"

	"github.com/Neumenon/sgb/derrors"
)

// Type represents luabins value types.
type Type uint8

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeTable
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value represents a decoded Lua value.
// A nil *Value is treated as Nil everywhere.
type Value struct {
	typ Type

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   []byte
	table    *table
}

// Entry is a key/value pair of a table.
type Entry struct {
	Key   *Value
	Value *Value
}

// table keeps entries in insertion order with an index for key lookup.
type table struct {
	entries []Entry
	index   map[tableKey]int
}

// tableKey is the identity of a key: numbers compare by float64 value
// the way Lua 5.x does, so Int(5) and Float(5) address the same slot.
type tableKey struct {
	typ Type
	b   bool
	n   float64
	s   string
}

// ============================================================
// Constructors
// ============================================================

// Nil creates a nil value.
func Nil() *Value {
	return &Value{typ: TypeNil}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{typ: TypeBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{typ: TypeInt, intVal: v}
}

// Float creates a float value. The value is kept as Float even if it is
// whole; use Number to apply the decode-time classification.
func Float(v float64) *Value {
	return &Value{typ: TypeFloat, floatVal: v}
}

// Number classifies f the way the decoder does: Int when f has no
// fractional part, Float otherwise. Whole values outside the int64
// range saturate.
func Number(f float64) *Value {
	if _, frac := math.Modf(f); frac == 0 {
		return Int(saturate(f))
	}
	return Float(f)
}

func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// String creates a string value.
func String(s string) *Value {
	return &Value{typ: TypeString, strVal: []byte(s)}
}

// Bytes creates a string value holding arbitrary bytes. b is not copied.
func Bytes(b []byte) *Value {
	if b == nil {
		b = []byte{}
	}
	return &Value{typ: TypeString, strVal: b}
}

// NewTable creates a table from key/value pairs. Later duplicates
// replace earlier ones. It panics on an invalid key; use Set to get an
// error instead.
func NewTable(entries ...Entry) *Value {
	v := &Value{typ: TypeTable, table: &table{index: make(map[tableKey]int, len(entries))}}
	for _, e := range entries {
		if err := v.Set(e.Key, e.Value); err != nil {
			panic(err)
		}
	}
	return v
}

// List creates a table with values at keys 1..n.
func List(values ...*Value) *Value {
	v := &Value{typ: TypeTable, table: &table{
		entries: make([]Entry, 0, len(values)),
		index:   make(map[tableKey]int, len(values)),
	}}
	for i, e := range values {
		v.Set(Int(int64(i+1)), e)
	}
	return v
}

// Field creates an Entry with a string key, for use in NewTable.
func Field(key string, value *Value) Entry {
	return Entry{Key: String(key), Value: value}
}

// ============================================================
// Accessors
// ============================================================

// Type returns the value type.
func (v *Value) Type() Type {
	if v == nil {
		return TypeNil
	}
	return v.typ
}

// IsNil returns true if this is a nil value.
func (v *Value) IsNil() bool {
	return v == nil || v.typ == TypeNil
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v.Type() != TypeBool {
		return false, fmt.Errorf("luabins: expected boolean, got %s", v.Type())
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if v.Type() != TypeInt {
		return 0, fmt.Errorf("luabins: expected integer, got %s", v.Type())
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if v.Type() != TypeFloat {
		return 0, fmt.Errorf("luabins: expected float, got %s", v.Type())
	}
	return v.floatVal, nil
}

// Number returns a numeric value as float64 if integer or float.
func (v *Value) Number() (float64, bool) {
	switch v.Type() {
	case TypeInt:
		return float64(v.intVal), true
	case TypeFloat:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// AsString returns the string value. The bytes need not be UTF-8.
func (v *Value) AsString() (string, error) {
	if v.Type() != TypeString {
		return "", fmt.Errorf("luabins: expected string, got %s", v.Type())
	}
	return string(v.strVal), nil
}

// AsBytes returns the raw bytes of a string value.
func (v *Value) AsBytes() ([]byte, error) {
	if v.Type() != TypeString {
		return nil, fmt.Errorf("luabins: expected string, got %s", v.Type())
	}
	return v.strVal, nil
}

// Len returns the number of entries of a table, or the byte length of a
// string.
func (v *Value) Len() int {
	switch v.Type() {
	case TypeTable:
		return len(v.table.entries)
	case TypeString:
		return len(v.strVal)
	default:
		return 0
	}
}

// Entries returns the table entries in insertion order.
// The returned slice must not be modified.
func (v *Value) Entries() []Entry {
	if v.Type() != TypeTable {
		return nil
	}
	return v.table.entries
}

// Get returns the value stored under key, or nil when the key is absent
// or v is not a table.
func (v *Value) Get(key *Value) *Value {
	if v.Type() != TypeTable {
		return nil
	}
	k, err := keyOf(key)
	if err != nil {
		return nil
	}
	if i, ok := v.table.index[k]; ok {
		return v.table.entries[i].Value
	}
	return nil
}

// GetString is shorthand for Get(String(key)).
func (v *Value) GetString(key string) *Value {
	return v.Get(String(key))
}

// SequenceLength returns the largest n such that keys 1..n are all
// present. It is the size of the array part used when encoding.
func (v *Value) SequenceLength() int {
	if v.Type() != TypeTable {
		return 0
	}
	n := 0
	for {
		if _, ok := v.table.index[tableKey{typ: TypeInt, n: float64(n + 1)}]; !ok {
			return n
		}
		n++
	}
}

// ============================================================
// Mutators
// ============================================================

// Set stores val under key. Setting a key to nil removes it, matching
// Lua assignment.
func (v *Value) Set(key, val *Value) error {
	if v.Type() != TypeTable {
		return fmt.Errorf("luabins: cannot index %s: %w", v.Type(), derrors.Caller)
	}
	k, err := keyOf(key)
	if err != nil {
		return err
	}
	t := v.table
	i, ok := t.index[k]
	if val.IsNil() {
		if ok {
			t.remove(i)
		}
		return nil
	}
	if ok {
		t.entries[i].Value = val
		return nil
	}
	t.index[k] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: key, Value: val})
	return nil
}

// Delete removes key from the table.
func (v *Value) Delete(key *Value) {
	v.Set(key, nil)
}

func (t *table) remove(i int) {
	k, _ := keyOf(t.entries[i].Key)
	delete(t.index, k)
	copy(t.entries[i:], t.entries[i+1:])
	t.entries[len(t.entries)-1] = Entry{}
	t.entries = t.entries[:len(t.entries)-1]
	for j := i; j < len(t.entries); j++ {
		k, _ := keyOf(t.entries[j].Key)
		t.index[k] = j
	}
}

func keyOf(key *Value) (tableKey, error) {
	switch key.Type() {
	case TypeBool:
		return tableKey{typ: TypeBool, b: key.boolVal}, nil
	case TypeInt:
		return tableKey{typ: TypeInt, n: float64(key.intVal)}, nil
	case TypeFloat:
		if math.IsNaN(key.floatVal) {
			return tableKey{}, fmt.Errorf("luabins: table key is NaN: %w", derrors.Caller)
		}
		return tableKey{typ: TypeInt, n: key.floatVal}, nil
	case TypeString:
		return tableKey{typ: TypeString, s: string(key.strVal)}, nil
	default:
		return tableKey{}, fmt.Errorf("luabins: unsupported table key type %s: %w", key.Type(), derrors.Caller)
	}
}

// ============================================================
// Comparison
// ============================================================

// Equal reports whether v and o are deeply equal. Tables compare as
// mappings, ignoring entry order. Integer and float values never compare
// equal to each other.
func (v *Value) Equal(o *Value) bool {
	if v.Type() != o.Type() {
		return false
	}
	switch v.Type() {
	case TypeNil:
		return true
	case TypeBool:
		return v.boolVal == o.boolVal
	case TypeInt:
		return v.intVal == o.intVal
	case TypeFloat:
		return v.floatVal == o.floatVal || (math.IsNaN(v.floatVal) && math.IsNaN(o.floatVal))
	case TypeString:
		return string(v.strVal) == string(o.strVal)
	case TypeTable:
		if v.Len() != o.Len() {
			return false
		}
		for _, e := range v.table.entries {
			ov := o.Get(e.Key)
			if ov == nil || !e.Value.Equal(ov) {
				return false
			}
			// Int(1) and Float(1) share a slot; keep key types strict.
			k, _ := keyOf(e.Key)
			if o.table.entries[o.table.index[k]].Key.Type() != e.Key.Type() {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	switch v.Type() {
	case TypeNil:
		return Nil()
	case TypeString:
		return Bytes(append([]byte{}, v.strVal...))
	case TypeTable:
		c := &Value{typ: TypeTable, table: &table{
			entries: make([]Entry, 0, v.Len()),
			index:   make(map[tableKey]int, v.Len()),
		}}
		for _, e := range v.table.entries {
			c.Set(e.Key.Clone(), e.Value.Clone())
		}
		return c
	default:
		cp := *v
		return &cp
	}
}

// ForestEqual reports whether two forests hold equal values in the same
// order.
func ForestEqual(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
