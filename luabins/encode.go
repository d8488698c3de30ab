package luabins

import (
	"fmt"
	"math"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/wire"
)

// Encode encodes a forest as a full stream: the count byte followed by
// every value.
func Encode(values []*Value) ([]byte, error) {
	if len(values) > MaxTopLevel {
		return nil, fmt.Errorf("luabins: %d top-level values, at most %d fit: %w", len(values), MaxTopLevel, derrors.Caller)
	}
	w := wire.NewWriter(64)
	w.Byte(byte(len(values)))
	for i, v := range values {
		if err := AppendValue(w, v); err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

// AppendValue appends one encoded value to w.
func AppendValue(w *wire.Writer, v *Value) error {
	switch v.Type() {
	case TypeNil:
		w.Byte(TagNil)
	case TypeBool:
		if v.boolVal {
			w.Byte(TagTrue)
		} else {
			w.Byte(TagFalse)
		}
	case TypeInt:
		w.Byte(TagNumber)
		w.F64(float64(v.intVal))
	case TypeFloat:
		w.Byte(TagNumber)
		w.F64(v.floatVal)
	case TypeString:
		if uint64(len(v.strVal)) > math.MaxUint32 {
			return fmt.Errorf("luabins: string of %d bytes exceeds u32 length: %w", len(v.strVal), derrors.Caller)
		}
		w.Byte(TagString)
		w.U32(uint32(len(v.strVal)))
		w.Raw(v.strVal)
	case TypeTable:
		return appendTable(w, v)
	default:
		return fmt.Errorf("luabins: cannot encode %s: %w", v.Type(), derrors.Caller)
	}
	return nil
}

// Split returns the array and hash sizes a table is encoded with. The
// array part is the 1..n prefix; everything else goes to the hash part.
func Split(v *Value) (arraySize, hashSize int) {
	total := v.Len()
	arraySize = min(total, v.SequenceLength())
	hashSize = max(0, total-arraySize)
	return arraySize, hashSize
}

func appendTable(w *wire.Writer, v *Value) error {
	arraySize, hashSize := Split(v)
	if arraySize > math.MaxInt32 || hashSize > math.MaxInt32 {
		return fmt.Errorf("luabins: table of %d entries exceeds i32 size: %w", v.Len(), derrors.Caller)
	}
	w.Byte(TagTable)
	w.I32(int32(arraySize))
	w.I32(int32(hashSize))

	written := 0
	for i := 1; i <= arraySize; i++ {
		key := Int(int64(i))
		if err := appendPair(w, key, v.Get(key)); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		written++
	}
	for _, e := range v.table.entries {
		if inPrefix(e.Key, arraySize) {
			continue
		}
		if err := appendPair(w, e.Key, e.Value); err != nil {
			return fmt.Errorf("[%s]: %w", e.Key, err)
		}
		written++
	}
	if written != arraySize+hashSize {
		return fmt.Errorf("luabins: wrote %d pairs for a table declaring %d: %w", written, arraySize+hashSize, derrors.Caller)
	}
	return nil
}

func appendPair(w *wire.Writer, key, val *Value) error {
	if _, err := keyOf(key); err != nil {
		return err
	}
	if err := AppendValue(w, key); err != nil {
		return err
	}
	return AppendValue(w, val)
}

// inPrefix reports whether key is one of the integers 1..n.
func inPrefix(key *Value, n int) bool {
	f, ok := key.Number()
	return ok && f >= 1 && f <= float64(n) && f == math.Trunc(f)
}
